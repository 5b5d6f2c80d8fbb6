package archive2

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func encodeGenericDataBlockWire(w genericDataBlockWire, gates []byte) []byte {
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, w)
	buf.Write(gates)
	return buf.Bytes()
}

func TestDecodeGenericDataBlockGateCountMatchesData(t *testing.T) {
	w := genericDataBlockWire{NumberDataMomentGates: 4, DataWordSize: 8, Scale: 2, Offset: 66}
	buf := encodeGenericDataBlockWire(w, []byte{10, 20, 30, 40})

	block, err := decodeGenericDataBlock(newStructCache(), buf, 0, "REF")
	if err != nil {
		t.Fatalf("decodeGenericDataBlock: %v", err)
	}
	if int(block.NumberDataMomentGates) != len(block.Data) {
		t.Fatalf("NumberDataMomentGates=%d but len(Data)=%d", block.NumberDataMomentGates, len(block.Data))
	}
	if len(block.Data) != 4 {
		t.Fatalf("len(Data) = %d, want 4", len(block.Data))
	}
}

func TestDecodeGenericDataBlockTruncatesToAvailableBuffer(t *testing.T) {
	w := genericDataBlockWire{NumberDataMomentGates: 100, DataWordSize: 8, Scale: 2, Offset: 66}
	buf := encodeGenericDataBlockWire(w, []byte{1, 2, 3}) // far fewer bytes than claimed

	block, err := decodeGenericDataBlock(newStructCache(), buf, 0, "REF")
	if err != nil {
		t.Fatalf("decodeGenericDataBlock: %v", err)
	}
	if int(block.NumberDataMomentGates) != len(block.Data) {
		t.Fatalf("NumberDataMomentGates=%d but len(Data)=%d", block.NumberDataMomentGates, len(block.Data))
	}
	if len(block.Data) != 3 {
		t.Fatalf("expected truncation to the 3 available bytes, got %d", len(block.Data))
	}
}

func TestDecodeGenericDataBlockUnsupportedWordSizeFallsBackTo8Bit(t *testing.T) {
	w := genericDataBlockWire{NumberDataMomentGates: 2, DataWordSize: 12, Scale: 1, Offset: 0}
	buf := encodeGenericDataBlockWire(w, []byte{5, 6})

	block, err := decodeGenericDataBlock(newStructCache(), buf, 0, "ZDR")
	if err != nil {
		t.Fatalf("decodeGenericDataBlock: %v", err)
	}
	if block.DataWordSize != 8 {
		t.Fatalf("DataWordSize = %d, want fallback of 8", block.DataWordSize)
	}
}

func TestDecodeMsg31UnknownBlockTagIgnored(t *testing.T) {
	header := Msg31Header{DataBlockCount: 1}
	header.BlockPointers[0] = uint32(msg31HeaderSize)
	var hbuf bytes.Buffer
	_ = binary.Write(&hbuf, binary.BigEndian, header)
	// block pointer 0 points right past the header, to a block carrying an
	// unrecognized 3-byte tag.
	payload := hbuf.Bytes()
	payload = append(payload, 0, 'Z', 'Z', 'Z')
	payload = append(payload, make([]byte, 16)...)

	msg31, err := decodeMsg31(newStructCache(), payload, 0, len(payload), nil)
	if err != nil {
		t.Fatalf("decodeMsg31: %v", err)
	}
	if len(msg31.Moments) != 0 {
		t.Fatalf("expected no moments decoded for an unrecognized tag, got %v", msg31.Moments)
	}
}
