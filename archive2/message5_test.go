package archive2

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestDecodeMsg5ParsesAllCuts(t *testing.T) {
	header := Msg5Header{NumCuts: 2}
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, header)
	_ = binary.Write(&buf, binary.BigEndian, CutParameters{ElevationAngleRaw: 100, SuperResolution: 7})
	_ = binary.Write(&buf, binary.BigEndian, CutParameters{ElevationAngleRaw: 200, SuperResolution: 0})

	msg5, err := decodeMsg5(newStructCache(), buf.Bytes(), 0)
	if err != nil {
		t.Fatalf("decodeMsg5: %v", err)
	}
	if len(msg5.CutParameters) != 2 {
		t.Fatalf("expected 2 cuts, got %d", len(msg5.CutParameters))
	}
	if !msg5.CutParameters[0].SuperResolutionEnabled() {
		t.Fatalf("cut 0 should be super-resolution")
	}
	if msg5.CutParameters[1].SuperResolutionEnabled() {
		t.Fatalf("cut 1 should not be super-resolution")
	}
}

func TestDecodeMsg5TruncatedCutParametersErrors(t *testing.T) {
	header := Msg5Header{NumCuts: 1}
	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.BigEndian, header)
	buf.Write([]byte{0, 1, 2}) // far short of a full CutParameters

	if _, err := decodeMsg5(newStructCache(), buf.Bytes(), 0); err == nil {
		t.Fatal("expected an error for truncated cut parameters, got nil")
	}
}

func TestCutParametersElevationDegrees(t *testing.T) {
	cp := CutParameters{ElevationAngleRaw: 32768} // half of 65536 -> 180 degrees
	if got, want := cp.ElevationDegrees(), float32(180.0); got != want {
		t.Fatalf("ElevationDegrees() = %v, want %v", got, want)
	}
}
