package archive2

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestAzimuthDegreesScale(t *testing.T) {
	// Raw CODE2 value 4096*8 = full code range should map to 180 degrees.
	h := Msg1Header{AzimuthAngleRaw: 4096 * 8}
	if got, want := h.AzimuthDegrees(), 180.0; got != want {
		t.Fatalf("AzimuthDegrees() = %v, want %v", got, want)
	}
}

func TestDecodeMsg1RespectsMomentFilter(t *testing.T) {
	header := Msg1Header{
		SurPointer:        uint16(msg1HeaderSize),
		SurNBins:          4,
		DopplerResolution: 4,
	}
	var hbuf bytes.Buffer
	_ = binary.Write(&hbuf, binary.BigEndian, header)
	buf := append(hbuf.Bytes(), make([]byte, 16)...)

	m1, err := decodeMsg1(newStructCache(), buf, 0, map[string]bool{"VEL": true})
	if err != nil {
		t.Fatalf("decodeMsg1: %v", err)
	}
	if _, ok := m1.Moments["REF"]; ok {
		t.Fatal("REF should have been filtered out by the moment restriction")
	}
}

func TestDecodeMsg1DopplerVelocityScaleDependsOnResolution(t *testing.T) {
	header := Msg1Header{
		VelPointer:        uint16(msg1HeaderSize),
		DopplerNBins:      2,
		DopplerResolution: 4, // 1.0 m/s resolution -> scale 1.0
	}
	var hbuf bytes.Buffer
	_ = binary.Write(&hbuf, binary.BigEndian, header)
	buf := append(hbuf.Bytes(), []byte{10, 20}...)

	m1, err := decodeMsg1(newStructCache(), buf, 0, nil)
	if err != nil {
		t.Fatalf("decodeMsg1: %v", err)
	}
	vel, ok := m1.Moments["VEL"]
	if !ok {
		t.Fatal("expected a VEL moment block")
	}
	if vel.Scale != 1.0 {
		t.Fatalf("Scale = %v, want 1.0 for DopplerResolution=4", vel.Scale)
	}
}
