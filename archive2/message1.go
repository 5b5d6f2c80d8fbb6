package archive2

import (
	"bytes"
	"encoding/binary"
)

// Msg1Header is the legacy "Digital Radar Data" radial header (User 3.2.4,
// Table III). Azimuth/elevation angle and scan numbers use a scaled CODE2
// representation; see Msg1Header.AzimuthDegrees / ElevationDegrees.
type Msg1Header struct {
	CollectMs         uint32
	CollectDate       uint16
	UnambigRange      int16
	AzimuthAngleRaw   uint16
	AzimuthNumber     uint16
	RadialStatus      uint16
	ElevationAngleRaw uint16
	ElevationNumber   uint16
	SurRangeFirst     uint16
	DopplerRangeFirst uint16
	SurRangeStep      uint16
	DopplerRangeStep  uint16
	SurNBins          uint16
	DopplerNBins      uint16
	CutSectorNum      uint16
	CalibConst        float32
	SurPointer        uint16
	VelPointer        uint16
	WidthPointer      uint16
	DopplerResolution uint16
	VCP               uint16
	Spare1            [8]byte
	Spare2            [2]byte
	Spare3            [2]byte
	Spare4            [2]byte
	NyquistVel        int16
	AtmosAttenuation  int16
	Threshold         int16
	SpotBlankStatus   uint16
	Spare5            [32]byte
}

var msg1HeaderSize = binary.Size(Msg1Header{})

// legacyAngleScale converts the CODE2 azimuth/elevation representation used
// by type-1 files into degrees (spec.md §3).
const legacyAngleScale = 180.0 / (4096.0 * 8.0)

// AzimuthDegrees returns the azimuth angle in degrees.
func (h Msg1Header) AzimuthDegrees() float64 {
	return float64(h.AzimuthAngleRaw) * legacyAngleScale
}

// ElevationDegrees returns the elevation angle in degrees.
func (h Msg1Header) ElevationDegrees() float64 {
	return float64(h.ElevationAngleRaw) * legacyAngleScale
}

// Msg1 is the legacy radial message, its header plus up to three payload
// moments (REF, VEL, SW).
type Msg1 struct {
	Header  Msg1Header
	Moments map[string]*GenericDataBlock
}

// decodeMsg1 decodes a type-1 message whose header starts at pos in buf.
// moments, if non-nil, restricts which of REF/VEL/SW are attached.
func decodeMsg1(c *structCache, buf []byte, pos int, moments map[string]bool) (*Msg1, error) {
	if pos+msg1HeaderSize > len(buf) {
		return nil, nil
	}
	raw := buf[pos : pos+msg1HeaderSize]
	header := unpackCached(c, "MSG_1", raw, func(raw []byte) Msg1Header {
		var h Msg1Header
		_ = binary.Read(bytes.NewReader(raw), binary.BigEndian, &h)
		return h
	})

	m1 := &Msg1{Header: header, Moments: make(map[string]*GenericDataBlock)}

	surNBins := int(header.SurNBins)
	dopplerNBins := int(header.DopplerNBins)
	dopplerFirst := int(header.DopplerRangeFirst)
	if dopplerFirst > 1<<15 {
		dopplerFirst -= 1 << 16
	}

	if header.SurPointer != 0 && (moments == nil || moments["REF"]) {
		offset := pos + int(header.SurPointer)
		m1.Moments["REF"] = readLegacyMoment(buf, offset, surNBins,
			int16(header.SurRangeFirst), int16(header.SurRangeStep), 2.0, 66.0)
	}
	if header.VelPointer != 0 && (moments == nil || moments["VEL"]) {
		offset := pos + int(header.VelPointer)
		scale := float32(2.0)
		if header.DopplerResolution == 4 {
			scale = 1.0
		}
		m1.Moments["VEL"] = readLegacyMoment(buf, offset, dopplerNBins,
			int16(dopplerFirst), int16(header.DopplerRangeStep), scale, 129.0)
	}
	if header.WidthPointer != 0 && (moments == nil || moments["SW"]) {
		offset := pos + int(header.WidthPointer)
		m1.Moments["SW"] = readLegacyMoment(buf, offset, dopplerNBins,
			int16(dopplerFirst), int16(header.DopplerRangeStep), 2.0, 129.0)
	}
	return m1, nil
}

func readLegacyMoment(buf []byte, offset, nbins int, firstGate, gateSpacing int16, scale, offsetVal float32) *GenericDataBlock {
	if offset < 0 || offset > len(buf) {
		return nil
	}
	end := offset + nbins
	if end > len(buf) {
		end = len(buf)
	}
	raw := buf[offset:end]
	data := make([]uint16, len(raw))
	for i, b := range raw {
		data[i] = uint16(b)
	}
	return &GenericDataBlock{
		NumberDataMomentGates:         uint16(len(data)),
		DataMomentRange:               firstGate,
		DataMomentRangeSampleInterval: gateSpacing,
		DataWordSize:                  8,
		Scale:                         scale,
		Offset:                        offsetVal,
		Data:                          data,
	}
}
