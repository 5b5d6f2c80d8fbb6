package archive2

import (
	"math"
	"testing"
)

func TestConvertGateSentinels(t *testing.T) {
	if v := convertGate(belowThresholdSentinel, 2, 66); !math.IsNaN(v) {
		t.Fatalf("below-threshold sentinel should convert to NaN, got %v", v)
	}
	if v := convertGate(rangeFoldedSentinel, 2, 66); !math.IsNaN(v) {
		t.Fatalf("range-folded sentinel should convert to NaN, got %v", v)
	}
}

func TestConvertGateScaleOffset(t *testing.T) {
	// REF: scale=2.0, offset=66.0 -> raw 146 is 40 dBZ.
	got := convertGate(146, 2.0, 66.0)
	want := 40.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("convertGate(146, 2.0, 66.0) = %v, want %v", got, want)
	}
}

func buildVolumeFileForQuery() *VolumeFile {
	ref := &GenericDataBlock{Scale: 2.0, Offset: 66.0, Data: []uint16{0, 1, 146, 148}}
	radial := &Record{
		Header: MessageHeader{Type: MsgTypeDigitalRadarGeneric},
		Msg31: &Msg31{
			Header:  Msg31Header{ElevationNumber: 1, AzimuthAngle: 10.5},
			Moments: map[string]*GenericDataBlock{"REF": ref},
		},
	}
	vf := &VolumeFile{
		RadialRecords: []*Record{radial},
		Scans:         []Scan{{Indices: []int{0}}},
	}
	return vf
}

func TestGetDataConvertsAndMasksSentinels(t *testing.T) {
	vf := buildVolumeFileForQuery()
	out, err := vf.GetData("REF", 0, nil, false)
	if err != nil {
		t.Fatalf("GetData returned error: %v", err)
	}
	if len(out) != 1 || len(out[0]) != 1 {
		t.Fatalf("unexpected shape: %v", out)
	}
	gates := out[0][0]
	if !math.IsNaN(gates[0]) || !math.IsNaN(gates[1]) {
		t.Fatalf("expected first two gates to be NaN sentinels, got %v", gates[:2])
	}
	if math.Abs(gates[2]-40.0) > 1e-9 {
		t.Fatalf("gates[2] = %v, want 40.0", gates[2])
	}
}

func TestGetDataMaxNGatesTruncates(t *testing.T) {
	vf := buildVolumeFileForQuery()
	out, err := vf.GetData("REF", 2, nil, false)
	if err != nil {
		t.Fatalf("GetData returned error: %v", err)
	}
	if len(out[0][0]) != 2 {
		t.Fatalf("expected truncation to 2 gates, got %d", len(out[0][0]))
	}
}

func TestGetDataPadsShortRadialsToMaxNGates(t *testing.T) {
	vf := buildVolumeFileForQuery()
	out, err := vf.GetData("REF", 6, nil, false)
	if err != nil {
		t.Fatalf("GetData returned error: %v", err)
	}
	gates := out[0][0]
	if len(gates) != 6 {
		t.Fatalf("expected padded width 6, got %d", len(gates))
	}
	if !math.IsNaN(gates[4]) || !math.IsNaN(gates[5]) {
		t.Fatalf("expected padding gates to be NaN, got %v", gates[4:6])
	}
}

func TestGetDataMissingMomentRowIsSentinelFilled(t *testing.T) {
	vf := buildVolumeFileForQuery()
	out, err := vf.GetData("VEL", 4, nil, false)
	if err != nil {
		t.Fatalf("GetData returned error: %v", err)
	}
	if len(out) != 1 || len(out[0]) != 1 {
		t.Fatalf("unexpected shape: %v", out)
	}
	gates := out[0][0]
	if len(gates) != 4 {
		t.Fatalf("expected a maxNGates-wide row even with no moment block, got %d", len(gates))
	}
	for i, v := range gates {
		if !math.IsNaN(v) {
			t.Fatalf("gates[%d] = %v, want NaN sentinel fill", i, v)
		}
	}
}

func TestGetDataMissingMomentRowRawSentinel(t *testing.T) {
	vf := buildVolumeFileForQuery()
	out, err := vf.GetData("VEL", 3, nil, true)
	if err != nil {
		t.Fatalf("GetData returned error: %v", err)
	}
	gates := out[0][0]
	for i, v := range gates {
		if v != float64(rangeFoldedSentinel) {
			t.Fatalf("gates[%d] = %v, want raw sentinel %d", i, v, rangeFoldedSentinel)
		}
	}
}

func TestGetTargetAnglesUsesVCPCutParameters(t *testing.T) {
	vf := buildVolumeFileForQuery()
	vf.MsgType = MsgTypeDigitalRadarGeneric
	vf.VCP = &Msg5{CutParameters: []CutParameters{
		{ElevationAngleRaw: 100},
	}}
	angles, err := vf.GetTargetAngles(nil)
	if err != nil {
		t.Fatalf("GetTargetAngles returned error: %v", err)
	}
	if len(angles) != 1 {
		t.Fatalf("unexpected shape: %v", angles)
	}
	want := float64(CutParameters{ElevationAngleRaw: 100}.ElevationDegrees())
	if math.Abs(angles[0]-want) > 1e-6 {
		t.Fatalf("angles[0] = %v, want %v", angles[0], want)
	}
}

func TestGetTargetAnglesFallsBackToZeroWithoutVCP(t *testing.T) {
	vf := buildVolumeFileForQuery()
	vf.MsgType = MsgTypeDigitalRadarGeneric
	angles, err := vf.GetTargetAngles(nil)
	if err != nil {
		t.Fatalf("GetTargetAngles returned error: %v", err)
	}
	if len(angles) != 1 || angles[0] != 0 {
		t.Fatalf("expected all-zero fallback, got %v", angles)
	}
}

func TestGetTargetAnglesFallsBackToZeroWhenCutsFewerThanScans(t *testing.T) {
	vf := buildVolumeFileForQuery()
	vf.MsgType = MsgTypeDigitalRadarGeneric
	vf.Scans = append(vf.Scans, Scan{Indices: []int{0}})
	vf.VCP = &Msg5{CutParameters: []CutParameters{{ElevationAngleRaw: 100}}}
	angles, err := vf.GetTargetAngles(nil)
	if err != nil {
		t.Fatalf("GetTargetAngles returned error: %v", err)
	}
	if len(angles) != 2 || angles[0] != 0 || angles[1] != 0 {
		t.Fatalf("expected volume-level fallback to all zeros, got %v", angles)
	}
}

func TestGetTargetAnglesLegacyType1UsesMeasuredElevation(t *testing.T) {
	radial := &Record{
		Header: MessageHeader{Type: MsgTypeDigitalRadarData},
		Msg1: &Msg1{
			Header: Msg1Header{ElevationNumber: 1, ElevationAngleRaw: uint16(1.23 / legacyAngleScale)},
		},
	}
	vf := &VolumeFile{
		MsgType:       MsgTypeDigitalRadarData,
		RadialRecords: []*Record{radial},
		Scans:         []Scan{{Indices: []int{0}}},
	}
	angles, err := vf.GetTargetAngles(nil)
	if err != nil {
		t.Fatalf("GetTargetAngles returned error: %v", err)
	}
	if len(angles) != 1 {
		t.Fatalf("unexpected shape: %v", angles)
	}
	want := math.Round(radial.Msg1.Header.ElevationDegrees()*10) / 10
	if math.Abs(angles[0]-want) > 1e-9 {
		t.Fatalf("angles[0] = %v, want %v", angles[0], want)
	}
}

func TestGetAzimuthAngles(t *testing.T) {
	vf := buildVolumeFileForQuery()
	angles := vf.GetAzimuthAngles(nil)
	if len(angles) != 1 || len(angles[0]) != 1 {
		t.Fatalf("unexpected shape: %v", angles)
	}
	if math.Abs(angles[0][0]-10.5) > 1e-6 {
		t.Fatalf("azimuth = %v, want 10.5", angles[0][0])
	}
}
