package archive2

import "testing"

func radialWithElevation(elv uint8) *Record {
	return &Record{
		Header: MessageHeader{Type: MsgTypeDigitalRadarGeneric},
		Msg31:  &Msg31{Header: Msg31Header{ElevationNumber: elv}},
	}
}

func TestGroupScansContiguous(t *testing.T) {
	radials := []*Record{
		radialWithElevation(1), radialWithElevation(1), radialWithElevation(1),
		radialWithElevation(2), radialWithElevation(2),
	}
	scans := groupScans(radials)
	if len(scans) != 2 {
		t.Fatalf("expected 2 scans, got %d", len(scans))
	}
	if len(scans[0].Indices) != 3 || len(scans[1].Indices) != 2 {
		t.Fatalf("unexpected scan sizes: %v", scans)
	}
}

func TestConsecutiveRuns(t *testing.T) {
	runs := consecutiveRuns([]int{0, 1, 2, 5, 6, 9})
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d: %v", len(runs), runs)
	}
	want := [][]int{{0, 1, 2}, {5, 6}, {9}}
	for i, run := range runs {
		if len(run) != len(want[i]) {
			t.Fatalf("run %d = %v, want %v", i, run, want[i])
		}
		for j, v := range run {
			if v != want[i][j] {
				t.Fatalf("run %d = %v, want %v", i, run, want[i])
			}
		}
	}
}

func TestRepairConcatenatedVolumesKeepsLongestTrailingRun(t *testing.T) {
	// Simulate a concatenated/corrupted volume: elevation 1 appears at
	// indices 0-1, then again (out of place) at 5-7 after other elevations
	// were interleaved in between.
	scans := []Scan{
		{Indices: []int{0, 1, 5, 6, 7}},
	}
	repairConcatenatedVolumes(scans)
	want := []int{5, 6, 7}
	if len(scans[0].Indices) != len(want) {
		t.Fatalf("Indices = %v, want %v", scans[0].Indices, want)
	}
	for i, v := range want {
		if scans[0].Indices[i] != v {
			t.Fatalf("Indices = %v, want %v", scans[0].Indices, want)
		}
	}
}

func TestRepairConcatenatedVolumesNoOpWhenAlreadyContiguous(t *testing.T) {
	scans := []Scan{{Indices: []int{3, 4, 5, 6}}}
	repairConcatenatedVolumes(scans)
	if len(scans[0].Indices) != 4 {
		t.Fatalf("contiguous run should be left untouched, got %v", scans[0].Indices)
	}
}

func TestPredictStreamIndicesWithoutVCPUsesTDWRFallback(t *testing.T) {
	indices := predictStreamIndices(nil, 11)
	want := []int{2, 5, 8}
	if len(indices) != len(want) {
		t.Fatalf("indices = %v, want %v", indices, want)
	}
	for i, v := range want {
		if indices[i] != v {
			t.Fatalf("indices = %v, want %v", indices, want)
		}
	}
}

func TestRadBlockMissingDetectsAbsentRadBlock(t *testing.T) {
	withRad := []*Record{{Msg31: &Msg31{Rad: &RadialDataBlock{}}}}
	if radBlockMissing(withRad) {
		t.Fatalf("expected false when RAD block present")
	}

	withoutRad := []*Record{{Msg31: &Msg31{}}}
	if !radBlockMissing(withoutRad) {
		t.Fatalf("expected true when RAD block absent")
	}

	legacy := []*Record{{Msg1: &Msg1{}}}
	if radBlockMissing(legacy) {
		t.Fatalf("expected false for non-type-31 records")
	}
}

func TestPredictStreamIndicesWithVCPHonorsSuperResolution(t *testing.T) {
	vcp := &Msg5{CutParameters: []CutParameters{
		{SuperResolution: 7}, // super-res: consumes 6 streams
		{SuperResolution: 0}, // standard: consumes 3 streams
	}}
	indices := predictStreamIndices(vcp, 20)
	want := []int{1, 7} // 1, then 1+6=7
	if len(indices) != len(want) || indices[0] != want[0] || indices[1] != want[1] {
		t.Fatalf("indices = %v, want %v", indices, want)
	}
}
