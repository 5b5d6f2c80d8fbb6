package archive2

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// rangeFoldedSentinel and belowThresholdSentinel are the two raw moment
// values with a meaning other than "scale/offset-convert me" (spec.md §3).
const (
	belowThresholdSentinel = 0
	rangeFoldedSentinel    = 1
)

// Location is the radar's stationary position, taken from the first
// type-31 volume data block seen.
type Location struct {
	Lat    float64
	Lon    float64
	Height float64 // meters above sea level
}

// Location returns the radar site location, or an error if no type-31
// volume data block was decoded (legacy type-1 volumes carry no location).
func (vf *VolumeFile) Location() (Location, error) {
	for _, r := range vf.RadialRecords {
		if r.Msg31 != nil && r.Msg31.Vol != nil {
			return Location{
				Lat:    float64(r.Msg31.Vol.Lat),
				Lon:    float64(r.Msg31.Vol.Lon),
				Height: float64(r.Msg31.Vol.Height) + float64(r.Msg31.Vol.FeedhornHeight),
			}, nil
		}
	}
	return Location{}, fmt.Errorf("archive2: no volume location available for this volume")
}

// resolveScans returns the requested scan indices, or every scan index if
// scans is nil.
func (vf *VolumeFile) resolveScans(scans []int) []int {
	if scans != nil {
		return scans
	}
	all := make([]int, len(vf.Scans))
	for i := range all {
		all[i] = i
	}
	return all
}

// ScanInfo summarizes one elevation cut.
type ScanInfo struct {
	Scan            int
	NumRadials      int
	ElevationNumber int
}

// ScanInfo reports radial counts and elevation numbers for the requested
// scans (spec.md §6).
func (vf *VolumeFile) ScanInfo(scans []int) []ScanInfo {
	out := make([]ScanInfo, 0, len(scans))
	for _, s := range vf.resolveScans(scans) {
		if s < 0 || s >= len(vf.Scans) {
			continue
		}
		indices := vf.Scans[s].Indices
		elv := -1
		if len(indices) > 0 {
			elv = elevationNumber(vf.RadialRecords[indices[0]])
		}
		out = append(out, ScanInfo{Scan: s, NumRadials: len(indices), ElevationNumber: elv})
	}
	return out
}

// GetTimes returns each radial's collection timestamp for the requested
// scans, grouped per scan in radial order.
func (vf *VolumeFile) GetTimes(scans []int) [][]time.Time {
	return vf.perRadial(scans, func(r *Record) time.Time {
		switch {
		case r.Msg31 != nil:
			return r.Msg31.Header.Date()
		case r.Msg1 != nil:
			return time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC).
				Add(time.Duration(r.Msg1.Header.CollectDate) * 24 * time.Hour).
				Add(time.Duration(r.Msg1.Header.CollectMs) * time.Millisecond)
		default:
			return time.Time{}
		}
	})
}

// GetAzimuthAngles returns each radial's azimuth angle in degrees for the
// requested scans.
func (vf *VolumeFile) GetAzimuthAngles(scans []int) [][]float64 {
	return vf.perRadialFloat(scans, func(r *Record) float64 {
		switch {
		case r.Msg31 != nil:
			return float64(r.Msg31.Header.AzimuthAngle)
		case r.Msg1 != nil:
			return r.Msg1.Header.AzimuthDegrees()
		default:
			return 0
		}
	})
}

// GetElevationAngles returns each radial's measured elevation angle in
// degrees for the requested scans.
func (vf *VolumeFile) GetElevationAngles(scans []int) [][]float64 {
	return vf.perRadialFloat(scans, func(r *Record) float64 {
		switch {
		case r.Msg31 != nil:
			return float64(r.Msg31.Header.ElevationAngle)
		case r.Msg1 != nil:
			return r.Msg1.Header.ElevationDegrees()
		default:
			return 0
		}
	})
}

// GetTargetAngles returns the VCP-commanded target elevation angle in
// degrees for each requested scan (one value per scan, not per radial).
// Legacy type-1 volumes carry no VCP; their target angle is approximated
// from the first radial's measured elevation angle instead, rounded to one
// decimal place. A volume with no VCP at all, or fewer cuts than requested
// scans, falls back to 0.0 for every scan (warnMissingVCP) rather than
// erroring.
func (vf *VolumeFile) GetTargetAngles(scans []int) ([]float64, error) {
	resolved := vf.resolveScans(scans)
	out := make([]float64, 0, len(resolved))

	if vf.MsgType == MsgTypeDigitalRadarData {
		for _, s := range resolved {
			if s < 0 || s >= len(vf.Scans) || len(vf.Scans[s].Indices) == 0 {
				out = append(out, 0)
				continue
			}
			r := vf.RadialRecords[vf.Scans[s].Indices[0]]
			if r.Msg1 == nil {
				out = append(out, 0)
				continue
			}
			out = append(out, math.Round(r.Msg1.Header.ElevationDegrees()*10)/10)
		}
		return out, nil
	}

	if vf.VCP == nil || len(resolved) > len(vf.VCP.CutParameters) {
		logrus.Warn(warnMissingVCP)
		for range resolved {
			out = append(out, 0)
		}
		return out, nil
	}

	for _, s := range resolved {
		out = append(out, float64(vf.VCP.CutParameters[s].ElevationDegrees()))
	}
	return out, nil
}

// GetNyquistVel returns the Nyquist velocity in m/s for the first radial
// of each requested scan.
func (vf *VolumeFile) GetNyquistVel(scans []int) []float64 {
	return vf.perScanFirstFloat(scans, func(r *Record) float64 {
		switch {
		case r.Msg31 != nil && r.Msg31.Rad != nil:
			return float64(r.Msg31.Rad.NyquistVelocity) * 0.01
		case r.Msg1 != nil:
			return float64(r.Msg1.Header.NyquistVel) * 0.01
		default:
			return 0
		}
	})
}

// GetUnambigRange returns the unambiguous range in kilometers for the
// first radial of each requested scan.
func (vf *VolumeFile) GetUnambigRange(scans []int) []float64 {
	return vf.perScanFirstFloat(scans, func(r *Record) float64 {
		switch {
		case r.Msg31 != nil && r.Msg31.Rad != nil:
			return float64(r.Msg31.Rad.UnambiguousRange) * 0.1
		case r.Msg1 != nil:
			return float64(r.Msg1.Header.UnambigRange) * 0.1
		default:
			return 0
		}
	})
}

// GetVCPPattern returns the decoded volume coverage pattern, or an error
// if this volume carried no MSG_5.
func (vf *VolumeFile) GetVCPPattern() (*Msg5, error) {
	if vf.VCP == nil {
		return nil, fmt.Errorf("archive2: no VCP available for this volume")
	}
	return vf.VCP, nil
}

// GetData returns physical moment values for the requested scans, gated
// to at most maxNGates range gates (0 means unlimited). When rawData is
// true the untouched uint16 values are returned instead of converting
// through scale/offset; sentinel raw values (0 = below threshold, 1 =
// range folded) always pass through unconverted as NaN in non-raw mode.
// When maxNGates > 0, every radial row in a scan is maxNGates wide: a
// radial missing the requested moment, or whose block carries fewer gates
// than maxNGates, is padded out with the range-folded sentinel so a scan's
// result is a rectangular [nradials x maxNGates] array. When maxNGates is
// 0, each row is as wide as its radial's block, and a radial missing the
// moment yields an empty row, so rows may differ in length.
func (vf *VolumeFile) GetData(moment string, maxNGates int, scans []int, rawData bool) ([][][]float64, error) {
	out := make([][][]float64, 0, len(scans))
	for _, s := range vf.resolveScans(scans) {
		if s < 0 || s >= len(vf.Scans) {
			out = append(out, nil)
			continue
		}
		var radials [][]float64
		for _, idx := range vf.Scans[s].Indices {
			r := vf.RadialRecords[idx]
			block := momentBlock(r, moment)

			width := maxNGates
			if width <= 0 && block != nil {
				width = len(block.Data)
			}
			gates := make([]float64, width)
			for i := range gates {
				gates[i] = sentinelGateValue(rawData)
			}

			if block != nil {
				n := len(block.Data)
				if maxNGates > 0 && maxNGates < n {
					n = maxNGates
				}
				for i := 0; i < n; i++ {
					raw := block.Data[i]
					if rawData {
						gates[i] = float64(raw)
						continue
					}
					gates[i] = convertGate(raw, block.Scale, block.Offset)
				}
			}
			radials = append(radials, gates)
		}
		out = append(out, radials)
	}
	return out, nil
}

// sentinelGateValue is the fill value for a gate beyond a moment block's
// actual data: the raw range-folded sentinel in raw mode, NaN once
// scale/offset-converted.
func sentinelGateValue(rawData bool) float64 {
	if rawData {
		return float64(rangeFoldedSentinel)
	}
	return math.NaN()
}

// convertGate applies the standard Level-II scale/offset conversion,
// masking the two sentinel raw values to NaN (spec.md §3).
func convertGate(raw uint16, scale, offset float32) float64 {
	if raw == belowThresholdSentinel || raw == rangeFoldedSentinel {
		return math.NaN()
	}
	if scale == 0 {
		return math.NaN()
	}
	return (float64(raw) - float64(offset)) / float64(scale)
}

func momentBlock(r *Record, moment string) *GenericDataBlock {
	switch {
	case r.Msg31 != nil:
		return r.Msg31.Moments[moment]
	case r.Msg1 != nil:
		return r.Msg1.Moments[moment]
	default:
		return nil
	}
}

func (vf *VolumeFile) perRadial(scans []int, f func(*Record) time.Time) [][]time.Time {
	out := make([][]time.Time, 0, len(scans))
	for _, s := range vf.resolveScans(scans) {
		if s < 0 || s >= len(vf.Scans) {
			out = append(out, nil)
			continue
		}
		vals := make([]time.Time, 0, len(vf.Scans[s].Indices))
		for _, idx := range vf.Scans[s].Indices {
			vals = append(vals, f(vf.RadialRecords[idx]))
		}
		out = append(out, vals)
	}
	return out
}

func (vf *VolumeFile) perRadialFloat(scans []int, f func(*Record) float64) [][]float64 {
	out := make([][]float64, 0, len(scans))
	for _, s := range vf.resolveScans(scans) {
		if s < 0 || s >= len(vf.Scans) {
			out = append(out, nil)
			continue
		}
		vals := make([]float64, 0, len(vf.Scans[s].Indices))
		for _, idx := range vf.Scans[s].Indices {
			vals = append(vals, f(vf.RadialRecords[idx]))
		}
		out = append(out, vals)
	}
	return out
}

func (vf *VolumeFile) perScanFirstFloat(scans []int, f func(*Record) float64) []float64 {
	out := make([]float64, 0, len(scans))
	for _, s := range vf.resolveScans(scans) {
		if s < 0 || s >= len(vf.Scans) || len(vf.Scans[s].Indices) == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, f(vf.RadialRecords[vf.Scans[s].Indices[0]]))
	}
	return out
}
