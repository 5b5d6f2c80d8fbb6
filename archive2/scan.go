package archive2

import "github.com/sirupsen/logrus"

// elevationNumber returns the radial's elevation-cut number, read from
// whichever of Msg31/Msg1 is populated.
func elevationNumber(r *Record) int {
	switch {
	case r.Msg31 != nil:
		return int(r.Msg31.Header.ElevationNumber)
	case r.Msg1 != nil:
		return int(r.Msg1.Header.ElevationNumber)
	default:
		return -1
	}
}

// azimuthNumber returns the radial's one-based azimuth index within its
// scan, read from whichever of Msg31/Msg1 is populated.
func azimuthNumber(r *Record) int {
	switch {
	case r.Msg31 != nil:
		return int(r.Msg31.Header.AzimuthNumber)
	case r.Msg1 != nil:
		return int(r.Msg1.Header.AzimuthNumber)
	default:
		return 0
	}
}

// groupScans buckets radial indices by elevation number, preserving the
// order in which each elevation number was first seen. A well-formed
// volume produces one contiguous index run per bucket; repairConcatenatedVolumes
// handles the corrupted case where it doesn't.
func groupScans(radials []*Record) []Scan {
	order := []int{}
	buckets := map[int][]int{}
	for i, r := range radials {
		elv := elevationNumber(r)
		if _, ok := buckets[elv]; !ok {
			order = append(order, elv)
		}
		buckets[elv] = append(buckets[elv], i)
	}
	scans := make([]Scan, 0, len(order))
	for _, elv := range order {
		scans = append(scans, Scan{Indices: buckets[elv]})
	}
	return scans
}

// repairConcatenatedVolumes rewrites each scan in place to keep only the
// longest run of consecutive indices, preferring the trailing run on a
// tie. Concatenated or otherwise corrupted volumes can interleave radials
// from an earlier cut of the same elevation number into a later one; the
// trailing run is the one that actually belongs with the rest of the
// volume's scan sequence.
func repairConcatenatedVolumes(scans []Scan) {
	for i, scan := range scans {
		runs := consecutiveRuns(scan.Indices)
		if len(runs) <= 1 {
			continue
		}
		logrus.Warn(warnCorruptedConcat)
		best := runs[0]
		for _, run := range runs[1:] {
			if len(run) >= len(best) {
				best = run
			}
		}
		scans[i].Indices = best
	}
}

// consecutiveRuns splits a sorted slice of ints into maximal runs of
// consecutive values.
func consecutiveRuns(indices []int) [][]int {
	if len(indices) == 0 {
		return nil
	}
	var runs [][]int
	start := 0
	for i := 1; i <= len(indices); i++ {
		if i == len(indices) || indices[i] != indices[i-1]+1 {
			runs = append(runs, indices[start:i])
			start = i
		}
	}
	return runs
}

// computeScanRanges derives the compressed-source byte range that
// reproduces each scan, differing by container kind: bzip2 ranges are
// expressed in whole streams (a scan's radials may span more than one
// stream), gzip ranges are raw decompressed-buffer offsets. radialStartPos
// holds, per radial record in the same order as VolumeFile.RadialRecords,
// the position to resolve: a decompressed-buffer offset for gzip and for
// full-meta bzip2 (resolved to a stream index via streamForOffset), or a
// stream index already for min-meta bzip2.
func (d *Decoder) computeScanRanges(vf *VolumeFile, radialStartPos []int, minMeta bool) ([]ScanRange, error) {
	ranges := make([]ScanRange, len(vf.Scans))

	if d.compression == "bzip2" {
		// In min-meta mode radialStartPos already holds stream indices
		// (parseBuffer never saw the concatenated full-decompression
		// buffer, so there is no decompressed offset to resolve);
		// in full-meta mode it holds decompressed-buffer offsets that
		// must be mapped back to a stream via streamForOffset.
		streamIndex := func(v int) int {
			if minMeta {
				return v
			}
			return d.streamForOffset(v)
		}
		for i, scan := range vf.Scans {
			if len(scan.Indices) == 0 {
				continue
			}
			firstStream := streamIndex(radialStartPos[scan.Indices[0]])
			lastStream := streamIndex(radialStartPos[scan.Indices[len(scan.Indices)-1]])
			// Min-meta samples one stream per scan, so the scan runs up to
			// the stream before the next scan's sampled stream.
			if minMeta && i+1 < len(vf.Scans) && len(vf.Scans[i+1].Indices) > 0 {
				if next := streamIndex(radialStartPos[vf.Scans[i+1].Indices[0]]); next > lastStream {
					lastStream = next - 1
				}
			}
			rg := d.compressedRangeForStreams(firstStream, lastStream)
			end := rg.End
			ranges[i] = ScanRange{Start: rg.Start, End: &end}
		}
	} else {
		for i, scan := range vf.Scans {
			if len(scan.Indices) == 0 {
				continue
			}
			start := int64(radialStartPos[scan.Indices[0]])
			var end *int64
			if i+1 < len(vf.Scans) && len(vf.Scans[i+1].Indices) > 0 {
				e := int64(radialStartPos[vf.Scans[i+1].Indices[0]])
				end = &e
			}
			ranges[i] = ScanRange{Start: start, End: end}
		}
	}

	if len(ranges) > 0 {
		ranges[len(ranges)-1].End = nil
	}
	return ranges, nil
}

// decodeMinMeta implements the minimal-metadata discovery heuristic
// (spec.md §5): rather than decompressing every byte, it predicts which
// bzip2 stream (or, for gzip, which record stride) carries each scan's
// first radial, using the VCP's per-cut super-resolution flag when a VCP
// is available and a fixed stride otherwise (the TDWR fallback). The
// result is validated by decoding those predicted positions; a caller
// receiving ok == false should fall back to full-metadata mode.
func (d *Decoder) decodeMinMeta(vf *VolumeFile, cfg Config) (bool, error) {
	if d.compression != "bzip2" {
		return d.decodeGzipMinMeta(vf, cfg)
	}

	// Stream 0 always carries the volume header message and, when
	// present, the VCP (MSG_5).
	firstBuf, _, err := decompressBzip2Full(d.cbuf, d.bzip2Starts[:1])
	if err != nil {
		return false, err
	}
	d.bzip2DecompOffs = []int{0}
	firstRecords := parseBuffer(d.codec, firstBuf, true, cfg.Moments, 0)

	var vcp *Msg5
	for _, r := range firstRecords {
		if r.Header.Type == MsgTypeVolumeCoverage && r.Msg5 != nil {
			vcp = r.Msg5
			break
		}
	}

	predicted := predictStreamIndices(vcp, len(d.bzip2Starts))
	if len(predicted) == 0 {
		return false, nil
	}

	bufs := decompressBzip2Ranged(d.cbuf, d.bzip2Starts, predicted, minMetaStreamLength)
	records := make([]*Record, 0, len(firstRecords)+len(bufs))
	streamOf := make([]int, 0, len(firstRecords)+len(bufs))
	for range firstRecords {
		streamOf = append(streamOf, 0)
	}
	records = append(records, firstRecords...)
	for i, buf := range bufs {
		recs := parseBuffer(d.codec, buf, true, cfg.Moments, 1)
		if radBlockMissing(recs) {
			// The predicted stream's RAD block fell past the default
			// prefix length; retry that stream alone at a larger length
			// rather than letting the whole prediction fail.
			if retried := decompressBzip2Ranged(d.cbuf, d.bzip2Starts, predicted[i:i+1], minMetaStreamRetryLength); len(retried) == 1 {
				recs = parseBuffer(d.codec, retried[0], true, cfg.Moments, 1)
			}
		}
		for range recs {
			streamOf = append(streamOf, predicted[i])
		}
		records = append(records, recs...)
	}

	if err := d.finishDecode(vf, records, streamOf, cfg, true, "min-meta"); err != nil {
		if err == ErrNoRadialsFound {
			return false, nil
		}
		return false, err
	}

	// Validity check: every predicted stream must actually have picked up
	// a radial of its own scan, so there is exactly one scan per prediction.
	if len(vf.Scans) != len(predicted) {
		return false, nil
	}
	for _, scan := range vf.Scans {
		if len(scan.Indices) == 0 {
			return false, nil
		}
	}
	vf.VCP = vcp
	return true, nil
}

// minMetaStreamLength is the default prefix length read from each predicted
// bzip2 stream (spec.md §5); minMetaStreamRetryLength is the fallback length
// used when that prefix didn't reach the stream's RAD block.
const (
	minMetaStreamLength      = 300
	minMetaStreamRetryLength = 10000
)

// radBlockMissing reports whether any type-31 record in recs decoded
// without finding its RAD block, meaning the decompressed prefix read for
// its stream was too short.
func radBlockMissing(recs []*Record) bool {
	for _, r := range recs {
		if r.Msg31 != nil && r.Msg31.Rad == nil {
			return true
		}
	}
	return false
}

// predictStreamIndices predicts, for each scan, the bzip2 stream index
// carrying its first radial. With a VCP available this walks the cut list
// consuming 6 streams per super-resolution cut and 3 otherwise (spec.md
// §5); without one (TDWR volumes omit MSG_5) it falls back to a fixed
// stride of 3 starting at stream index 2.
func predictStreamIndices(vcp *Msg5, numStreams int) []int {
	var indices []int
	if vcp != nil && len(vcp.CutParameters) > 0 {
		stream := 1
		for _, cut := range vcp.CutParameters {
			if stream >= numStreams {
				break
			}
			indices = append(indices, stream)
			if cut.SuperResolutionEnabled() {
				stream += 6
			} else {
				stream += 3
			}
		}
		return indices
	}
	for s := 2; s < numStreams; s += 3 {
		indices = append(indices, s)
	}
	return indices
}

// decodeGzipMinMeta implements the gzip analogue of the minimal-metadata
// heuristic: a cheap boundary-only pass locates every record's position
// without decoding its payload, then every 30th record is fully decoded,
// backing off by azimuth_number-1 records when a sample lands mid-scan
// (spec.md §5). This avoids paying the full per-record moment-block decode
// cost for the whole buffer, which would defeat the point of min-meta mode.
func (d *Decoder) decodeGzipMinMeta(vf *VolumeFile, cfg Config) (bool, error) {
	buf, err := d.cachedGzipFull()
	if err != nil {
		return false, err
	}
	const stride = 30
	positions := scanRecordPositions(buf, false)
	if len(positions) == 0 {
		return false, nil
	}

	sampled := make([]*Record, 0, len(positions)/stride+1)
	for i := 0; i < len(positions); i += stride {
		idx := i
		rec, _ := parseRecord(d.codec, buf, positions[idx], cfg.Moments)
		if rec == nil {
			continue
		}
		if back := azimuthNumber(rec) - 1; back > 0 && idx-back >= 0 {
			idx -= back
			rec, _ = parseRecord(d.codec, buf, positions[idx], cfg.Moments)
			if rec == nil {
				continue
			}
		}
		sampled = append(sampled, rec)
	}
	if err := d.finishDecode(vf, sampled, nil, cfg, true, "min-meta"); err != nil {
		if err == ErrNoRadialsFound {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
