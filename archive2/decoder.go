package archive2

import (
	"bytes"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

// ReadMode selects how much of a volume gets decompressed and how its
// scan metadata is discovered (spec.md §4.6, §6).
type ReadMode int

const (
	// ReadAll decompresses and parses the entire volume.
	ReadAll ReadMode = iota
	// ReadAllMeta decompresses the entire volume but additionally
	// computes per-scan byte ranges for later ranged re-reads.
	ReadAllMeta
	// ReadMinMeta decompresses only the minimum needed to discover scan
	// metadata, falling back to ReadAllMeta on a failed validity check.
	ReadMinMeta
	// ReadRanges decompresses only the caller-supplied byte ranges.
	ReadRanges
)

// ByteRange is a half-open [Start, End) byte range: within the compressed
// source for bzip2, within the decompressed buffer for gzip. End < 0 means
// "to the end of this stream/source".
type ByteRange struct {
	Start int64
	End   int64
}

// Config governs a single decode call.
type Config struct {
	Mode   ReadMode
	Ranges []ByteRange // only used when Mode == ReadRanges
	// Moments restricts which of REF/VEL/SW/ZDR/PHI/RHO/CFP are decoded.
	// Nil means all moments.
	Moments map[string]bool
}

// Scan is a contiguous run of radial records sharing one elevation number,
// represented by the sorted list of indices into VolumeFile.RadialRecords
// belonging to it.
type Scan struct {
	Indices []int
}

// VolumeFile is the top-level decoded unit (spec.md §3).
type VolumeFile struct {
	Compression   string
	VolumeHeader  VolumeHeaderRecord
	Records       []*Record
	RadialRecords []*Record
	MsgType       int
	Scans         []Scan
	VCP           *Msg5

	// ScanStartEndPos holds, for ReadAllMeta/ReadMinMeta decodes, the
	// [start,end) byte range (compressed-source offsets for bzip2,
	// decompressed-buffer offsets for gzip) that reproduces each scan on a
	// later ranged decode. End == nil for the final scan.
	ScanStartEndPos []ScanRange
}

// ScanRange is one entry of VolumeFile.ScanStartEndPos.
type ScanRange struct {
	Start int64
	End   *int64
}

// Decoder owns the compressed bytes and the per-instance caches described
// in spec.md §5: a decompressed-buffer cache keyed by requested range and
// the structure-codec memoization cache. Neither is safe for concurrent
// use; decode the same file from multiple goroutines with one Decoder
// instance each.
type Decoder struct {
	path string

	file             io.ReadCloser
	outerGzip        bool
	outerGzipReader  io.ReadCloser
	gzipSourceReader io.Reader
	closed           bool

	compression  string // "bzip2" | "gzip"
	volumeHeader VolumeHeaderRecord

	cbuf            []byte
	bzip2Starts     []int
	bzip2DecompOffs []int // decompressed-buffer offset at which each stream's bytes begin

	gzipBuf []byte // accumulated decompressed bytes for the inner-gzip path

	rangeCache map[string][]byte
	codec      *structCache
}

// Open prepares a decoder for path without decoding any records yet. Call
// Decode to produce a VolumeFile.
func Open(path string) (*Decoder, error) {
	d := &Decoder{
		path:       path,
		rangeCache: make(map[string][]byte),
		codec:      newStructCache(),
	}
	if err := d.openSource(); err != nil {
		return nil, err
	}
	return d, nil
}

// OpenBytes builds a decoder from an already-assembled in-memory volume,
// e.g. a realtime volume's header chunk concatenated with its data chunks
// (internal/s3source). It cannot be reopened once closed: there is no
// backing path to reread from.
func OpenBytes(data []byte) (*Decoder, error) {
	d := &Decoder{
		path:       "<memory>",
		rangeCache: make(map[string][]byte),
		codec:      newStructCache(),
		closed:     true, // reopenIfNeeded must always fail: no path to reopen
	}
	if err := d.readFromSource(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	d.closed = false
	return d, nil
}

// Decode runs a single decode pass per cfg and returns the resulting
// volume. It is re-entrant: a bzip2 Decoder may be Decode'd repeatedly
// (e.g. ReadRanges after an initial ReadAllMeta) sharing the same
// compressed bytes and caches.
func (d *Decoder) Decode(cfg Config) (*VolumeFile, error) {
	if err := d.reopenIfNeeded(); err != nil {
		return nil, err
	}

	vf := &VolumeFile{
		Compression:  d.compression,
		VolumeHeader: d.volumeHeader,
	}

	switch cfg.Mode {
	case ReadAll:
		if err := d.decodeAll(vf, cfg, false); err != nil {
			return nil, err
		}
	case ReadAllMeta:
		if err := d.decodeAll(vf, cfg, true); err != nil {
			return nil, err
		}
	case ReadMinMeta:
		ok, err := d.decodeMinMeta(vf, cfg)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Validity check failed; recover by fully re-decoding in
			// metadata mode, per spec.md §5 ("recursively invoking
			// itself in full-metadata mode on the same stream").
			*vf = VolumeFile{Compression: d.compression, VolumeHeader: d.volumeHeader}
			if err := d.decodeAll(vf, cfg, true); err != nil {
				return nil, err
			}
		}
	case ReadRanges:
		if err := d.decodeRanges(vf, cfg); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnknownReadMode
	}

	return vf, nil
}

// decodeAll decompresses the whole volume (full or metadata mode) and
// finishes scan grouping.
func (d *Decoder) decodeAll(vf *VolumeFile, cfg Config, meta bool) error {
	var records []*Record
	var streamOf []int // stays nil: StartPos values here are decompressed offsets, resolved via streamForOffset

	if d.compression == "bzip2" {
		buf, err := d.cachedBzip2Full()
		if err != nil {
			return err
		}
		records = parseBuffer(d.codec, buf, true, cfg.Moments, 0)
	} else {
		buf, err := d.cachedGzipFull()
		if err != nil {
			return err
		}
		records = parseBuffer(d.codec, buf, false, cfg.Moments, 0)
	}

	return d.finishDecode(vf, records, streamOf, cfg, meta, "all")
}

// decodeRanges decompresses exactly the caller-supplied byte ranges and
// concatenates their records.
func (d *Decoder) decodeRanges(vf *VolumeFile, cfg Config) error {
	var all []*Record
	for _, rg := range cfg.Ranges {
		buf, err := d.cachedRange(rg)
		if err != nil {
			return err
		}
		all = append(all, parseBuffer(d.codec, buf, d.compression == "bzip2", cfg.Moments, 0)...)
	}
	return d.finishDecode(vf, all, nil, cfg, false, "ranges")
}

// finishDecode runs the message-type vote, radial filter, scan grouping,
// and (in metadata modes) the corruption repair + byte-range computation
// shared by every read mode.
func (d *Decoder) finishDecode(vf *VolumeFile, records []*Record, streamOf []int, cfg Config, meta bool, mode string) error {
	vf.Records = records

	counts := map[int]int{MsgTypeDigitalRadarData: 0, MsgTypeDigitalRadarGeneric: 0}
	for _, r := range records {
		if _, ok := counts[int(r.Header.Type)]; ok {
			counts[int(r.Header.Type)]++
		}
	}
	msgType := MsgTypeDigitalRadarGeneric
	if counts[MsgTypeDigitalRadarData] > counts[MsgTypeDigitalRadarGeneric] {
		msgType = MsgTypeDigitalRadarData
	}
	vf.MsgType = msgType

	var radialStartPos []int
	for i, r := range records {
		if int(r.Header.Type) != msgType {
			continue
		}
		vf.RadialRecords = append(vf.RadialRecords, r)
		if streamOf != nil {
			radialStartPos = append(radialStartPos, streamOf[i])
		} else {
			radialStartPos = append(radialStartPos, r.StartPos)
		}
	}
	if len(vf.RadialRecords) == 0 {
		return ErrNoRadialsFound
	}

	vf.Scans = groupScans(vf.RadialRecords)

	if meta {
		repairConcatenatedVolumes(vf.Scans)
		ranges, err := d.computeScanRanges(vf, radialStartPos, mode == "min-meta")
		if err != nil {
			return err
		}
		vf.ScanStartEndPos = ranges
	}

	if vf.VCP == nil {
		for _, r := range records {
			if r.Header.Type == MsgTypeVolumeCoverage && r.Msg5 != nil {
				vf.VCP = r.Msg5
				break
			}
		}
		if vf.VCP == nil {
			logrus.Warn(warnMissingVCP)
		}
	}
	return nil
}

// cachedBzip2Full returns (and caches) the full decompression of every
// bzip2 stream in this source.
func (d *Decoder) cachedBzip2Full() ([]byte, error) {
	const key = "bzip2:all"
	if buf, ok := d.rangeCache[key]; ok {
		return buf, nil
	}
	buf, offs, err := decompressBzip2Full(d.cbuf, d.bzip2Starts)
	if err != nil {
		return nil, err
	}
	d.bzip2DecompOffs = offs
	d.rangeCache[key] = buf
	return buf, nil
}

// streamForOffset returns the index of the bzip2 stream whose decompressed
// contribution contains decompOffset.
func (d *Decoder) streamForOffset(decompOffset int) int {
	stream := 0
	for i, off := range d.bzip2DecompOffs {
		if off <= decompOffset {
			stream = i
		} else {
			break
		}
	}
	return stream
}

// compressedRangeForStreams returns the [start,end) compressed byte range
// in d.cbuf spanning bzip2 streams [lo,hi].
func (d *Decoder) compressedRangeForStreams(lo, hi int) ByteRange {
	start := int64(d.bzip2Starts[lo])
	end := int64(len(d.cbuf))
	if hi+1 < len(d.bzip2Starts) {
		end = int64(d.bzip2Starts[hi+1])
	}
	return ByteRange{Start: start, End: end}
}

// cachedGzipFull returns (and caches) the full decompression of the inner
// gzip source.
func (d *Decoder) cachedGzipFull() ([]byte, error) {
	const key = "gzip:all"
	if buf, ok := d.rangeCache[key]; ok {
		return buf, nil
	}
	if len(d.gzipBuf) == 0 {
		buf, err := decompressGzipPrefix(d.gzipSourceReader, 0)
		if err != nil {
			return nil, err
		}
		d.gzipBuf = buf
	}
	d.rangeCache[key] = d.gzipBuf
	return d.gzipBuf, nil
}

// cachedRange returns the decompressed bytes for one caller-supplied byte
// range, consulting and populating the range cache.
func (d *Decoder) cachedRange(rg ByteRange) ([]byte, error) {
	key := fmt.Sprintf("range:%d:%d", rg.Start, rg.End)
	if buf, ok := d.rangeCache[key]; ok {
		return buf, nil
	}
	var buf []byte
	var err error
	if d.compression == "bzip2" {
		end := rg.End
		if end < 0 {
			end = int64(len(d.cbuf))
		}
		slice := d.cbuf[rg.Start:end]
		buf, _, err = decompressBzip2Full(slice, findBzip2StreamStarts(slice))
	} else {
		buf, err = d.cachedGzipFull()
		if err == nil {
			end := rg.End
			if end < 0 || end > int64(len(buf)) {
				end = int64(len(buf))
			}
			start := rg.Start
			if start > int64(len(buf)) {
				start = int64(len(buf))
			}
			buf = buf[start:end]
		}
	}
	if err != nil {
		return nil, err
	}
	d.rangeCache[key] = buf
	return buf, nil
}
