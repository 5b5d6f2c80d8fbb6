package archive2

import (
	"bytes"
	"io"

	"github.com/dsnet/compress/bzip2"
	"github.com/klauspost/compress/gzip"
	"github.com/sirupsen/logrus"
)

// bzip2FileMagic and bzip2CompressedMagic are the byte patterns that mark
// the start of an independent bzip2 stream: "BZh" followed by a block-size
// digit, then the six-byte block magic "1AY&SY", whose "AY&SY" tail is
// matched at offset 5 (spec.md §4.1).
var (
	bzip2FileMagic       = []byte("BZh")
	bzip2CompressedMagic = []byte("AY&SY")
)

// minBzip2StreamGap is the minimum distance from a stream start to the next
// one for the earlier start to be kept; a start followed by a smaller gap is
// a decoder artifact and is dropped, since it would otherwise perturb the
// metadata heuristic.
const minBzip2StreamGap = 1000

// findBzip2StreamStarts scans cbuf for every position that looks like the
// start of an independent bzip2 stream and discards undersized ones.
func findBzip2StreamStarts(cbuf []byte) []int {
	var starts []int
	for pos := 0; pos+11 <= len(cbuf); {
		idx := bytes.Index(cbuf[pos:], bzip2FileMagic)
		if idx < 0 {
			break
		}
		pos += idx
		if pos+11 <= len(cbuf) && bytes.Equal(cbuf[pos+5:pos+10], bzip2CompressedMagic) {
			starts = append(starts, pos)
		}
		pos += 3
	}

	var kept []int
	for i, s := range starts {
		if i+1 < len(starts) && starts[i+1]-s < minBzip2StreamGap {
			continue
		}
		kept = append(kept, s)
	}
	return kept
}

// decompressBzip2Full decompresses every discovered stream and concatenates
// the results, returning the decompressed-buffer offset at which each
// stream's contribution begins alongside the combined buffer. The streams
// are independent, so decompressing them one at a time and joining the
// plaintext is equivalent to (and, unlike joining the compressed bytes
// first, lets the caller map a decompressed offset back to its stream).
func decompressBzip2Full(cbuf []byte, starts []int) ([]byte, []int, error) {
	if len(starts) == 0 {
		return nil, nil, nil
	}
	var out bytes.Buffer
	offsets := make([]int, len(starts))
	for i, s := range starts {
		offsets[i] = out.Len()
		end := len(cbuf)
		if i+1 < len(starts) {
			end = starts[i+1] - 4
		}
		r, err := bzip2.NewReader(bytes.NewReader(cbuf[s:end]), nil)
		if err != nil {
			logrus.Warn(warnBzipStreamDecode)
			continue
		}
		_, err = io.Copy(&out, r)
		r.Close()
		if err != nil {
			logrus.Warn(warnBzipStreamDecode)
		}
	}
	return out.Bytes(), offsets, nil
}

// decompressBzip2Ranged decompresses, for each requested stream index, the
// prefix of that stream bounded by maxLength bytes. Stream 0 is always
// decompressed in full regardless of maxLength, since it carries VCP
// metadata. A decompression error on an individual stream yields an empty
// buffer for that stream rather than aborting the whole call.
func decompressBzip2Ranged(cbuf []byte, starts []int, indices []int, maxLength int) [][]byte {
	out := make([][]byte, len(indices))
	for pos, i := range indices {
		if i < 0 || i >= len(starts) {
			out[pos] = nil
			continue
		}
		start := starts[i]
		end := len(cbuf)
		if i+1 < len(starts) {
			end = starts[i+1] - 4
		}
		r, err := bzip2.NewReader(bytes.NewReader(cbuf[start:end]), nil)
		if err != nil {
			logrus.Warn(warnBzipStreamDecode)
			out[pos] = nil
			continue
		}
		var buf []byte
		if i == 0 {
			buf, err = io.ReadAll(r)
		} else {
			buf = make([]byte, maxLength)
			n, rerr := io.ReadFull(r, buf)
			buf = buf[:n]
			if rerr == io.ErrUnexpectedEOF || rerr == io.EOF {
				err = nil
			} else {
				err = rerr
			}
		}
		r.Close()
		if err != nil {
			logrus.Warn(warnBzipStreamDecode)
			out[pos] = nil
			continue
		}
		out[pos] = buf
	}
	return out
}

// decompressGzipPrefix decompresses the first n bytes (or everything, when
// n <= 0) of a gzip-compressed source.
func decompressGzipPrefix(r io.Reader, n int) ([]byte, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}
	defer gz.Close()
	if n <= 0 {
		return io.ReadAll(gz)
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(gz, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil
	}
	return buf[:read], err
}
