package archive2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

var volumeHeaderSize = binary.Size(VolumeHeaderRecord{})

// openSource opens path, honoring the external-interface rule that a
// .gz-suffixed path is a gzip-compressed Level-II file and any other path
// is a raw file whose inner bzip2-vs-gzip framing is sniffed from the
// 12-byte compression record that follows the volume header (spec.md §6).
func (d *Decoder) openSource() error {
	f, err := os.Open(d.path)
	if err != nil {
		return err
	}
	d.file = f
	d.outerGzip = strings.HasSuffix(d.path, ".gz")

	var hdrReader io.Reader = f
	if d.outerGzip {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return fmt.Errorf("archive2: opening outer gzip container: %w", err)
		}
		d.outerGzipReader = gz
		hdrReader = gz
	}

	return d.readFromSource(hdrReader)
}

// readFromSource runs the shared volume-header-plus-compression-record
// parse against any reader, whether it came from a local file (openSource)
// or an in-memory buffer assembled from realtime S3 chunks (OpenBytes).
func (d *Decoder) readFromSource(hdrReader io.Reader) error {
	header := make([]byte, volumeHeaderSize+CompressionRecordSize)
	if _, err := io.ReadFull(hdrReader, header); err != nil {
		return fmt.Errorf("archive2: reading volume header: %w", err)
	}
	_ = binary.Read(bytes.NewReader(header[:volumeHeaderSize]), binary.BigEndian, &d.volumeHeader)

	compressionRecord := header[volumeHeaderSize:]
	ctmInfo := compressionRecord[ControlWordSize : ControlWordSize+2]
	if string(ctmInfo) == "BZ" {
		d.compression = "bzip2"
	} else {
		d.compression = "gzip"
	}

	if d.compression == "bzip2" {
		// Bzip2 sources need full random access to locate and re-read
		// individual streams, so the remainder is buffered in full.
		cbuf, err := io.ReadAll(hdrReader)
		if err != nil {
			return fmt.Errorf("archive2: reading bzip2 payload: %w", err)
		}
		d.cbuf = cbuf
		d.bzip2Starts = findBzip2StreamStarts(cbuf)
	} else {
		d.gzipSourceReader = hdrReader
	}
	return nil
}

// reopenIfNeeded satisfies the resource model in spec.md §5: bzip2 sources may be
// reopened automatically for a ranged read after being closed, because
// per-stream independence permits random access; a closed gzip source
// cannot be reused since its decompression state isn't checkpointed.
func (d *Decoder) reopenIfNeeded() error {
	if !d.closed {
		return nil
	}
	if d.compression != "bzip2" {
		return ErrGzipClosedReopen
	}
	return d.openSource()
}

// Close releases the decoder's underlying file handle. A bzip2 decoder may
// be reopened afterwards for further ranged reads; a gzip decoder may not.
func (d *Decoder) Close() error {
	d.closed = true
	if d.outerGzipReader != nil {
		d.outerGzipReader.Close()
	}
	if d.file != nil {
		return d.file.Close()
	}
	return nil
}
