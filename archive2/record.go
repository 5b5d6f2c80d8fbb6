package archive2

import (
	"bytes"
	"encoding/binary"

	"github.com/sirupsen/logrus"
)

var messageHeaderSize = binary.Size(MessageHeader{})

// Record is a single decoded message. Header is mandatory; at most one of
// Msg1/Msg5/Msg29/Msg31 is populated depending on Header.Type. StartPos is
// the record's byte offset within the buffer it was parsed from, or -1 for
// the empty-buffer placeholder record (spec.md §4.3).
type Record struct {
	Header   MessageHeader
	StartPos int
	Msg1     *Msg1
	Msg2     *Msg2
	Msg5     *Msg5
	Msg29    *Msg29
	Msg31    *Msg31
}

// placeholderRecord preserves one-to-one alignment between a caller's list
// of bzip2 stream indices and the parsed records when an individual
// stream's decompression failed (spec.md §4.3, §9 open question).
func placeholderRecord() *Record {
	return &Record{Header: MessageHeader{Type: 0}, StartPos: -1}
}

// parseRecord decodes the single record starting at pos in buf and returns
// the position of the next record. moments restricts which type-31/type-1
// moment blocks are attached; nil means all moments.
func parseRecord(c *structCache, buf []byte, pos int, moments map[string]bool) (*Record, int) {
	if pos+messageHeaderSize > len(buf) {
		return nil, len(buf)
	}
	raw := buf[pos : pos+messageHeaderSize]
	header := unpackCached(c, "MSG_HEADER", raw, func(raw []byte) MessageHeader {
		var h MessageHeader
		_ = binary.Read(bytes.NewReader(raw), binary.BigEndian, &h)
		return h
	})

	rec := &Record{Header: header, StartPos: pos}
	payloadStart := pos + messageHeaderSize

	switch header.Type {
	case MsgTypeDigitalRadarGeneric:
		size := int(header.Size)*2 - 4
		newPos := payloadStart + size
		m31, err := decodeMsg31(c, buf, payloadStart, size, moments)
		if err != nil {
			logrus.Warnf("archive2: MSG_31 decode error at pos %d: %v", pos, err)
		} else {
			rec.Msg31 = m31
		}
		return rec, newPos

	case MsgTypeRDAStatus:
		m2, err := decodeMsg2(c, buf, payloadStart)
		if err == nil && m2 != nil {
			rec.Msg2 = m2
		}
		return rec, pos + RecordSize

	case MsgTypeVolumeCoverage:
		m5, err := decodeMsg5(c, buf, payloadStart)
		if err != nil {
			logrus.Warn(warnIncompleteMessage5)
		} else {
			rec.Msg5 = m5
		}
		return rec, pos + RecordSize

	case MsgTypeOversized:
		m29 := decodeMsg29(header)
		rec.Msg29 = &m29
		logrus.Warn(warnUnknownMessageType29)
		return rec, payloadStart + m29.Size

	case MsgTypeDigitalRadarData:
		m1, err := decodeMsg1(c, buf, payloadStart, moments)
		if err != nil || m1 == nil {
			return rec, pos + RecordSize
		}
		rec.Msg1 = m1
		return rec, pos + RecordSize

	default:
		return rec, pos + RecordSize
	}
}

// recordHeaderAt decodes just the message header at pos, without decoding
// any payload.
func recordHeaderAt(buf []byte, pos int) (MessageHeader, bool) {
	if pos+messageHeaderSize > len(buf) {
		return MessageHeader{}, false
	}
	var h MessageHeader
	_ = binary.Read(bytes.NewReader(buf[pos:pos+messageHeaderSize]), binary.BigEndian, &h)
	return h, true
}

// scanRecordPositions walks buf applying the same type-specific advance
// rules as parseRecord, without decoding any message payload (no moment
// blocks, no VCP cuts). It is the cheap first pass decodeGzipMinMeta uses to
// build a record index before fully decoding only the sub-selected
// positions, rather than paying full per-record decode cost for the whole
// buffer.
func scanRecordPositions(buf []byte, bzip2 bool) []int {
	if len(buf) == 0 {
		return nil
	}
	pos := 0
	if bzip2 {
		pos = CompressionRecordSize
	}
	var positions []int
	for pos < len(buf) {
		header, ok := recordHeaderAt(buf, pos)
		if !ok {
			break
		}
		positions = append(positions, pos)

		payloadStart := pos + messageHeaderSize
		var newPos int
		switch header.Type {
		case MsgTypeDigitalRadarGeneric:
			newPos = payloadStart + int(header.Size)*2 - 4
		case MsgTypeOversized:
			newPos = payloadStart + header.OversizedSize()
		default:
			newPos = pos + RecordSize
		}
		if newPos <= pos {
			break
		}
		pos = newPos
	}
	return positions
}

// parseBuffer runs the full per-buffer loop described in spec.md §4.3: set
// the starting cursor based on container kind, then repeatedly parse a
// record and advance by its type-specific size rule until the buffer is
// exhausted. limit caps the number of records parsed from this buffer (0
// means unlimited); the bzip2 min-meta pass uses 1 to decode only the first
// record of each sampled stream.
func parseBuffer(c *structCache, buf []byte, bzip2 bool, moments map[string]bool, limit int) []*Record {
	if len(buf) == 0 {
		return []*Record{placeholderRecord()}
	}
	pos := 0
	if bzip2 {
		pos = CompressionRecordSize
	}
	var records []*Record
	for pos < len(buf) {
		rec, newPos := parseRecord(c, buf, pos, moments)
		if rec == nil {
			break
		}
		records = append(records, rec)
		if limit > 0 && len(records) >= limit {
			break
		}
		if newPos <= pos {
			break
		}
		pos = newPos
	}
	return records
}
