// Package archive2 decodes NEXRAD (WSR-88D) Level-II archive files: a
// compressed, block-structured binary stream containing a volume of radar
// sweeps, each a sequence of radial rays carrying one or more moments
// (reflectivity, velocity, spectrum width, differential reflectivity,
// differential phase, correlation coefficient, clutter filter power
// removed).
//
// The documents used and referenced in this package:
//  • RDA/RPG: https://www.roc.noaa.gov/wsr88d/PublicDocs/ICDs/2620002T.pdf (high level details)
//  • User: https://www.roc.noaa.gov/wsr88d/PublicDocs/ICDs/2620010H.pdf (bulk of the format)
package archive2

import "time"

const (
	// RecordSize is the fixed on-disk size of a type-1/type-5/unknown
	// record; the cursor always advances to the next RecordSize boundary
	// for these message types (User 3.2.1).
	RecordSize = 2432

	// CompressionRecordSize is the size of the control/compression record
	// that precedes every bzip2-compressed block (RDA/RPG 7.3.4).
	CompressionRecordSize = 12

	// ControlWordSize is the size of the CTM control word at the front of
	// the compression record.
	ControlWordSize = 4
)

// Message types this decoder dispatches on; anything else advances the
// cursor by RecordSize without being decoded.
const (
	MsgTypeRDAStatus           = 2
	MsgTypeDigitalRadarData    = 1
	MsgTypeVolumeCoverage      = 5
	MsgTypeOversized           = 29
	MsgTypeDigitalRadarGeneric = 31
)

// MomentTags lists the seven NEXRAD moments a type-31 generic data block may
// carry.
var MomentTags = [7]string{"REF", "VEL", "SW", "ZDR", "PHI", "RHO", "CFP"}

// VolumeHeaderRecord for NEXRAD Archive II Data Streams (RDA/RPG 7.3.3)
type VolumeHeaderRecord struct {
	TapeFilename    [9]byte // eg "AR2V0006"
	ExtensionNumber [3]byte // eg "001" (cycles through 0-999)
	ModifiedDate    int32   // data's valid date (julian day since 1970)
	ModifiedTime    int32   // data's valid time (milliseconds past midnight)
	ICAO            [4]byte // radar identifier
}

// Filename for this archive file.
func (vh VolumeHeaderRecord) Filename() string {
	return string(vh.TapeFilename[:]) + string(vh.ExtensionNumber[:])
}

// Date and time this data is valid for.
func (vh VolumeHeaderRecord) Date() time.Time {
	return time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(vh.ModifiedDate) * time.Hour * 24).
		Add(time.Duration(vh.ModifiedTime) * time.Millisecond)
}

// MessageHeader provides a high level description of a particular message
// (User 3.2.4.1). It precedes every message regardless of type.
type MessageHeader struct {
	Size     uint16
	Channel  uint8
	Type     uint8
	Sequence uint16
	Date     uint16
	Millis   uint32
	Segments uint16
	SegNum   uint16
}

// OversizedSize returns the message's true payload size, accounting for the
// message-29 oversized-record escape: size == 65535 signals that the real
// size is packed across the segments/seg_num fields instead.
func (h MessageHeader) OversizedSize() int {
	if h.Size != 65535 {
		return int(h.Size)
	}
	return int(h.Segments)<<16 | int(h.SegNum)
}
