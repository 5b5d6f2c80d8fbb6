package archive2

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Msg5Header is the Volume Coverage Pattern header (User 3.2.4, Table XI).
type Msg5Header struct {
	MsgSize         uint16
	PatternType     uint16
	PatternNumber   uint16
	NumCuts         uint16
	ClutterMapGroup uint16
	DopplerVelRes   uint8
	PulseWidth      uint8
	Spare           [10]byte
}

var msg5HeaderSize = binary.Size(Msg5Header{})

// CutParameters describes one elevation cut within a VCP (User Table XI,
// continued).
type CutParameters struct {
	ElevationAngleRaw     uint16
	ChannelConfig         uint8
	WaveformType          uint8
	SuperResolution       uint8
	PRFNumber             uint8
	PRFPulseCount         uint16
	AzimuthRate           uint16
	RefThreshold          int16
	VelThreshold          int16
	SWThreshold           int16
	ZDRThreshold          int16
	PHIThreshold          int16
	RHOThreshold          int16
	EdgeAngle1            uint16
	DopplerPRFNumber1     uint16
	DopplerPRFPulseCount1 uint16
	Spare1                [2]byte
	EdgeAngle2            uint16
	DopplerPRFNumber2     uint16
	DopplerPRFPulseCount2 uint16
	Spare2                [2]byte
	EdgeAngle3            uint16
	DopplerPRFNumber3     uint16
	DopplerPRFPulseCount3 uint16
	Spare3                [2]byte
}

var cutParametersSize = binary.Size(CutParameters{})

// targetElevationScale converts the raw CODE2 elevation angle inside a
// MSG_5_ELEV cut to degrees (spec.md §3).
const targetElevationScale = 360.0 / 65536.0

// ElevationDegrees returns the target elevation angle for this cut in
// degrees.
func (c CutParameters) ElevationDegrees() float32 {
	return float32(c.ElevationAngleRaw) * targetElevationScale
}

// SuperResolutionEnabled reports whether this cut runs in super-resolution
// mode (flag value 7 or 11), which doubles the bzip2 stream consumption
// used by the minimal-metadata heuristic.
func (c CutParameters) SuperResolutionEnabled() bool {
	return c.SuperResolution == 7 || c.SuperResolution == 11
}

// Msg5 is the decoded VCP message: its header plus one CutParameters entry
// per elevation cut.
type Msg5 struct {
	Header        Msg5Header
	CutParameters []CutParameters
}

// decodeMsg5 decodes a type-5 message whose header starts at pos in buf. It
// returns a nil message and an error on truncation; the caller is expected
// to log warnIncompleteMessage5 and advance by RecordSize regardless.
func decodeMsg5(c *structCache, buf []byte, pos int) (*Msg5, error) {
	if pos+msg5HeaderSize > len(buf) {
		return nil, fmt.Errorf("archive2: truncated MSG_5 header")
	}
	raw := buf[pos : pos+msg5HeaderSize]
	header := unpackCached(c, "MSG_5", raw, func(raw []byte) Msg5Header {
		var h Msg5Header
		_ = binary.Read(bytes.NewReader(raw), binary.BigEndian, &h)
		return h
	})

	msg5 := &Msg5{Header: header}
	for i := 0; i < int(header.NumCuts); i++ {
		cutPos := pos + msg5HeaderSize + cutParametersSize*i
		if cutPos+cutParametersSize > len(buf) {
			return nil, fmt.Errorf("archive2: truncated MSG_5 cut parameters at index %d", i)
		}
		cutRaw := buf[cutPos : cutPos+cutParametersSize]
		cut := unpackCached(c, "MSG_5_ELEV", cutRaw, func(raw []byte) CutParameters {
			var cp CutParameters
			_ = binary.Read(bytes.NewReader(raw), binary.BigEndian, &cp)
			return cp
		})
		msg5.CutParameters = append(msg5.CutParameters, cut)
	}
	return msg5, nil
}
