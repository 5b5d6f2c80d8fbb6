package archive2

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Msg31Header is the non-data portion of a type-31 message (User 3.2.4.17).
// Ten block pointers follow the named fields; a zero pointer means the
// block is absent.
type Msg31Header struct {
	RadarIdentifier       [4]byte
	CollectMs             uint32
	CollectDate           uint16
	AzimuthNumber         uint16
	AzimuthAngle          float32
	CompressionIndicator  uint8
	Spare                 uint8
	RadialLength          uint16
	AzimuthResolutionCode uint8
	RadialSpacingCode     uint8
	ElevationNumber       uint8
	CutSectorNumber       uint8
	ElevationAngle        float32
	RadialBlankingStatus  uint8
	AzimuthIndexingMode   int8
	DataBlockCount        uint16
	BlockPointers         [10]uint32
}

var msg31HeaderSize = binary.Size(Msg31Header{})

func (h Msg31Header) String() string {
	return fmt.Sprintf("Message 31 - %s @ %v az=%.2f elv=%.2f",
		string(h.RadarIdentifier[:]), h.Date(), h.AzimuthAngle, h.ElevationAngle)
}

// Date and time this radial was collected.
func (h Msg31Header) Date() time.Time {
	return time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC).
		Add(time.Duration(h.CollectDate) * time.Hour * 24).
		Add(time.Duration(h.CollectMs) * time.Millisecond)
}

// AzimuthResolutionSpacing returns the spacing in degrees between adjacent
// radials.
func (h Msg31Header) AzimuthResolutionSpacing() float32 {
	if h.AzimuthResolutionCode == 1 {
		return 0.5
	}
	return 1
}

// GenericDataBlock wraps a momentary data record: REF, VEL, SW, ZDR, PHI,
// RHO, or CFP (User 3.2.4.17.2).
type GenericDataBlock struct {
	NumberDataMomentGates         uint16
	DataMomentRange               int16
	DataMomentRangeSampleInterval int16
	TOVER                         int16
	SNRThreshold                  int16
	ControlFlags                  uint8
	DataWordSize                  uint8
	Scale                         float32
	Offset                        float32
	Data                          []uint16
}

type genericDataBlockWire struct {
	Reserved                      uint32
	NumberDataMomentGates         uint16
	DataMomentRange               int16
	DataMomentRangeSampleInterval int16
	TOVER                         int16
	SNRThreshold                  int16
	ControlFlags                  uint8
	DataWordSize                  uint8
	Scale                         float32
	Offset                        float32
}

var genericDataBlockWireSize = binary.Size(genericDataBlockWire{})

// VolumeDataBlock wraps information about the volume being extracted (User
// 3.2.4.17.3).
type VolumeDataBlock struct {
	LRTUP                         uint16
	VersionMajor                  uint8
	VersionMinor                  uint8
	Lat                           float32
	Lon                           float32
	Height                        int16
	FeedhornHeight                uint16
	CalibrationConstant           float32
	PowerHoriz                    float32
	PowerVert                     float32
	DifferentialReflectivityCalib float32
	InitialDifferentialPhase      float32
	VolumeCoveragePatternNumber   uint16
	ProcessingStatus              uint16
}

var volumeDataBlockSize = binary.Size(VolumeDataBlock{})

// ElevationDataBlock wraps type-31 elevation data (User 3.2.4.17.4).
type ElevationDataBlock struct {
	LRTUP      uint16
	Atmos      int16
	CalibConst float32
}

var elevationDataBlockSize = binary.Size(ElevationDataBlock{})

// RadialDataBlock wraps type-31 radial data (User 3.2.4.17.5).
type RadialDataBlock struct {
	LRTUP              uint16
	UnambiguousRange   int16
	NoiseLevelHoriz    float32
	NoiseLevelVert     float32
	NyquistVelocity    int16
	Spares             [2]byte
	CalibConstHorzChan float32
	CalibConstVertChan float32
}

var radialDataBlockSize = binary.Size(RadialDataBlock{})

// Msg31 is the modern "Digital Radar Data Generic Format" radial (User
// 3.2.4.17). Moments is keyed by tag ("REF", "VEL", ...); VOL/ELV/RAD are
// constant across a ray and carried as named fields.
type Msg31 struct {
	Header  Msg31Header
	Vol     *VolumeDataBlock
	Elv     *ElevationDataBlock
	Rad     *RadialDataBlock
	Moments map[string]*GenericDataBlock
}

// decodeMsg31 decodes a type-31 message whose payload occupies
// buf[pos:pos+size]. moments, if non-nil, restricts which generic data
// blocks are attached; tags not present are skipped entirely (their bytes
// are left unread).
func decodeMsg31(c *structCache, buf []byte, pos int, size int, moments map[string]bool) (*Msg31, error) {
	if pos+size > len(buf) {
		size = len(buf) - pos
	}
	mbuf := buf[pos : pos+size]
	if len(mbuf) < msg31HeaderSize {
		return nil, fmt.Errorf("archive2: truncated MSG_31 header")
	}
	header := unpackCached(c, "MSG_31", mbuf[:msg31HeaderSize], func(raw []byte) Msg31Header {
		var h Msg31Header
		_ = binary.Read(bytes.NewReader(raw), binary.BigEndian, &h)
		return h
	})

	m31 := &Msg31{Header: header, Moments: make(map[string]*GenericDataBlock)}
	for _, ptr32 := range header.BlockPointers {
		ptr := int(ptr32)
		if ptr <= 0 || ptr+4 > len(mbuf) {
			continue
		}
		tag := string(bytes.TrimRight(mbuf[ptr+1:ptr+4], " "))
		switch tag {
		case "VOL":
			if ptr+4+volumeDataBlockSize > len(mbuf) {
				continue
			}
			raw := mbuf[ptr+4 : ptr+4+volumeDataBlockSize]
			vol := unpackCached(c, "VOLUME_DATA_BLOCK", raw, func(raw []byte) VolumeDataBlock {
				var v VolumeDataBlock
				_ = binary.Read(bytes.NewReader(raw), binary.BigEndian, &v)
				return v
			})
			m31.Vol = &vol
		case "ELV":
			if ptr+4+elevationDataBlockSize > len(mbuf) {
				continue
			}
			raw := mbuf[ptr+4 : ptr+4+elevationDataBlockSize]
			elv := unpackCached(c, "ELEVATION_DATA_BLOCK", raw, func(raw []byte) ElevationDataBlock {
				var e ElevationDataBlock
				_ = binary.Read(bytes.NewReader(raw), binary.BigEndian, &e)
				return e
			})
			m31.Elv = &elv
		case "RAD":
			if ptr+4+radialDataBlockSize > len(mbuf) {
				continue
			}
			raw := mbuf[ptr+4 : ptr+4+radialDataBlockSize]
			rad := unpackCached(c, "RADIAL_DATA_BLOCK", raw, func(raw []byte) RadialDataBlock {
				var r RadialDataBlock
				_ = binary.Read(bytes.NewReader(raw), binary.BigEndian, &r)
				return r
			})
			m31.Rad = &rad
		case "REF", "VEL", "SW", "ZDR", "PHI", "RHO", "CFP":
			if moments != nil && !moments[tag] {
				continue
			}
			block, err := decodeGenericDataBlock(c, mbuf, ptr+4, tag)
			if err != nil {
				return nil, err
			}
			m31.Moments[tag] = block
		default:
			// unrecognized block tag, ignored per the dispatch table.
		}
	}
	return m31, nil
}

func decodeGenericDataBlock(c *structCache, buf []byte, pos int, tag string) (*GenericDataBlock, error) {
	if pos+genericDataBlockWireSize > len(buf) {
		return nil, fmt.Errorf("archive2: truncated %s data block", tag)
	}
	raw := buf[pos : pos+genericDataBlockWireSize]
	wire := unpackCached(c, "GENERIC_DATA_BLOCK:"+tag, raw, func(raw []byte) genericDataBlockWire {
		var w genericDataBlockWire
		_ = binary.Read(bytes.NewReader(raw), binary.BigEndian, &w)
		return w
	})

	ngates := int(wire.NumberDataMomentGates)
	wordSize := wire.DataWordSize
	if wordSize != 8 && wordSize != 16 {
		logrus.Warnf("%s (tag=%s, word_size=%d)", warnUnsupportedWordSize, tag, wordSize)
		wordSize = 8
	}

	dataStart := pos + genericDataBlockWireSize
	bytesPerGate := 1
	if wordSize == 16 {
		bytesPerGate = 2
	}
	if need := dataStart + ngates*bytesPerGate; need > len(buf) {
		ngates = max(0, (len(buf)-dataStart)/bytesPerGate)
	}

	data := make([]uint16, ngates)
	for i := 0; i < ngates; i++ {
		if bytesPerGate == 2 {
			data[i] = binary.BigEndian.Uint16(buf[dataStart+i*2 : dataStart+i*2+2])
		} else {
			data[i] = uint16(buf[dataStart+i])
		}
	}

	return &GenericDataBlock{
		NumberDataMomentGates:         uint16(len(data)),
		DataMomentRange:               wire.DataMomentRange,
		DataMomentRangeSampleInterval: wire.DataMomentRangeSampleInterval,
		TOVER:                         wire.TOVER,
		SNRThreshold:                  wire.SNRThreshold,
		ControlFlags:                  wire.ControlFlags,
		DataWordSize:                  wordSize,
		Scale:                         wire.Scale,
		Offset:                        wire.Offset,
		Data:                          data,
	}, nil
}
