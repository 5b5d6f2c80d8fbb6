package archive2

import (
	"bytes"
	"encoding/binary"
)

// Msg2 is the RDA Status Data message (User 3.2.4.6). It isn't part of the
// radial/scan query surface; it's decoded so callers inspecting Record can
// read the RDA's build number and operability without special-casing the
// message type, the same way the archive surfaces MSG_5.
type Msg2 struct {
	RDAStatus                       uint16
	OperabilityStatus               uint16
	ControlStatus                   uint16
	AuxPowerGeneratorState          uint16
	AvgTxPower                      uint16
	HorizRefCalibCorr               uint16
	DataTxEnabled                   uint16
	VolumeCoveragePatternNum        uint16
	RDAControlAuth                  uint16
	RDABuild                        uint16
	OperationalMode                 uint16
	SuperResStatus                  uint16
	ClutterMitigationDecisionStatus uint16
	AvsetStatus                     uint16
	RDAAlarmSummary                 uint16
	CommandAck                      uint16
	ChannelControlStatus            uint16
	SpotBlankingStatus              uint16
	BypassMapGenDate                uint16
	BypassMapGenTime                uint16
	ClutterFilterMapGenDate         uint16
	ClutterFilterMapGenTime         uint16
	VertRefCalibCorr                uint16
	TransitionPwrSourceStatus       uint16
	RMSControlStatus                uint16
	PerformanceCheckStatus          uint16
	AlarmCodes                      uint16
	Spares                          [20]byte
}

var msg2Size = binary.Size(Msg2{})

// BuildNumber returns RDABuild as the RDA software build number, e.g.
// 19.00. The field is stored as build*100.
func (m Msg2) BuildNumber() float64 {
	return float64(m.RDABuild) / 100.0
}

func decodeMsg2(c *structCache, buf []byte, pos int) (*Msg2, error) {
	if pos+msg2Size > len(buf) {
		return nil, nil
	}
	raw := buf[pos : pos+msg2Size]
	m2 := unpackCached(c, "MSG_2", raw, func(raw []byte) Msg2 {
		var m Msg2
		_ = binary.Read(bytes.NewReader(raw), binary.BigEndian, &m)
		return m
	})
	return &m2, nil
}
