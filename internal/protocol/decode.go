package protocol

// DecodeState parses a state-query response: [0x04] [0x08] [power] [mode]
// [brightness] [R] [G] [B] [cool] [warm]. Notifications arrive with the same
// [0xA5][seq] framing as outbound packets; the prefix is stripped before the
// opcode check. The opcode byte is never 0xA5, so the strip is unambiguous.
// The response channel order places cool white before warm white, matching
// the outbound color command.
//
// Frames that don't carry the state opcode or are shorter than the declared
// length are unrelated traffic: DecodeState reports ok=false and the caller
// ignores them rather than treating them as errors.
func DecodeState(data []byte) (DeviceState, bool) {
	if len(data) >= 2 && data[0] == PacketHeader {
		data = data[2:]
	}
	if len(data) < 2+respStateLen {
		return DeviceState{}, false
	}
	if data[0] != RespState || data[1] < respStateLen {
		return DeviceState{}, false
	}
	return DeviceState{
		Power:      data[2] == powerOn,
		Mode:       Mode(data[3]),
		Brightness: int(data[4]),
		Color: Color{
			R:         int(data[5]),
			G:         int(data[6]),
			B:         int(data[7]),
			CoolWhite: int(data[8]),
			WarmWhite: int(data[9]),
		},
	}, true
}

// UnknownState is the defined degraded result for a state query that timed
// out: everything off, manual mode. Transient query misses are common on this
// class of radio link and must not abort the caller.
func UnknownState() DeviceState {
	return DeviceState{Power: false, Mode: ModeManual, Brightness: 0, Color: ColorOff()}
}
