// Package protocol implements the Gamalta binary wire format: typed value
// objects, command payload encoders, the state-response decoder, and the
// packet framer. The package is pure translation and performs no I/O.
package protocol

// BLE UUIDs for the light's UART-like control service.
const (
	ServiceUUID    = "0000fff0-0000-1000-8000-00805f9b34fb"
	WriteCharUUID  = "0000fff3-0000-1000-8000-00805f9b34fb"
	NotifyCharUUID = "0000fff4-0000-1000-8000-00805f9b34fb"
)

// PacketHeader prefixes every packet on the wire.
const PacketHeader byte = 0xA5

// DefaultPassword is the factory login password.
const DefaultPassword = "123456"

// Command opcodes. This table is a fixed fact of the device firmware.
const (
	CmdPower         byte = 0x01
	CmdStateQuery    byte = 0x03
	CmdLogin         byte = 0x10
	CmdTimeSync      byte = 0x16
	CmdColor         byte = 0x50
	CmdBrightness    byte = 0x52
	CmdSetName       byte = 0x54
	CmdMode          byte = 0x6A
	CmdSceneActivate byte = 0x72
	CmdLightning     byte = 0x76
)

// RespState is the opcode carried by state-query responses.
const RespState byte = 0x04

// respStateLen is the declared payload length of a state response.
const respStateLen = 0x08

// Power state bytes.
const (
	powerOn  byte = 0x01
	powerOff byte = 0x02
)

// Apply flags for the color command. The device distinguishes a manual color
// change from the color push that precedes a scene activation.
const (
	ApplyManual byte = 0x00
	ApplyScene  byte = 0x01
)

// Lightning sub-command mask and the sentinel intensity that triggers a
// one-shot preview flash instead of a scheduled configuration.
const (
	lightningMask    byte = 0x07
	LightningPreview      = 0xFE
)

// Day bitmask values for the lightning schedule. Bit 7 is the master enable
// and is folded into the transmitted byte, never stored in the mask.
const (
	DayMonday    byte = 0x01
	DayTuesday   byte = 0x02
	DayWednesday byte = 0x04
	DayThursday  byte = 0x08
	DayFriday    byte = 0x10
	DaySaturday  byte = 0x20
	DaySunday    byte = 0x40

	dayEnabled byte = 0x80

	DaysAll      byte = 0x7F
	DaysWeekdays      = DayMonday | DayTuesday | DayWednesday | DayThursday | DayFriday
	DaysWeekend       = DaySaturday | DaySunday
)

// MaxNameLength bounds the device display name (ASCII bytes).
const MaxNameLength = 24
