package protocol

import (
	"fmt"
	"time"
)

// Command payloads start at the opcode; the header byte and sequence number
// are the framer's concern.

// Login builds the authentication payload: [0x10] [len] [0x02] [ASCII password].
func Login(password string) ([]byte, error) {
	if password == "" {
		return nil, fmt.Errorf("%w: password must not be empty", ErrValidation)
	}
	for i := 0; i < len(password); i++ {
		if password[i] > 0x7F {
			return nil, fmt.Errorf("%w: password must be ASCII", ErrValidation)
		}
	}
	payload := make([]byte, 0, 3+len(password))
	payload = append(payload, CmdLogin, byte(len(password)+1), 0x02)
	payload = append(payload, password...)
	return payload, nil
}

// TimeSync builds the clock payload from local wall-clock time. The year is
// transmitted as an offset from 2000; no timezone handling is applied.
func TimeSync(t time.Time) ([]byte, error) {
	year := t.Year() - 2000
	if year < 0 || year > 255 {
		return nil, fmt.Errorf("%w: year %d outside device range", ErrValidation, t.Year())
	}
	return []byte{
		CmdTimeSync, 0x07,
		byte(year), byte(t.Month()), byte(t.Day()),
		byte(t.Hour()), byte(t.Minute()), byte(t.Second()),
	}, nil
}

// Power builds the power on/off payload.
func Power(on bool) []byte {
	state := powerOff
	if on {
		state = powerOn
	}
	return []byte{CmdPower, 0x03, state, 0x00, 0x00}
}

// ColorCommand builds the direct color payload. The wire channel order is
// R G B cool warm, which differs from the domain field order. applyFlag is
// ApplyManual for user changes and ApplyScene when priming a scene switch.
func ColorCommand(c Color, applyFlag byte) ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if applyFlag != ApplyManual && applyFlag != ApplyScene {
		return nil, fmt.Errorf("%w: apply flag must be 0x00 or 0x01, got 0x%02X", ErrValidation, applyFlag)
	}
	return []byte{
		CmdColor, 0x06,
		byte(c.R), byte(c.G), byte(c.B),
		byte(c.CoolWhite), byte(c.WarmWhite),
		applyFlag,
	}, nil
}

// Brightness builds the master brightness payload (0-100 percent).
func Brightness(percent int) ([]byte, error) {
	if percent < 0 || percent > 100 {
		return nil, fmt.Errorf("%w: brightness must be 0-100, got %d", ErrValidation, percent)
	}
	return []byte{CmdBrightness, 0x01, byte(percent)}, nil
}

// ModeCommand builds the mode selection payload.
func ModeCommand(m Mode) ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: unknown mode 0x%02X", ErrValidation, byte(m))
	}
	return []byte{CmdMode, 0x01, byte(m)}, nil
}

// Lightning builds the lightning effect payload.
func Lightning(cfg LightningConfig) ([]byte, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return []byte{
		CmdLightning, lightningMask,
		byte(cfg.Intensity), byte(cfg.Frequency),
		byte(cfg.Start.Hour), byte(cfg.Start.Minute),
		byte(cfg.End.Hour), byte(cfg.End.Minute),
		cfg.DaysByte(),
	}, nil
}

// SceneActivate builds the payload sent after every non-manual mode change to
// lock the device onto the selected scene.
func SceneActivate() []byte {
	return []byte{CmdSceneActivate, 0x01, 0x00}
}

// StateQuery builds the state request payload. The device answers with a
// RespState notification.
func StateQuery() []byte {
	return []byte{CmdStateQuery, 0x00}
}

// SetName builds the display name payload: [0x54] [len] [ASCII name].
func SetName(name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name must not be empty", ErrValidation)
	}
	if len(name) > MaxNameLength {
		return nil, fmt.Errorf("%w: name must be at most %d bytes, got %d", ErrValidation, MaxNameLength, len(name))
	}
	for i := 0; i < len(name); i++ {
		if name[i] > 0x7F {
			return nil, fmt.Errorf("%w: name must be ASCII", ErrValidation)
		}
	}
	payload := make([]byte, 0, 2+len(name))
	payload = append(payload, CmdSetName, byte(len(name)))
	payload = append(payload, name...)
	return payload, nil
}
