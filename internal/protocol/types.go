package protocol

import (
	"errors"
	"fmt"
)

// ErrValidation marks an out-of-range input rejected before any byte is
// produced. Wrapped errors carry the offending field and value.
var ErrValidation = errors.New("validation failed")

// Mode identifies an operating mode of the light.
type Mode byte

const (
	ModeManual    Mode = 0x00
	ModeSunSync   Mode = 0x01
	ModeCoralReef Mode = 0x02
	ModeFishBlue  Mode = 0x03
	ModeWaterweed Mode = 0x04

	// Runtime-extensible custom scene slots. Valid mode IDs even without a
	// registered scene definition.
	ModeCustomBasic Mode = 0x0B
	ModeCustomPro   Mode = 0x0C
)

// Valid reports whether m is a known mode ID.
func (m Mode) Valid() bool {
	switch m {
	case ModeManual, ModeSunSync, ModeCoralReef, ModeFishBlue, ModeWaterweed, ModeCustomBasic, ModeCustomPro:
		return true
	}
	return false
}

func (m Mode) String() string {
	switch m {
	case ModeManual:
		return "manual"
	case ModeSunSync:
		return "sunsync"
	case ModeCoralReef:
		return "coralreef"
	case ModeFishBlue:
		return "fishblue"
	case ModeWaterweed:
		return "waterweed"
	case ModeCustomBasic:
		return "custom-basic"
	case ModeCustomPro:
		return "custom-pro"
	}
	return fmt.Sprintf("mode(0x%02X)", byte(m))
}

// Color is an immutable RGBWC channel value set. All channels are 0-255.
// Construct through NewColor so out-of-range values are rejected up front.
type Color struct {
	R         int
	G         int
	B         int
	WarmWhite int
	CoolWhite int
}

// NewColor validates and builds a Color.
func NewColor(r, g, b, warmWhite, coolWhite int) (Color, error) {
	c := Color{R: r, G: g, B: b, WarmWhite: warmWhite, CoolWhite: coolWhite}
	if err := c.Validate(); err != nil {
		return Color{}, err
	}
	return c, nil
}

// RGB builds a Color with the white channels off.
func RGB(r, g, b int) (Color, error) {
	return NewColor(r, g, b, 0, 0)
}

// ColorOff is the all-channels-zero color.
func ColorOff() Color {
	return Color{}
}

// Validate checks every channel against [0,255].
func (c Color) Validate() error {
	for _, ch := range []struct {
		name  string
		value int
	}{
		{"r", c.R}, {"g", c.G}, {"b", c.B},
		{"warm_white", c.WarmWhite}, {"cool_white", c.CoolWhite},
	} {
		if ch.value < 0 || ch.value > 255 {
			return fmt.Errorf("%w: %s must be 0-255, got %d", ErrValidation, ch.name, ch.value)
		}
	}
	return nil
}

// TimeOfDay is a wall-clock hour/minute pair.
type TimeOfDay struct {
	Hour   int
	Minute int
}

func (t TimeOfDay) validate(field string) error {
	if t.Hour < 0 || t.Hour > 23 {
		return fmt.Errorf("%w: %s hour must be 0-23, got %d", ErrValidation, field, t.Hour)
	}
	if t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: %s minute must be 0-59, got %d", ErrValidation, field, t.Minute)
	}
	return nil
}

// LightningConfig describes the automatic lightning storm effect schedule.
type LightningConfig struct {
	Intensity int       // 0-100 percent, or LightningPreview for a one-shot flash
	Frequency int       // flashes per interval, 0-10
	Start     TimeOfDay // schedule start
	End       TimeOfDay // schedule end
	Days      byte      // 7-bit day mask, bit0=Monday
	Enabled   bool      // master enable, transmitted as bit7 of the day byte
}

// NewLightningConfig validates and builds a LightningConfig.
func NewLightningConfig(intensity, frequency int, start, end TimeOfDay, days byte, enabled bool) (LightningConfig, error) {
	cfg := LightningConfig{
		Intensity: intensity,
		Frequency: frequency,
		Start:     start,
		End:       end,
		Days:      days,
		Enabled:   enabled,
	}
	if err := cfg.Validate(); err != nil {
		return LightningConfig{}, err
	}
	return cfg, nil
}

// PreviewLightning builds the configuration that triggers a single preview
// flash. Frequency and day fields are fixed placeholders.
func PreviewLightning() LightningConfig {
	return LightningConfig{
		Intensity: LightningPreview,
		Frequency: 5,
		Start:     TimeOfDay{},
		End:       TimeOfDay{},
		Days:      0,
		Enabled:   false,
	}
}

// Validate checks every field against the protocol ranges. The preview
// sentinel intensity is accepted alongside the 0-100 scheduled range.
func (c LightningConfig) Validate() error {
	if c.Intensity != LightningPreview && (c.Intensity < 0 || c.Intensity > 100) {
		return fmt.Errorf("%w: intensity must be 0-100, got %d", ErrValidation, c.Intensity)
	}
	if c.Frequency < 0 || c.Frequency > 10 {
		return fmt.Errorf("%w: frequency must be 0-10, got %d", ErrValidation, c.Frequency)
	}
	if err := c.Start.validate("start"); err != nil {
		return err
	}
	if err := c.End.validate("end"); err != nil {
		return err
	}
	if c.Days > DaysAll {
		return fmt.Errorf("%w: day mask must be <= 0x7F, got 0x%02X", ErrValidation, c.Days)
	}
	return nil
}

// DaysByte returns the day mask with the enable bit folded in.
func (c LightningConfig) DaysByte() byte {
	if c.Enabled {
		return c.Days | dayEnabled
	}
	return c.Days
}

// DeviceState is the decoded result of a state query. It is ephemeral and
// never cached beyond the most recent poll.
type DeviceState struct {
	Power      bool
	Mode       Mode
	Brightness int
	Color      Color
}
