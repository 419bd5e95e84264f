// Package scene implements 24-hour lighting schedules: keyframe sequences,
// the time-of-day interpolation the device itself runs, a registry of
// built-in and custom scenes, and sqlite persistence for the custom slots.
package scene

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/yummydirtx/open-gamalta/internal/protocol"
)

const minutesPerDay = 24 * 60

// Keyframe is a point in a 24-hour lighting cycle.
type Keyframe struct {
	Hour       int
	Minute     int
	Color      protocol.Color
	Brightness int // 0-100 percent
}

func (k Keyframe) timeMinutes() int {
	return k.Hour*60 + k.Minute
}

func (k Keyframe) validate() error {
	if k.Hour < 0 || k.Hour > 23 {
		return fmt.Errorf("%w: keyframe hour must be 0-23, got %d", protocol.ErrValidation, k.Hour)
	}
	if k.Minute < 0 || k.Minute > 59 {
		return fmt.Errorf("%w: keyframe minute must be 0-59, got %d", protocol.ErrValidation, k.Minute)
	}
	if k.Brightness < 0 || k.Brightness > 100 {
		return fmt.Errorf("%w: keyframe brightness must be 0-100, got %d", protocol.ErrValidation, k.Brightness)
	}
	return k.Color.Validate()
}

// Scene is a named, mode-keyed keyframe schedule. Keyframes are sorted by
// time-of-day on construction and never mutated afterwards; accessors hand
// out copies so registry-owned scenes stay read-only to callers.
type Scene struct {
	name      string
	mode      protocol.Mode
	keyframes []Keyframe
}

// New validates keyframes, sorts them by time-of-day, and builds a Scene.
func New(name string, mode protocol.Mode, keyframes []Keyframe) (*Scene, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: scene name must not be empty", protocol.ErrValidation)
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: scene mode 0x%02X is not a valid mode ID", protocol.ErrValidation, byte(mode))
	}
	if len(keyframes) == 0 {
		return nil, fmt.Errorf("%w: scene %q must have at least one keyframe", protocol.ErrValidation, name)
	}
	sorted := make([]Keyframe, len(keyframes))
	copy(sorted, keyframes)
	for _, k := range sorted {
		if err := k.validate(); err != nil {
			return nil, fmt.Errorf("scene %q: %w", name, err)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].timeMinutes() < sorted[j].timeMinutes()
	})
	return &Scene{name: name, mode: mode, keyframes: sorted}, nil
}

// Name returns the human-readable scene name.
func (s *Scene) Name() string {
	return s.name
}

// Mode returns the mode ID this scene activates.
func (s *Scene) Mode() protocol.Mode {
	return s.mode
}

// Keyframes returns a copy of the sorted keyframe schedule.
func (s *Scene) Keyframes() []Keyframe {
	out := make([]Keyframe, len(s.keyframes))
	copy(out, s.keyframes)
	return out
}

// StateAt computes the color and brightness the device displays at t,
// matching its own interpolation. The schedule is circular: before the first
// keyframe and after the last, the bracket crosses midnight.
func (s *Scene) StateAt(t time.Time) (protocol.Color, int) {
	if len(s.keyframes) == 0 {
		return protocol.ColorOff(), 0
	}

	now := t.Hour()*60 + t.Minute()

	prev := s.keyframes[len(s.keyframes)-1]
	next := s.keyframes[0]
	for i, k := range s.keyframes {
		if k.timeMinutes() <= now {
			prev = k
			next = s.keyframes[(i+1)%len(s.keyframes)]
		} else {
			next = k
			break
		}
	}

	prevTime := prev.timeMinutes()
	nextTime := next.timeMinutes()
	if nextTime <= prevTime {
		// bracket crosses midnight
		nextTime += minutesPerDay
		if now < prevTime {
			now += minutesPerDay
		}
	}

	frac := 0.0
	if nextTime != prevTime {
		frac = float64(now-prevTime) / float64(nextTime-prevTime)
		frac = math.Max(0, math.Min(1, frac))
	}

	color := protocol.Color{
		R:         lerp(prev.Color.R, next.Color.R, frac),
		G:         lerp(prev.Color.G, next.Color.G, frac),
		B:         lerp(prev.Color.B, next.Color.B, frac),
		WarmWhite: lerp(prev.Color.WarmWhite, next.Color.WarmWhite, frac),
		CoolWhite: lerp(prev.Color.CoolWhite, next.Color.CoolWhite, frac),
	}
	return color, lerp(prev.Brightness, next.Brightness, frac)
}

func lerp(a, b int, t float64) int {
	return int(math.Round(float64(a) + float64(b-a)*t))
}
