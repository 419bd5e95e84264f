package scene

import "github.com/yummydirtx/open-gamalta/internal/protocol"

func kf(hour, minute, r, g, b, cool, warm, brightness int) Keyframe {
	return Keyframe{
		Hour:   hour,
		Minute: minute,
		Color: protocol.Color{
			R: r, G: g, B: b,
			CoolWhite: cool, WarmWhite: warm,
		},
		Brightness: brightness,
	}
}

// fishBlueKeyframes was captured from the official app's BLE traffic and is
// the reference schedule for the Fish Blue mode.
var fishBlueKeyframes = []Keyframe{
	kf(5, 20, 0, 0, 0, 234, 70, 46),
	kf(6, 0, 0, 0, 0, 255, 76, 50),
	kf(8, 0, 0, 0, 0, 255, 76, 75),
	kf(9, 0, 64, 64, 64, 255, 38, 75),
	kf(10, 0, 127, 127, 127, 255, 0, 75),
	kf(11, 0, 191, 191, 191, 255, 0, 88),
	kf(12, 0, 255, 255, 255, 255, 0, 100),
	kf(13, 0, 255, 255, 255, 255, 128, 100),
	kf(14, 0, 255, 255, 255, 255, 255, 100),
	kf(15, 0, 191, 191, 255, 191, 255, 85),
	kf(16, 0, 127, 127, 255, 127, 255, 70),
	kf(17, 0, 127, 89, 191, 64, 191, 50),
	kf(18, 0, 127, 51, 127, 0, 127, 30),
	kf(18, 15, 118, 43, 126, 0, 118, 24),
	kf(19, 0, 89, 26, 127, 0, 89, 20),
	kf(20, 0, 51, 0, 127, 0, 51, 10),
	kf(21, 0, 26, 0, 64, 0, 26, 5),
	kf(22, 0, 0, 0, 0, 0, 0, 0),
}

// coralReefKeyframes approximates the Coral Reef cycle: blue-heavy with high
// cool white through the day. Not captured from the app; tuned by eye.
var coralReefKeyframes = []Keyframe{
	kf(6, 0, 0, 0, 64, 100, 20, 20),
	kf(9, 0, 0, 40, 160, 220, 20, 50),
	kf(12, 0, 20, 80, 255, 255, 0, 60),
	kf(16, 0, 0, 60, 220, 220, 0, 50),
	kf(19, 0, 0, 20, 140, 80, 0, 25),
	kf(21, 30, 0, 0, 40, 0, 0, 5),
	kf(23, 0, 0, 0, 0, 0, 0, 0),
}

// waterweedKeyframes approximates the plant growth cycle: strong full-spectrum
// midday plateau for photosynthesis, short warm shoulders.
var waterweedKeyframes = []Keyframe{
	kf(7, 0, 80, 40, 10, 40, 120, 20),
	kf(9, 0, 200, 160, 80, 200, 180, 70),
	kf(11, 0, 255, 220, 120, 255, 200, 100),
	kf(15, 0, 255, 220, 120, 255, 200, 100),
	kf(18, 0, 200, 140, 60, 160, 200, 60),
	kf(20, 0, 100, 50, 20, 40, 120, 20),
	kf(22, 0, 0, 0, 0, 0, 0, 0),
}

// Builtins returns the fixed built-in scenes seeded into the registry at
// startup. The SunSync scene is location-dependent and built separately.
func Builtins() []*Scene {
	fishBlue, _ := New("Fish Blue", protocol.ModeFishBlue, fishBlueKeyframes)
	coralReef, _ := New("Coral Reef", protocol.ModeCoralReef, coralReefKeyframes)
	waterweed, _ := New("Waterweed", protocol.ModeWaterweed, waterweedKeyframes)
	return []*Scene{fishBlue, coralReef, waterweed}
}
