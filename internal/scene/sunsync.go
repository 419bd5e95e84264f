package scene

import (
	"time"

	"github.com/nathan-osman/go-sunrise"

	"github.com/yummydirtx/open-gamalta/internal/protocol"
)

// SunSync builds the sun-following schedule for the given coordinates and
// date. Keyframe times track the local sunrise and sunset rather than fixed
// hours, so the tank's day length follows the season.
func SunSync(lat, lon float64, date time.Time) (*Scene, error) {
	rise, set := sunrise.SunriseSunset(lat, lon, date.Year(), date.Month(), date.Day())
	rise = rise.Local()
	set = set.Local()

	midday := rise.Add(set.Sub(rise) / 2)

	keyframes := []Keyframe{
		at(rise.Add(-45*time.Minute), kf(0, 0, 0, 0, 0, 0, 30, 5)),
		at(rise, kf(0, 0, 200, 120, 40, 60, 180, 35)),
		at(rise.Add(2*time.Hour), kf(0, 0, 255, 200, 120, 200, 120, 70)),
		at(midday, kf(0, 0, 255, 255, 255, 255, 60, 100)),
		at(set.Add(-2*time.Hour), kf(0, 0, 255, 200, 120, 180, 140, 65)),
		at(set, kf(0, 0, 220, 120, 40, 0, 200, 30)),
		at(set.Add(time.Hour), kf(0, 0, 20, 10, 60, 0, 20, 5)),
		at(set.Add(3*time.Hour), kf(0, 0, 0, 0, 0, 0, 0, 0)),
	}

	return New("SunSync", protocol.ModeSunSync, keyframes)
}

func at(t time.Time, k Keyframe) Keyframe {
	k.Hour = t.Hour()
	k.Minute = t.Minute()
	return k
}
