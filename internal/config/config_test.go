package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yummydirtx/open-gamalta/internal/config"
)

func Test_LatLon(t *testing.T) {
	t.Run("parses lat,lon", func(t *testing.T) {
		c := config.Config{GeoLocation: "53.5, 9.99"}
		lat, lon, ok, err := c.LatLon()
		require.NoError(t, err)
		assert.True(t, ok)
		assert.InDelta(t, 53.5, lat, 0.001)
		assert.InDelta(t, 9.99, lon, 0.001)
	})

	t.Run("empty location is not an error", func(t *testing.T) {
		c := config.Config{}
		_, _, ok, err := c.LatLon()
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("rejects malformed values", func(t *testing.T) {
		for _, v := range []string{"53.5", "53.5;9.99", "north,south"} {
			c := config.Config{GeoLocation: v}
			_, _, _, err := c.LatLon()
			assert.Error(t, err, v)
		}
	})
}
