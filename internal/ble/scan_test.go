package ble_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yummydirtx/open-gamalta/internal/ble"
)

type stubScanner struct {
	devices []ble.Device
	err     error
}

func (s *stubScanner) Scan(ctx context.Context, timeout time.Duration) ([]ble.Device, error) {
	return s.devices, s.err
}

func Test_FilterByName(t *testing.T) {
	devices := []ble.Device{
		{Address: "AA", Name: "Gamalta-1C2F"},
		{Address: "BB", Name: "Kitchen Speaker"},
		{Address: "CC", Name: ""},
		{Address: "DD", Name: "Gamalta"},
	}

	matches := ble.FilterByName(devices, "Gamalta")
	require.Len(t, matches, 2)
	assert.Equal(t, "AA", matches[0].Address)
	assert.Equal(t, "DD", matches[1].Address)

	t.Run("unnamed devices never match", func(t *testing.T) {
		assert.Empty(t, ble.FilterByName([]ble.Device{{Address: "CC"}}, ""))
	})
}

func Test_FindDevice(t *testing.T) {
	t.Run("returns first match", func(t *testing.T) {
		scanner := &stubScanner{devices: []ble.Device{
			{Address: "BB", Name: "Other"},
			{Address: "AA", Name: "Gamalta-1C2F"},
		}}
		d, err := ble.FindDevice(context.Background(), scanner, "Gamalta", time.Second)
		require.NoError(t, err)
		assert.Equal(t, "AA", d.Address)
	})

	t.Run("no match yields ErrDeviceNotFound", func(t *testing.T) {
		scanner := &stubScanner{devices: []ble.Device{{Address: "BB", Name: "Other"}}}
		_, err := ble.FindDevice(context.Background(), scanner, "Gamalta", time.Second)
		assert.ErrorIs(t, err, ble.ErrDeviceNotFound)
	})
}
