package ble

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

// FilterByName keeps devices whose advertised name contains the filter
// substring. An empty filter matches everything with a name.
func FilterByName(devices []Device, nameFilter string) []Device {
	return lo.Filter(devices, func(d Device, _ int) bool {
		return d.Name != "" && strings.Contains(d.Name, nameFilter)
	})
}

// FindDevice scans and returns the first device matching the name filter.
// Returns ErrDeviceNotFound when the scan window closes with no match.
func FindDevice(ctx context.Context, scanner Scanner, nameFilter string, timeout time.Duration) (Device, error) {
	devices, err := scanner.Scan(ctx, timeout)
	if err != nil {
		return Device{}, err
	}
	matches := FilterByName(devices, nameFilter)
	if len(matches) == 0 {
		return Device{}, fmt.Errorf("%w: no device matching %q, ensure the light is powered on and not connected to another app", ErrDeviceNotFound, nameFilter)
	}
	return matches[0], nil
}
