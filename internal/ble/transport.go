// Package ble provides the Bluetooth Low Energy transport for the light:
// a narrow Transport interface the session consumes, a tinygo-org/bluetooth
// backed implementation, and name-filtered device discovery.
package ble

import (
	"context"
	"errors"
	"time"
)

// ErrDeviceNotFound is returned when discovery times out with no match.
var ErrDeviceNotFound = errors.New("no matching device found")

// ErrNotConnected is returned for transport operations without a connection.
var ErrNotConnected = errors.New("transport not connected")

// Device is a discovered peripheral.
type Device struct {
	Address string
	Name    string
	RSSI    int
}

// Transport is the radio contract the device session consumes. All methods
// may fail; the session maps failures into its own error taxonomy.
type Transport interface {
	// Connect establishes a connection and discovers the control
	// characteristics.
	Connect(ctx context.Context, address string) error
	// Disconnect closes the connection. Safe to call when not connected.
	Disconnect() error
	// Write sends a framed packet without response.
	Write(data []byte) error
	// Subscribe registers a notification callback; nil unsubscribes.
	Subscribe(callback func(data []byte)) error
	// IsConnected reports whether the link is up.
	IsConnected() bool
}

// Scanner discovers nearby peripherals within a timeout.
type Scanner interface {
	Scan(ctx context.Context, timeout time.Duration) ([]Device, error)
}
