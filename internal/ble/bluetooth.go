package ble

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"tinygo.org/x/bluetooth"

	"github.com/yummydirtx/open-gamalta/internal/protocol"
)

// BluetoothTransport implements Transport and Scanner on
// tinygo-org/bluetooth. Addresses are MAC strings on Linux and
// CoreBluetooth UUIDs on macOS; both pass through bluetooth.Address.Set.
type BluetoothTransport struct {
	logger  *log.Logger
	adapter *bluetooth.Adapter

	mu         sync.Mutex
	enabled    bool
	device     *bluetooth.Device
	writeChar  *bluetooth.DeviceCharacteristic
	notifyChar *bluetooth.DeviceCharacteristic
	connected  bool
}

func NewBluetoothTransport(logger *log.Logger) *BluetoothTransport {
	return &BluetoothTransport{
		logger:  logger,
		adapter: bluetooth.DefaultAdapter,
	}
}

func (t *BluetoothTransport) enable() error {
	if t.enabled {
		return nil
	}
	if err := t.adapter.Enable(); err != nil {
		return fmt.Errorf("enabling BLE adapter: %w", err)
	}
	t.enabled = true
	return nil
}

// Scan discovers peripherals until the timeout elapses or ctx is cancelled.
func (t *BluetoothTransport) Scan(ctx context.Context, timeout time.Duration) ([]Device, error) {
	t.mu.Lock()
	if err := t.enable(); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	t.mu.Unlock()

	scanCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		resultMu sync.Mutex
		devices  []Device
		seen     = map[string]bool{}
	)

	done := make(chan struct{})
	go func() {
		<-scanCtx.Done()
		t.adapter.StopScan()
		close(done)
	}()

	err := t.adapter.Scan(func(adapter *bluetooth.Adapter, result bluetooth.ScanResult) {
		addr := result.Address.String()
		resultMu.Lock()
		defer resultMu.Unlock()
		if seen[addr] {
			return
		}
		seen[addr] = true
		devices = append(devices, Device{
			Address: addr,
			Name:    result.LocalName(),
			RSSI:    int(result.RSSI),
		})
	})
	<-done

	if err != nil && ctx.Err() == nil && scanCtx.Err() == nil {
		return nil, fmt.Errorf("scanning: %w", err)
	}
	t.logger.Debug("Scan finished", "found", len(devices))
	return devices, nil
}

// Connect dials the peripheral and discovers the control service's write and
// notify characteristics.
func (t *BluetoothTransport) Connect(ctx context.Context, address string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.enable(); err != nil {
		return err
	}
	if t.connected {
		if err := t.disconnectLocked(); err != nil {
			t.logger.Warn("Disconnect before reconnect failed", "error", err)
		}
	}

	var addr bluetooth.Address
	addr.Set(address)

	// tinygo's Connect blocks with its own timeout; wrap it so ctx
	// cancellation returns promptly even though the dial can't be aborted.
	type connectResult struct {
		device bluetooth.Device
		err    error
	}
	ch := make(chan connectResult, 1)
	go func() {
		device, err := t.adapter.Connect(addr, bluetooth.ConnectionParams{})
		ch <- connectResult{device, err}
	}()

	var device bluetooth.Device
	select {
	case <-ctx.Done():
		return fmt.Errorf("connecting to %s: %w", address, ctx.Err())
	case result := <-ch:
		if result.err != nil {
			return fmt.Errorf("connecting to %s: %w", address, result.err)
		}
		device = result.device
	}

	writeChar, notifyChar, err := discoverControlChars(&device)
	if err != nil {
		device.Disconnect()
		return err
	}

	t.device = &device
	t.writeChar = writeChar
	t.notifyChar = notifyChar
	t.connected = true
	t.logger.Info("Connected", "address", address)
	return nil
}

func discoverControlChars(device *bluetooth.Device) (write, notify *bluetooth.DeviceCharacteristic, err error) {
	serviceUUID, _ := bluetooth.ParseUUID(protocol.ServiceUUID)
	writeUUID, _ := bluetooth.ParseUUID(protocol.WriteCharUUID)
	notifyUUID, _ := bluetooth.ParseUUID(protocol.NotifyCharUUID)

	services, err := device.DiscoverServices([]bluetooth.UUID{serviceUUID})
	if err != nil {
		return nil, nil, fmt.Errorf("discovering control service: %w", err)
	}
	if len(services) == 0 {
		return nil, nil, fmt.Errorf("control service %s not found", protocol.ServiceUUID)
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{writeUUID, notifyUUID})
	if err != nil {
		return nil, nil, fmt.Errorf("discovering characteristics: %w", err)
	}
	for i := range chars {
		switch chars[i].UUID() {
		case writeUUID:
			write = &chars[i]
		case notifyUUID:
			notify = &chars[i]
		}
	}
	if write == nil || notify == nil {
		return nil, nil, fmt.Errorf("control characteristics not found on device")
	}
	return write, notify, nil
}

func (t *BluetoothTransport) Disconnect() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.disconnectLocked()
}

func (t *BluetoothTransport) disconnectLocked() error {
	if t.device == nil {
		return nil
	}
	err := t.device.Disconnect()
	t.device = nil
	t.writeChar = nil
	t.notifyChar = nil
	t.connected = false
	if err != nil {
		return fmt.Errorf("disconnecting: %w", err)
	}
	return nil
}

func (t *BluetoothTransport) Write(data []byte) error {
	t.mu.Lock()
	writeChar := t.writeChar
	connected := t.connected
	t.mu.Unlock()

	if !connected || writeChar == nil {
		return ErrNotConnected
	}
	if _, err := writeChar.WriteWithoutResponse(data); err != nil {
		return fmt.Errorf("writing packet: %w", err)
	}
	return nil
}

func (t *BluetoothTransport) Subscribe(callback func(data []byte)) error {
	t.mu.Lock()
	notifyChar := t.notifyChar
	connected := t.connected
	t.mu.Unlock()

	if !connected || notifyChar == nil {
		return ErrNotConnected
	}
	if err := notifyChar.EnableNotifications(callback); err != nil {
		return fmt.Errorf("subscribing to notifications: %w", err)
	}
	return nil
}

func (t *BluetoothTransport) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// Compile-time interface checks.
var (
	_ Transport = (*BluetoothTransport)(nil)
	_ Scanner   = (*BluetoothTransport)(nil)
)
