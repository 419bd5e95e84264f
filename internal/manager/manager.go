// Package manager owns the single active device session. It serializes every
// operation behind one lock, polls state in the background while connected,
// and broadcasts state and connection changes to registered subscribers.
package manager

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/yummydirtx/open-gamalta/internal/ble"
	"github.com/yummydirtx/open-gamalta/internal/device"
	"github.com/yummydirtx/open-gamalta/internal/protocol"
	"github.com/yummydirtx/open-gamalta/internal/scene"
)

// EventType distinguishes broadcast payloads.
type EventType string

const (
	EventState      EventType = "state"
	EventConnection EventType = "connection"
)

// Event is delivered to every subscriber on state or connection changes.
type Event struct {
	Type       EventType
	State      *protocol.DeviceState
	Connection *ConnectionInfo
}

// ConnectionInfo describes a connection lifecycle change.
type ConnectionInfo struct {
	Connected bool
	Address   string
	Name      string
}

// Subscriber receives broadcast events. Callbacks run on their own
// goroutine; a failing subscriber never blocks delivery to the others or the
// operation that triggered the broadcast.
type Subscriber func(Event)

// Options tunes manager behavior.
type Options struct {
	// NameFilter selects devices during auto-discovery.
	NameFilter string
	// ScanTimeout bounds discovery scans.
	ScanTimeout time.Duration
	// PollInterval is the background state poll period.
	PollInterval time.Duration
	// SettleDelay is the pause after a mutating command before the
	// out-of-band state broadcast, giving the device time to apply it.
	SettleDelay time.Duration
	// Session carries the per-session timings.
	Session device.Options
}

// DefaultOptions mirrors the defaults of the reference hardware setup.
func DefaultOptions() Options {
	return Options{
		NameFilter:   "Gamalta",
		ScanTimeout:  5 * time.Second,
		PollInterval: 5 * time.Second,
		SettleDelay:  150 * time.Millisecond,
		Session:      device.DefaultOptions(),
	}
}

// TransportFactory builds a fresh transport for each connection attempt.
type TransportFactory func() ble.Transport

// Manager is the single point of access to the light. The BLE link permits
// exactly one command in flight, so the mutex around every send is a
// correctness requirement, not an optimization.
type Manager struct {
	logger       *log.Logger
	scenes       *scene.Registry
	newTransport TransportFactory
	scanner      ble.Scanner
	opts         Options

	mu      sync.Mutex
	session *device.Session
	address string
	name    string

	pollCancel context.CancelFunc

	subMu       sync.RWMutex
	subscribers map[uuid.UUID]Subscriber
}

func New(logger *log.Logger, scenes *scene.Registry, factory TransportFactory, scanner ble.Scanner, opts Options) *Manager {
	return &Manager{
		logger:       logger,
		scenes:       scenes,
		newTransport: factory,
		scanner:      scanner,
		opts:         opts,
		subscribers:  make(map[uuid.UUID]Subscriber),
	}
}

// Subscribe registers a broadcast callback and returns its handle.
func (m *Manager) Subscribe(fn Subscriber) uuid.UUID {
	id := uuid.New()
	m.subMu.Lock()
	m.subscribers[id] = fn
	m.subMu.Unlock()
	return id
}

// Unsubscribe removes a subscriber. Unknown handles are a no-op.
func (m *Manager) Unsubscribe(id uuid.UUID) {
	m.subMu.Lock()
	delete(m.subscribers, id)
	m.subMu.Unlock()
}

// Scan discovers nearby devices matching the configured name filter.
func (m *Manager) Scan(ctx context.Context) ([]ble.Device, error) {
	devices, err := m.scanner.Scan(ctx, m.opts.ScanTimeout)
	if err != nil {
		return nil, err
	}
	return ble.FilterByName(devices, m.opts.NameFilter), nil
}

// Connect establishes a session, replacing any existing one. With an empty
// address the device is auto-discovered by name filter. Returns the device
// name.
func (m *Manager) Connect(ctx context.Context, address string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// disconnect-before-connect: the old session is torn down cleanly even
	// when the new connect fails afterwards
	m.dropSessionLocked()

	if address == "" {
		found, err := ble.FindDevice(ctx, m.scanner, m.opts.NameFilter, m.opts.ScanTimeout)
		if err != nil {
			return "", err
		}
		address = found.Address
		if found.Name != "" {
			m.name = found.Name
		}
	}
	if m.name == "" {
		m.name = m.opts.NameFilter
	}

	session := device.NewSession(m.logger, m.newTransport(), m.scenes, m.opts.Session)
	if err := session.Connect(ctx, address); err != nil {
		m.name = ""
		return "", err
	}

	m.session = session
	m.address = address
	m.startPollLocked()

	m.broadcast(Event{Type: EventConnection, Connection: &ConnectionInfo{
		Connected: true, Address: m.address, Name: m.name,
	}})
	return m.name, nil
}

// Disconnect tears down the active session. Safe to call when disconnected.
func (m *Manager) Disconnect() error {
	m.mu.Lock()
	name, address := m.name, m.address
	hadSession := m.session != nil
	err := m.dropSessionLocked()
	m.mu.Unlock()

	if hadSession {
		m.broadcast(Event{Type: EventConnection, Connection: &ConnectionInfo{
			Connected: false, Address: address, Name: name,
		}})
	}
	return err
}

// dropSessionLocked stops polling and releases the session. Caller holds mu.
func (m *Manager) dropSessionLocked() error {
	m.stopPollLocked()
	var err error
	if m.session != nil {
		err = m.session.Disconnect()
		m.session = nil
	}
	m.address = ""
	m.name = ""
	return err
}

// IsConnected reports whether a session is active and ready.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.IsReady()
}

// DeviceAddress returns the connected device's address.
func (m *Manager) DeviceAddress() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.address
}

// DeviceName returns the connected device's cached display name.
func (m *Manager) DeviceName() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

// execute runs one operation under the lock, then settles and triggers the
// out-of-band state broadcast so subscribers observe the effect promptly.
func (m *Manager) execute(op func(s *device.Session) error) error {
	m.mu.Lock()
	s := m.session
	if s == nil || !s.IsReady() {
		m.mu.Unlock()
		return device.ErrNotConnected
	}
	err := op(s)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	time.Sleep(m.opts.SettleDelay)
	go m.broadcastState(context.Background())
	return nil
}

func (m *Manager) SetPower(on bool) error {
	return m.execute(func(s *device.Session) error { return s.SetPower(on) })
}

func (m *Manager) SetColor(c protocol.Color) error {
	return m.execute(func(s *device.Session) error { return s.SetColor(c) })
}

func (m *Manager) SetBrightness(percent int) error {
	return m.execute(func(s *device.Session) error { return s.SetBrightness(percent) })
}

func (m *Manager) SetMode(ctx context.Context, mode protocol.Mode) error {
	return m.execute(func(s *device.Session) error { return s.SetMode(ctx, mode) })
}

func (m *Manager) ConfigureLightning(cfg protocol.LightningConfig) error {
	return m.execute(func(s *device.Session) error { return s.ConfigureLightning(cfg) })
}

func (m *Manager) PreviewLightning() error {
	return m.execute(func(s *device.Session) error { return s.PreviewLightning() })
}

// SetName updates the device display name and the manager's cache of it.
func (m *Manager) SetName(name string) error {
	err := m.execute(func(s *device.Session) error { return s.SetName(name) })
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.name = name
	m.mu.Unlock()
	return nil
}

// QueryState reads the current device state under the lock.
func (m *Manager) QueryState(ctx context.Context) (protocol.DeviceState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session
	if s == nil || !s.IsReady() {
		return protocol.UnknownState(), device.ErrNotConnected
	}
	return s.QueryState(ctx)
}

func (m *Manager) startPollLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	m.pollCancel = cancel
	go m.pollLoop(ctx)
}

// stopPollLocked cancels the poll context and returns without waiting. The
// caller holds mu, and a tick may already be blocked on it in broadcastState;
// waiting here would deadlock against that tick. The cancelled context makes
// the pending tick a no-op once it gets the lock, and the loop exits on its
// next select.
func (m *Manager) stopPollLocked() {
	if m.pollCancel != nil {
		m.pollCancel()
		m.pollCancel = nil
	}
}

// pollLoop periodically broadcasts state while connected. Transient query
// failures are swallowed; the loop just tries again next tick.
func (m *Manager) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(m.opts.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.broadcastState(ctx)
		}
	}
}

// broadcastState queries under the lock and fans the result out. The context
// is re-checked after the lock is acquired: a poll tick that was waiting on
// the lock while its session was being torn down must not touch the
// replacement session.
func (m *Manager) broadcastState(ctx context.Context) {
	m.mu.Lock()
	if ctx.Err() != nil {
		m.mu.Unlock()
		return
	}
	s := m.session
	if s == nil || !s.IsReady() {
		m.mu.Unlock()
		return
	}
	state, err := s.QueryState(ctx)
	m.mu.Unlock()
	if err != nil {
		m.logger.Debug("State broadcast query failed", "error", err)
		return
	}
	m.broadcast(Event{Type: EventState, State: &state})
}

// broadcast fans an event out to every subscriber. Each callback runs on its
// own goroutine and panics are contained, so one failing subscriber cannot
// affect the others or the caller.
func (m *Manager) broadcast(event Event) {
	m.subMu.RLock()
	subscribers := make([]Subscriber, 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		subscribers = append(subscribers, fn)
	}
	m.subMu.RUnlock()

	for _, fn := range subscribers {
		fn := fn
		go func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.Error("Subscriber callback panicked", "panic", r)
				}
			}()
			fn(event)
		}()
	}
}
