// Package device implements the session state machine that owns one BLE
// transport: handshake, typed operations, and bounded state queries.
package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yummydirtx/open-gamalta/internal/ble"
	"github.com/yummydirtx/open-gamalta/internal/protocol"
	"github.com/yummydirtx/open-gamalta/internal/scene"
)

// State is the session lifecycle state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateHandshaking
	StateReady
	StateFaulted
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	case StateFaulted:
		return "faulted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options tunes session behavior.
type Options struct {
	// Password is the login password sent during the handshake.
	Password string
	// CommandDelay is the minimum pause after every packet, so the
	// device's BLE stack is never overwhelmed.
	CommandDelay time.Duration
	// QueryTimeout bounds the wait for a state-query response.
	QueryTimeout time.Duration
	// SubscribeSettle is the pause between subscribing to notifications
	// and starting the handshake.
	SubscribeSettle time.Duration
}

// DefaultOptions returns the timings observed to work with the hardware.
func DefaultOptions() Options {
	return Options{
		Password:        protocol.DefaultPassword,
		CommandDelay:    100 * time.Millisecond,
		QueryTimeout:    2 * time.Second,
		SubscribeSettle: 200 * time.Millisecond,
	}
}

// Session drives one connected light through the wire protocol. It owns
// exactly one transport and one packet framer; the framer is recreated with
// a fresh random sequence on every connect so reconnects don't collide.
//
// Session methods are not safe for concurrent use; the manager serializes
// all access.
type Session struct {
	logger    *log.Logger
	transport ble.Transport
	scenes    *scene.Registry
	opts      Options

	mu     sync.Mutex
	state  State
	framer *protocol.Framer

	pendingMu sync.Mutex
	pending   chan protocol.DeviceState
}

func NewSession(logger *log.Logger, transport ble.Transport, scenes *scene.Registry, opts Options) *Session {
	if opts.Password == "" {
		opts.Password = protocol.DefaultPassword
	}
	return &Session{
		logger:    logger,
		transport: transport,
		scenes:    scenes,
		opts:      opts,
		state:     StateDisconnected,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// IsReady reports whether the session accepts operations.
func (s *Session) IsReady() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateReady && s.transport.IsConnected()
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()
	if prev != state {
		s.logger.Debug("Session state changed", "from", prev, "to", state)
	}
}

// Connect dials the transport and performs the handshake: subscribe, then
// login, time sync, and scene activation in strict order. The protocol never
// acknowledges the handshake, so reaching Ready is unconditional once the
// three packets are written.
func (s *Session) Connect(ctx context.Context, address string) error {
	s.mu.Lock()
	if s.state != StateDisconnected && s.state != StateFaulted {
		s.mu.Unlock()
		return fmt.Errorf("%w: connect attempted in state %s", ErrConnection, s.state)
	}
	s.state = StateConnecting
	s.framer = protocol.NewFramer()
	s.mu.Unlock()

	if err := s.transport.Connect(ctx, address); err != nil {
		s.setState(StateDisconnected)
		return fmt.Errorf("%w: %s", ErrConnection, err)
	}

	s.setState(StateHandshaking)
	if err := s.handshake(); err != nil {
		s.transport.Disconnect()
		s.setState(StateDisconnected)
		return err
	}

	s.setState(StateReady)
	s.logger.Info("Session ready", "address", address)
	return nil
}

func (s *Session) handshake() error {
	if err := s.transport.Subscribe(s.handleNotification); err != nil {
		return fmt.Errorf("%w: subscribing to notifications: %s", ErrConnection, err)
	}
	time.Sleep(s.opts.SubscribeSettle)

	login, err := protocol.Login(s.opts.Password)
	if err != nil {
		return err
	}
	timeSync, err := protocol.TimeSync(time.Now())
	if err != nil {
		return err
	}

	for _, payload := range [][]byte{login, timeSync, protocol.SceneActivate()} {
		if err := s.write(payload); err != nil {
			return err
		}
	}
	return nil
}

// Disconnect releases the transport and returns the session to Disconnected.
func (s *Session) Disconnect() error {
	s.setState(StateDisconnected)
	if err := s.transport.Disconnect(); err != nil {
		return fmt.Errorf("%w: %s", ErrConnection, err)
	}
	return nil
}

// write frames and sends one payload, then holds the inter-command delay.
// Callers have already validated the payload.
func (s *Session) write(payload []byte) error {
	s.mu.Lock()
	packet := s.framer.Frame(payload)
	s.mu.Unlock()

	if err := s.transport.Write(packet); err != nil {
		if errors.Is(err, ble.ErrNotConnected) {
			return fmt.Errorf("%w: %s", ErrNotConnected, err)
		}
		return fmt.Errorf("%w: %s", ErrCommand, err)
	}
	time.Sleep(s.opts.CommandDelay)
	return nil
}

// send guards a Ready-only operation and faults the session when the
// transport reports an unrecoverable write failure.
func (s *Session) send(payload []byte) error {
	if !s.IsReady() {
		return ErrNotConnected
	}
	if err := s.write(payload); err != nil {
		if errors.Is(err, ErrCommand) || errors.Is(err, ErrNotConnected) {
			s.setState(StateFaulted)
		}
		return err
	}
	return nil
}

// SetPower turns the light on or off.
func (s *Session) SetPower(on bool) error {
	return s.send(protocol.Power(on))
}

// SetColor applies a manual color change.
func (s *Session) SetColor(c protocol.Color) error {
	payload, err := protocol.ColorCommand(c, protocol.ApplyManual)
	if err != nil {
		return err
	}
	return s.send(payload)
}

// SetBrightness sets the master brightness percentage.
func (s *Session) SetBrightness(percent int) error {
	payload, err := protocol.Brightness(percent)
	if err != nil {
		return err
	}
	return s.send(payload)
}

// SetMode switches the operating mode. For non-manual modes with a registered
// scene, the scene's current interpolated color and brightness are pushed
// first with the scene apply flag, so the light shows the settled values
// immediately instead of waiting for its own cycle computation. Every
// non-manual switch ends with a scene activation and a state query to make
// the device commit and broadcast the result.
func (s *Session) SetMode(ctx context.Context, mode protocol.Mode) error {
	modePayload, err := protocol.ModeCommand(mode)
	if err != nil {
		return err
	}

	if mode == protocol.ModeManual {
		return s.send(modePayload)
	}

	if sc, ok := s.scenes.Get(mode); ok {
		color, brightness := sc.StateAt(time.Now())
		colorPayload, err := protocol.ColorCommand(color, protocol.ApplyScene)
		if err != nil {
			return err
		}
		brightnessPayload, err := protocol.Brightness(brightness)
		if err != nil {
			return err
		}
		if err := s.send(colorPayload); err != nil {
			return err
		}
		if err := s.send(brightnessPayload); err != nil {
			return err
		}
	} else {
		s.logger.Debug("No scene registered for mode, skipping interpolation", "mode", mode)
	}

	if err := s.send(modePayload); err != nil {
		return err
	}
	if err := s.send(protocol.SceneActivate()); err != nil {
		return err
	}
	_, err = s.QueryState(ctx)
	return err
}

// ConfigureLightning sends a lightning schedule.
func (s *Session) ConfigureLightning(cfg protocol.LightningConfig) error {
	payload, err := protocol.Lightning(cfg)
	if err != nil {
		return err
	}
	return s.send(payload)
}

// PreviewLightning triggers a single flash.
func (s *Session) PreviewLightning() error {
	payload, err := protocol.Lightning(protocol.PreviewLightning())
	if err != nil {
		return err
	}
	return s.send(payload)
}

// SetName updates the device display name.
func (s *Session) SetName(name string) error {
	payload, err := protocol.SetName(name)
	if err != nil {
		return err
	}
	return s.send(payload)
}

// QueryState requests the device state and waits for the matching
// notification. A timeout degrades to the defined unknown state rather than
// an error: transient query misses are routine on this radio link.
func (s *Session) QueryState(ctx context.Context) (protocol.DeviceState, error) {
	wait := make(chan protocol.DeviceState, 1)
	s.pendingMu.Lock()
	s.pending = wait
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		s.pending = nil
		s.pendingMu.Unlock()
	}()

	if err := s.send(protocol.StateQuery()); err != nil {
		return protocol.UnknownState(), err
	}

	timer := time.NewTimer(s.opts.QueryTimeout)
	defer timer.Stop()
	select {
	case state := <-wait:
		return state, nil
	case <-timer.C:
		s.logger.Debug("State query timed out, returning unknown state")
		return protocol.UnknownState(), nil
	case <-ctx.Done():
		return protocol.UnknownState(), nil
	}
}

// handleNotification runs on the transport's notification goroutine. Frames
// that aren't state responses are unrelated traffic and dropped.
func (s *Session) handleNotification(data []byte) {
	state, ok := protocol.DecodeState(data)
	if !ok {
		return
	}
	s.pendingMu.Lock()
	pending := s.pending
	s.pendingMu.Unlock()
	if pending != nil {
		select {
		case pending <- state:
		default:
		}
	}
}
