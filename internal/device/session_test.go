package device_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yummydirtx/open-gamalta/internal/ble"
	"github.com/yummydirtx/open-gamalta/internal/device"
	"github.com/yummydirtx/open-gamalta/internal/protocol"
	"github.com/yummydirtx/open-gamalta/internal/scene"
)

// mockTransport records framed packets and lets tests inject notifications.
type mockTransport struct {
	mu        sync.Mutex
	connected bool
	writes    [][]byte
	callback  func([]byte)

	connectErr error
	writeErr   error

	// autoRespond replies to every state query with this notification.
	autoRespond []byte
}

func (m *mockTransport) Connect(ctx context.Context, address string) error {
	if m.connectErr != nil {
		return m.connectErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	return nil
}

func (m *mockTransport) Disconnect() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

func (m *mockTransport) Write(data []byte) error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return ble.ErrNotConnected
	}
	if m.writeErr != nil {
		err := m.writeErr
		m.mu.Unlock()
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	m.writes = append(m.writes, cp)
	auto := m.autoRespond
	cb := m.callback
	m.mu.Unlock()

	if auto != nil && len(data) > 2 && data[2] == protocol.CmdStateQuery && cb != nil {
		go cb(auto)
	}
	return nil
}

func (m *mockTransport) Subscribe(callback func(data []byte)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = callback
	return nil
}

func (m *mockTransport) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// Notify injects a notification as the device would.
func (m *mockTransport) Notify(data []byte) {
	m.mu.Lock()
	cb := m.callback
	m.mu.Unlock()
	if cb != nil {
		cb(data)
	}
}

// opcodes returns the opcode of every packet written so far.
func (m *mockTransport) opcodes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ops []byte
	for _, w := range m.writes {
		ops = append(ops, w[2])
	}
	return ops
}

func testOptions() device.Options {
	return device.Options{
		Password:        protocol.DefaultPassword,
		CommandDelay:    0,
		QueryTimeout:    100 * time.Millisecond,
		SubscribeSettle: 0,
	}
}

func newTestSession(t *testing.T) (*device.Session, *mockTransport) {
	t.Helper()
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.FatalLevel})
	registry := scene.NewRegistry(logger)
	registry.Seed(scene.Builtins()...)
	transport := &mockTransport{}
	return device.NewSession(logger, transport, registry, testOptions()), transport
}

func Test_Connect_HandshakeOrder(t *testing.T) {
	session, transport := newTestSession(t)

	require.NoError(t, session.Connect(context.Background(), "AA:BB"))
	assert.Equal(t, device.StateReady, session.State())

	// login, time sync, scene activate - in that order, nothing interleaved
	require.Len(t, transport.writes, 3)
	assert.Equal(t, []byte{protocol.CmdLogin, protocol.CmdTimeSync, protocol.CmdSceneActivate}, transport.opcodes())

	// every packet framed with header and consecutive sequence numbers
	first := transport.writes[0][1]
	for i, w := range transport.writes {
		assert.Equal(t, protocol.PacketHeader, w[0])
		assert.Equal(t, first+byte(i), w[1])
	}

	// login carries the default password
	assert.Equal(t, []byte{protocol.CmdLogin, 0x07, 0x02, '1', '2', '3', '4', '5', '6'}, transport.writes[0][2:])
}

func Test_Connect_TransportFailure(t *testing.T) {
	session, transport := newTestSession(t)
	transport.connectErr = errors.New("dial failed")

	err := session.Connect(context.Background(), "AA:BB")
	assert.ErrorIs(t, err, device.ErrConnection)
	assert.Equal(t, device.StateDisconnected, session.State())
}

func Test_Operations_RequireReady(t *testing.T) {
	session, _ := newTestSession(t)

	color, err := protocol.RGB(255, 0, 0)
	require.NoError(t, err)

	assert.ErrorIs(t, session.SetPower(true), device.ErrNotConnected)
	assert.ErrorIs(t, session.SetColor(color), device.ErrNotConnected)
	assert.ErrorIs(t, session.SetBrightness(50), device.ErrNotConnected)
	assert.ErrorIs(t, session.SetMode(context.Background(), protocol.ModeManual), device.ErrNotConnected)
	assert.ErrorIs(t, session.ConfigureLightning(protocol.PreviewLightning()), device.ErrNotConnected)
	assert.ErrorIs(t, session.SetName("Tank"), device.ErrNotConnected)

	_, err = session.QueryState(context.Background())
	assert.ErrorIs(t, err, device.ErrNotConnected)

	// state is not mutated by rejected operations
	assert.Equal(t, device.StateDisconnected, session.State())
}

func Test_Operations_SucceedOnceReady(t *testing.T) {
	session, transport := newTestSession(t)
	require.NoError(t, session.Connect(context.Background(), "AA:BB"))
	transport.writes = nil

	require.NoError(t, session.SetPower(true))
	require.NoError(t, session.SetBrightness(80))
	require.NoError(t, session.SetName("Reef"))

	assert.Equal(t, []byte{protocol.CmdPower, protocol.CmdBrightness, protocol.CmdSetName}, transport.opcodes())
}

func Test_SetColor_ManualFlag(t *testing.T) {
	session, transport := newTestSession(t)
	require.NoError(t, session.Connect(context.Background(), "AA:BB"))
	transport.writes = nil

	color, err := protocol.NewColor(255, 100, 30, 0, 0)
	require.NoError(t, err)
	require.NoError(t, session.SetColor(color))

	require.Len(t, transport.writes, 1)
	assert.Equal(t, []byte{protocol.CmdColor, 0x06, 255, 100, 30, 0, 0, protocol.ApplyManual}, transport.writes[0][2:])
}

func Test_SetMode_Manual(t *testing.T) {
	session, transport := newTestSession(t)
	require.NoError(t, session.Connect(context.Background(), "AA:BB"))
	transport.writes = nil

	require.NoError(t, session.SetMode(context.Background(), protocol.ModeManual))
	assert.Equal(t, []byte{protocol.CmdMode}, transport.opcodes())
}

func Test_SetMode_SceneDance(t *testing.T) {
	session, transport := newTestSession(t)
	require.NoError(t, session.Connect(context.Background(), "AA:BB"))
	transport.writes = nil
	transport.autoRespond = []byte{0x04, 0x08, 0x01, 0x03, 88, 0, 0, 0, 255, 0}

	require.NoError(t, session.SetMode(context.Background(), protocol.ModeFishBlue))

	// interpolated color + brightness, then mode, activation, and the query
	assert.Equal(t, []byte{
		protocol.CmdColor, protocol.CmdBrightness,
		protocol.CmdMode, protocol.CmdSceneActivate, protocol.CmdStateQuery,
	}, transport.opcodes())

	// the color push uses the scene apply flag
	colorPacket := transport.writes[0]
	assert.Equal(t, protocol.ApplyScene, colorPacket[len(colorPacket)-1])
}

func Test_SetMode_CustomSlotWithoutScene(t *testing.T) {
	session, transport := newTestSession(t)
	require.NoError(t, session.Connect(context.Background(), "AA:BB"))
	transport.writes = nil
	transport.autoRespond = []byte{0x04, 0x08, 0x02, 0x0B, 0, 0, 0, 0, 0, 0}

	require.NoError(t, session.SetMode(context.Background(), protocol.ModeCustomBasic))

	// no registered scene: no interpolation push, but activation and query
	// still run
	assert.Equal(t, []byte{
		protocol.CmdMode, protocol.CmdSceneActivate, protocol.CmdStateQuery,
	}, transport.opcodes())
}

func Test_QueryState(t *testing.T) {
	t.Run("decodes the matching notification", func(t *testing.T) {
		session, transport := newTestSession(t)
		require.NoError(t, session.Connect(context.Background(), "AA:BB"))
		transport.autoRespond = []byte{0x04, 0x08, 0x01, 0x00, 75, 255, 100, 30, 0, 0}

		state, err := session.QueryState(context.Background())
		require.NoError(t, err)
		assert.True(t, state.Power)
		assert.Equal(t, protocol.ModeManual, state.Mode)
		assert.Equal(t, 75, state.Brightness)
		assert.Equal(t, protocol.Color{R: 255, G: 100, B: 30}, state.Color)
	})

	t.Run("decodes the framed notification the radio delivers", func(t *testing.T) {
		session, transport := newTestSession(t)
		require.NoError(t, session.Connect(context.Background(), "AA:BB"))
		// real notifications arrive with the [0xA5][seq] packet framing intact
		transport.autoRespond = []byte{0xA5, 0x21, 0x04, 0x08, 0x01, 0x00, 65, 255, 100, 30, 0, 0}

		state, err := session.QueryState(context.Background())
		require.NoError(t, err)
		assert.True(t, state.Power)
		assert.Equal(t, 65, state.Brightness)
		assert.Equal(t, protocol.Color{R: 255, G: 100, B: 30}, state.Color)
	})

	t.Run("ignores unrelated traffic while waiting", func(t *testing.T) {
		session, transport := newTestSession(t)
		require.NoError(t, session.Connect(context.Background(), "AA:BB"))

		go func() {
			// let the query register its wait before traffic arrives
			time.Sleep(10 * time.Millisecond)
			transport.Notify([]byte{0x99, 0x01, 0x00})
			transport.Notify([]byte{0x04, 0x08, 0x01, 0x00, 50, 1, 2, 3, 4, 5})
		}()

		state, err := session.QueryState(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 50, state.Brightness)
	})

	t.Run("timeout degrades to the unknown state", func(t *testing.T) {
		session, _ := newTestSession(t)
		require.NoError(t, session.Connect(context.Background(), "AA:BB"))

		state, err := session.QueryState(context.Background())
		require.NoError(t, err)
		assert.Equal(t, protocol.UnknownState(), state)
	})
}

func Test_WriteFailure_FaultsSession(t *testing.T) {
	session, transport := newTestSession(t)
	require.NoError(t, session.Connect(context.Background(), "AA:BB"))
	transport.writeErr = errors.New("gatt write failed")

	err := session.SetPower(true)
	assert.ErrorIs(t, err, device.ErrCommand)
	assert.Equal(t, device.StateFaulted, session.State())

	// faulted sessions reject further operations with NotConnected
	assert.ErrorIs(t, session.SetPower(false), device.ErrNotConnected)
}

func Test_Disconnect(t *testing.T) {
	session, transport := newTestSession(t)
	require.NoError(t, session.Connect(context.Background(), "AA:BB"))

	require.NoError(t, session.Disconnect())
	assert.Equal(t, device.StateDisconnected, session.State())
	assert.False(t, transport.IsConnected())
	assert.ErrorIs(t, session.SetPower(true), device.ErrNotConnected)
}

func Test_FullScenario(t *testing.T) {
	session, transport := newTestSession(t)

	// connect: handshake is exactly login, time sync, scene activate
	require.NoError(t, session.Connect(context.Background(), "AA:BB"))
	assert.Equal(t, []byte{protocol.CmdLogin, protocol.CmdTimeSync, protocol.CmdSceneActivate}, transport.opcodes())

	require.NoError(t, session.SetPower(true))

	color, err := protocol.RGB(255, 100, 30)
	require.NoError(t, err)
	require.NoError(t, session.SetColor(color))

	// the device echoes back what was last applied
	transport.autoRespond = []byte{0x04, 0x08, 0x01, 0x00, 100, 255, 100, 30, 0, 0}
	state, err := session.QueryState(context.Background())
	require.NoError(t, err)
	assert.True(t, state.Power)
	assert.Equal(t, protocol.Color{R: 255, G: 100, B: 30}, state.Color)
}
