package device

import "errors"

// Session error taxonomy. Transport failures are wrapped into these at the
// session boundary and never leak as raw transport errors.
var (
	// ErrConnection covers transport connect/disconnect failures.
	ErrConnection = errors.New("connection failed")
	// ErrAuthentication is reserved for handshake rejection. The protocol
	// carries no login ACK, so it is currently indistinguishable from a
	// generic failure at the wire level.
	ErrAuthentication = errors.New("authentication failed")
	// ErrCommand covers writes that failed at the transport.
	ErrCommand = errors.New("command failed")
	// ErrNotConnected is returned for operations attempted while the
	// session is not Ready.
	ErrNotConnected = errors.New("not connected to device")
)
