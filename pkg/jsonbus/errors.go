package jsonbus

import (
	"errors"
	"fmt"
)

// Sentinel errors for the bus lifecycle. Struct errors below match them
// through errors.Is.
var (
	ErrConnection       = errors.New("cannot reach control server")
	ErrAlreadyConnected = errors.New("bus client already connected")
	ErrNotConnected     = errors.New("bus client not connected")
	ErrConnectionClosed = errors.New("connection closed")
	ErrIO               = errors.New("bus i/o failure")
	ErrTimeout          = errors.New("bus timeout")
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrHandshake        = errors.New("handshake failed")
)

// ConnectionError reports a failed dial.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

func (e *ConnectionError) Is(target error) bool { return target == ErrConnection }

// IOError reports a failed write or read. The connection is closed afterwards.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("bus %s failed: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func (e *IOError) Is(target error) bool { return target == ErrIO }

// MalformedFrameError reports a frame that is not a JSON object or breaks the
// framing rules. Frame holds at most the first 256 bytes of the offending data.
type MalformedFrameError struct {
	Frame []byte
	Err   error
}

func (e *MalformedFrameError) Error() string {
	return fmt.Sprintf("malformed frame %q: %v", e.Frame, e.Err)
}

func (e *MalformedFrameError) Unwrap() error { return e.Err }

func (e *MalformedFrameError) Is(target error) bool { return target == ErrMalformedFrame }

// HandshakeError reports a missing, unreadable, or rejecting welcome frame.
type HandshakeError struct {
	Reason string
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("handshake failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("handshake failed: %s", e.Reason)
}

func (e *HandshakeError) Unwrap() error { return e.Err }

func (e *HandshakeError) Is(target error) bool { return target == ErrHandshake }

// IsTimeout returns true if the error is a receive or dial timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// IsDisconnected returns true if the error left the client closed.
func IsDisconnected(err error) bool {
	return errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, ErrIO) ||
		errors.Is(err, ErrMalformedFrame) ||
		errors.Is(err, ErrNotConnected)
}

func truncate(b []byte) []byte {
	const max = 256
	if len(b) > max {
		b = b[:max]
	}
	return append([]byte(nil), b...)
}
