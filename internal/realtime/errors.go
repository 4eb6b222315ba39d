package realtime

import (
	"errors"
	"fmt"
)

// Errors
var (
	ErrNotConnected       = errors.New("not connected")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrMissingCredential  = errors.New("missing credential")
	ErrMissingKind        = errors.New("envelope has no kind")
	ErrInvalidPayload     = errors.New("envelope payload is not an object")
)

// ConnectionError is a transport-level failure: a failed dial or a broken
// read. It triggers the reconnection policy.
type ConnectionError struct {
	Attempt int // 0 for the attempt started by Connect
	Err     error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("realtime connection (attempt %d): %v", e.Attempt, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ParseError is a malformed inbound frame. The frame is dropped and the
// connection stays open.
type ParseError struct {
	Frame []byte // Truncated copy of the offending frame
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse frame %q: %v", e.Frame, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SendFailure reports a frame that did not reach the transport.
type SendFailure struct {
	Size int
	Err  error
}

func (e *SendFailure) Error() string {
	return fmt.Sprintf("send %d bytes: %v", e.Size, e.Err)
}

func (e *SendFailure) Unwrap() error { return e.Err }

const maxFrameExcerpt = 256

func excerpt(frame []byte) []byte {
	if len(frame) > maxFrameExcerpt {
		frame = frame[:maxFrameExcerpt]
	}
	return append([]byte(nil), frame...)
}
