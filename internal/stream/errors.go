package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrNotOpen is returned when Send is attempted on a connection that
	// is not in the open phase. Sends are never queued.
	ErrNotOpen = errors.New("stream: connection not open")

	// ErrCancelled marks a session abandoned by the caller. It is a
	// terminal outcome, not a failure.
	ErrCancelled = errors.New("stream: session cancelled")
)

// ConnectError indicates the channel could not be established at all.
// It is handled by the reconnect policy and only surfaces to the consumer
// once reconnection is exhausted.
type ConnectError struct {
	Addr string
	Err  error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("stream: connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TransportError indicates the channel dropped after having been open.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("stream: transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// BackendError is an explicit error frame reported by the search backend.
// Fatal errors end the session; transient ones are recorded and the
// stream continues.
type BackendError struct {
	Message string
	Fatal   bool
}

func (e *BackendError) Error() string {
	return "stream: backend: " + e.Message
}

// ExhaustedReconnectError indicates the configured maximum number of
// reconnect attempts was used without re-establishing a working channel.
type ExhaustedReconnectError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedReconnectError) Error() string {
	return fmt.Sprintf("stream: reconnect exhausted after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedReconnectError) Unwrap() error { return e.Last }
