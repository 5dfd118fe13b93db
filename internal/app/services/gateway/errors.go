package gateway

import (
	"errors"
	"fmt"
)

// ErrUnauthorized covers every ownership, session, and signature failure.
// It is deliberately coarse: callers learn the request was not allowed,
// not which check failed.
var ErrUnauthorized = errors.New("not allowed")

// WorkerError is a non-success response from the settlement worker after
// it received the request. The body is surfaced verbatim and the request
// is never retried automatically.
type WorkerError struct {
	Status int
	Body   string
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker error[%d]: %s", e.Status, e.Body)
}

// TransportError is a network failure before any worker response was
// received. Funds may or may not have moved; callers must re-query
// authoritative state rather than assume.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("worker transport: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
