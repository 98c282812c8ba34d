package importer

import (
	"context"
	"errors"
	"fmt"
)

// ErrTimeout reports that a session operation exceeded its deadline. The
// session is still closed before the error is returned.
var ErrTimeout = errors.New("ledger session deadline exceeded")

var errAccountIDRequired = errors.New("accountId is required")

// ValidationError reports a malformed source transaction caught before
// conversion. The whole batch is rejected; nothing was sent to the ledger.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return "invalid import request: " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// UpstreamError reports that the ledger service could not be reached, could
// not synchronize the budget, or rejected a read/write.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("ledger unavailable during %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// SessionError reports a session lifecycle failure independent of the data
// being imported.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("ledger session %s failed: %v", e.Op, e.Err)
}

func (e *SessionError) Unwrap() error { return e.Err }

// upstream classifies an error from a remote call made inside a session.
// A blown deadline is a Timeout, not an upstream failure.
func upstream(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return &UpstreamError{Op: op, Err: err}
}

// lifecycle classifies an error from opening or closing a session.
func lifecycle(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, ErrTimeout)
	}
	return &SessionError{Op: op, Err: err}
}
