// Package apperr defines the error kinds shared by the scheduling and queue
// services. Domain sentinels wrap one of these kinds so that callers can map
// failures to transport responses with errors.Is.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidInput  = errors.New("invalid input")
	ErrTerminalState = errors.New("already in terminal state")
	ErrStorage       = errors.New("storage error")
)

// Storage wraps a persistence failure. The original error stays reachable
// through errors.Is / errors.As.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	return &storageError{op: op, err: err}
}

type storageError struct {
	op  string
	err error
}

func (e *storageError) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *storageError) Unwrap() []error {
	return []error{ErrStorage, e.err}
}

// Invalid returns an ErrInvalidInput carrying a field-level message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Kind reports which kind err belongs to, or nil if it is none of them.
func Kind(err error) error {
	for _, k := range []error{ErrNotFound, ErrConflict, ErrInvalidInput, ErrTerminalState, ErrStorage} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
