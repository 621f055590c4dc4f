// Package faults defines the error taxonomy shared by the sync engine,
// the retrieval service and the tool layer.
package faults

import (
	"errors"
	"fmt"
)

var (
	// ErrAuth indicates invalid or missing provider credentials.
	// Fatal at sync start; never recovered locally.
	ErrAuth = errors.New("provider authentication failed")

	// ErrNotFound indicates the catalog has no such card or set.
	// Skip-and-continue during sync, "no match" during retrieval.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates malformed input to a public operation,
	// rejected before any network call.
	ErrValidation = errors.New("validation failed")
)

// Transient wraps a network, timeout, rate-limit or other retryable
// provider failure.
type Transient struct {
	Op  string
	Err error
}

func (t *Transient) Error() string {
	return fmt.Sprintf("%s: transient provider failure: %v", t.Op, t.Err)
}

func (t *Transient) Unwrap() error { return t.Err }

// Transientf wraps err as a transient provider failure for operation op.
func Transientf(op string, err error) error {
	return &Transient{Op: op, Err: err}
}

// Authf wraps err as an authentication failure for operation op.
func Authf(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrAuth, err)
}

// Validationf builds a structured validation error.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func IsAuth(err error) bool       { return errors.Is(err, ErrAuth) }
func IsNotFound(err error) bool   { return errors.Is(err, ErrNotFound) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }

// IsTransient reports whether err is (or wraps) a transient provider failure.
func IsTransient(err error) bool {
	var t *Transient
	return errors.As(err, &t)
}
