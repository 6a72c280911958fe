package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel a *NotFoundError unwraps to, for connection or
// sub-connection ids the store has never seen.
var ErrNotFound = errors.New("store: not found")

// NotFoundError reports a lookup against a connection or sub-connection id
// that does not exist in the store.
type NotFoundError struct {
	Kind string // "connection" or "subconnection"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("store: %s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

func newNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

// ErrCASConflict is the sentinel a *CASConflictError unwraps to. It reports
// the same condition spec §4.2 assigns to StateTransitionError at the
// persistence layer: a concurrent operation already advanced this axis past
// the expected "from" state.
var ErrCASConflict = errors.New("store: compare-and-set conflict")

// CASConflictError reports a failed per-axis compare-and-set: the stored
// value no longer matches the caller's expected "from" state.
type CASConflictError struct {
	Axis     string
	Expected string
	Actual   string
}

func (e *CASConflictError) Error() string {
	return fmt.Sprintf("store: %s axis expected %q but found %q", e.Axis, e.Expected, e.Actual)
}

func (e *CASConflictError) Unwrap() error { return ErrCASConflict }

func newCASConflictError(axis, expected, actual string) *CASConflictError {
	return &CASConflictError{Axis: axis, Expected: expected, Actual: actual}
}
