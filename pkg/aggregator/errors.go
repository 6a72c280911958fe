package aggregator

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the operation-level failures named in the broker's
// error taxonomy (spec.md §7). Callers type-assert to the struct below for
// the per-leg detail; everyone else can errors.Is against these.
var (
	ErrConnectionCreate = errors.New("reservation failed")
	ErrProvision        = errors.New("provision failed")
	ErrRelease          = errors.New("release failed")
	ErrTerminate        = errors.New("terminate failed")
	ErrInternal         = errors.New("internal error")
)

// legFailure records one leg's failure for aggregate-error formatting.
type legFailure struct {
	OrderID     int
	ProviderNSA string
	Err         error
}

func (f legFailure) String() string {
	return fmt.Sprintf("leg %d (%s): %v", f.OrderID, f.ProviderNSA, f.Err)
}

// formatAggregateError renders total legs attempted and the subset that
// failed into the single message every operation error below carries. A
// single-leg operation with a single failure surfaces that leg's error
// verbatim (spec.md §4.4 step 11); anything wider gets the "<F>/<N> ...
// failed: <per-leg>" form spec.md §7 describes, legs joined by "; " so one
// underlying message's own commas or periods don't run together with the
// next leg's.
func formatAggregateError(action string, total int, failures []legFailure) string {
	if total == 1 && len(failures) == 1 {
		return failures[0].Err.Error()
	}
	msgs := make([]string, len(failures))
	for i, f := range failures {
		msgs[i] = f.String()
	}
	return fmt.Sprintf("%d/%d %s failed: %s", len(failures), total, action, strings.Join(msgs, "; "))
}

// ConnectionCreateError reports a Reserve call where one or more legs could
// not be held. ConnectionID is empty when failure occurred before a
// connection id was minted.
type ConnectionCreateError struct {
	ConnectionID string
	Message      string
}

func (e *ConnectionCreateError) Error() string { return e.Message }

func (e *ConnectionCreateError) Unwrap() error { return ErrConnectionCreate }

func newConnectionCreateError(connectionID, action string, total int, failures []legFailure) *ConnectionCreateError {
	return &ConnectionCreateError{ConnectionID: connectionID, Message: formatAggregateError(action, total, failures)}
}

// ProvisionError reports a Provision call where one or more legs could not
// be provisioned; the legs that did succeed have already been released by
// the time this is returned.
type ProvisionError struct {
	ConnectionID string
	Message      string
}

func (e *ProvisionError) Error() string { return e.Message }

func (e *ProvisionError) Unwrap() error { return ErrProvision }

func newProvisionError(connectionID string, total int, failures []legFailure) *ProvisionError {
	return &ProvisionError{ConnectionID: connectionID, Message: formatAggregateError("provision", total, failures)}
}

// ReleaseError reports a Release call where one or more legs could not be
// released.
type ReleaseError struct {
	ConnectionID string
	Message      string
}

func (e *ReleaseError) Error() string { return e.Message }

func (e *ReleaseError) Unwrap() error { return ErrRelease }

func newReleaseError(connectionID string, total int, failures []legFailure) *ReleaseError {
	return &ReleaseError{ConnectionID: connectionID, Message: formatAggregateError("release", total, failures)}
}

// TerminateError reports a Terminate call where one or more legs could not
// be torn down. Per spec.md Testable Property 5 this is still the last
// word: the parent is marked TERMINATED_FAILED rather than left retryable.
type TerminateError struct {
	ConnectionID string
	Message      string
}

func (e *TerminateError) Error() string { return e.Message }

func (e *TerminateError) Unwrap() error { return ErrTerminate }

func newTerminateError(connectionID string, total int, failures []legFailure) *TerminateError {
	return &TerminateError{ConnectionID: connectionID, Message: formatAggregateError("terminate", total, failures)}
}

// InternalServerError reports a failure in the broker's own bookkeeping
// (store CAS, id generation, topology lookup) rather than in a leg's
// provider — the caller gets no actionable remediation, just a log-worthy
// detail.
type InternalServerError struct {
	Message string
}

func (e *InternalServerError) Error() string { return e.Message }

func (e *InternalServerError) Unwrap() error { return ErrInternal }

func newInternalServerError(format string, args ...interface{}) *InternalServerError {
	return &InternalServerError{Message: fmt.Sprintf(format, args...)}
}
