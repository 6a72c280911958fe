package registry

import (
	"errors"
	"fmt"
)

// ErrNotRegistered is the sentinel every NotRegisteredError unwraps to.
var ErrNotRegistered = errors.New("registry: no handler registered")

// NotRegisteredError reports a Dispatch call against an (event, locality)
// pair nobody has registered a Handler for.
type NotRegisteredError struct {
	Event    Event
	Locality Locality
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("registry: no handler registered for %s/%s", e.Event, e.Locality)
}

func (e *NotRegisteredError) Unwrap() error { return ErrNotRegistered }

func newNotRegisteredError(event Event, locality Locality) *NotRegisteredError {
	return &NotRegisteredError{Event: event, Locality: locality}
}
