package statemachine

import (
	"errors"
	"fmt"
)

// ErrStateTransition is the sentinel every StateTransitionError unwraps to,
// so callers can test with errors.Is(err, statemachine.ErrStateTransition)
// without caring about the offending axis.
var ErrStateTransition = errors.New("illegal state transition")

// StateTransitionError reports an attempted move that the axis's transition
// table does not allow.
type StateTransitionError struct {
	Axis Axis
	From State
	To   State
}

func (e *StateTransitionError) Error() string {
	return fmt.Sprintf("%s: illegal transition from %s to %s", e.Axis, e.From, e.To)
}

func (e *StateTransitionError) Unwrap() error { return ErrStateTransition }

func newStateTransitionError(axis Axis, from, to State) *StateTransitionError {
	return &StateTransitionError{Axis: axis, From: from, To: to}
}
