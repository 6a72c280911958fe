package local

import (
	"errors"
	"fmt"

	"github.com/aggnsa/aggnsa/pkg/topology"
)

// ErrCapacity is the sentinel every CapacityError unwraps to.
var ErrCapacity = errors.New("local: insufficient port capacity")

// CapacityError reports a Reserve leg whose requested bandwidth exceeds a
// port's tracked AvailableCapacity.
type CapacityError struct {
	STP       topology.STP
	Requested int64
	Available int64
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("local: %s has %d available, requested %d", e.STP, e.Available, e.Requested)
}

func (e *CapacityError) Unwrap() error { return ErrCapacity }

func newCapacityError(stp topology.STP, requested, available int64) *CapacityError {
	return &CapacityError{STP: stp, Requested: requested, Available: available}
}
