package topology

import (
	"errors"
	"fmt"
)

// ErrTopology is the sentinel every *TopologyError wraps, so callers can
// test with errors.Is(err, topology.ErrTopology) without caring about the
// exact message.
var ErrTopology = errors.New("topology error")

// TopologyError reports an unknown network/port reference or an unroutable
// request (no surviving path between two STPs).
type TopologyError struct {
	Message string
}

func (e *TopologyError) Error() string {
	return e.Message
}

func (e *TopologyError) Unwrap() error {
	return ErrTopology
}

// newTopologyError builds a *TopologyError from a fmt-style message.
func newTopologyError(format string, args ...interface{}) *TopologyError {
	return &TopologyError{Message: fmt.Sprintf(format, args...)}
}
