// Package store persists ServiceConnection and SubConnection records (spec
// §3) and implements the per-axis compare-and-set that doubles as the
// per-connection lock described in spec §4.2 and §9. The state machine
// itself stays pure; this package is the only place a transition's result
// is written down.
package store

import (
	"time"

	"github.com/aggnsa/aggnsa/pkg/statemachine"
	"github.com/aggnsa/aggnsa/pkg/topology"
)

// ServiceConnection is the parent record created by Reserve and mutated by
// state transitions and ReserveCommit's revision bump.
type ServiceConnection struct {
	ConnectionID         string
	Revision             int
	GlobalReservationID  string
	Description          string
	RequesterIdentity    string
	// RequesterReference is the requester's own free-text label for the
	// connection, distinct from ConnectionID. Stored but never indexed.
	RequesterReference string
	ReserveTime        time.Time

	ReservationState statemachine.State
	ProvisionState   statemachine.State
	ActivationState  statemachine.State
	LifecycleState   statemachine.State

	Source topology.STP
	Dest   topology.STP

	StartTime time.Time
	EndTime   time.Time
	Bandwidth int64
}

// StateFor returns the connection's current state on the given axis.
func (c *ServiceConnection) StateFor(axis statemachine.Axis) statemachine.State {
	switch axis {
	case statemachine.AxisReservation:
		return c.ReservationState
	case statemachine.AxisProvision:
		return c.ProvisionState
	case statemachine.AxisActivation:
		return c.ActivationState
	case statemachine.AxisLifecycle:
		return c.LifecycleState
	default:
		return ""
	}
}

// SubConnection is one leg of a ServiceConnection's path, fulfilled either
// by the in-process LOCAL backend or delegated to a REMOTE peer NSA.
type SubConnection struct {
	ParentID string
	OrderID  int // 0-based index within the path; defines composition order.

	ProviderNSA string
	// LocalLink is true when this leg is fulfilled by the in-process backend
	// rather than a peer aggregator RPC.
	LocalLink bool
	// ConnectionID is the id assigned by this leg's provider, which for a
	// REMOTE leg may differ from the parent's ConnectionID.
	ConnectionID string

	ReservationState statemachine.State
	ProvisionState   statemachine.State
	ActivationState  statemachine.State
	LifecycleState   statemachine.State

	Source topology.STP
	Dest   topology.STP

	StartTime time.Time
	EndTime   time.Time
	Bandwidth int64
}

// StateFor returns the sub-connection's current state on the given axis.
func (s *SubConnection) StateFor(axis statemachine.Axis) statemachine.State {
	switch axis {
	case statemachine.AxisReservation:
		return s.ReservationState
	case statemachine.AxisProvision:
		return s.ProvisionState
	case statemachine.AxisActivation:
		return s.ActivationState
	case statemachine.AxisLifecycle:
		return s.LifecycleState
	default:
		return ""
	}
}
