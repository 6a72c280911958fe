// Package statemachine enforces the legal transitions over a connection's
// four orthogonal sub-state axes: reservation, provision, activation, and
// lifecycle. Every transition function here is pure — it validates a move
// and returns the resulting state or an error. Persisting the result (and
// using that persistence as a per-connection lock) is the Store's job, not
// this package's; see spec §4.2 and §9's "ownership" notes.
package statemachine

// State is a state value within one axis. The axes do not share a State
// space — a ReservationState and a ProvisionState both happen to be typed
// State, but comparing one against the other is meaningless and the
// transition tables never let it happen.
type State string

// Reservation axis.
const (
	ReservationInitial    State = "INITIAL"
	ReservationChecking   State = "RESERVE_CHECKING"
	ReservationHeld       State = "RESERVE_HELD"
	ReservationCommitting State = "RESERVE_COMMITTING"
	ReservationReserved   State = "RESERVED"
	ReservationFailed     State = "RESERVE_FAILED"
)

// Provision axis.
const (
	ProvisionScheduled    State = "SCHEDULED"
	ProvisionProvisioning State = "PROVISIONING"
	ProvisionProvisioned  State = "PROVISIONED"
	ProvisionReleasing    State = "RELEASING"
)

// Activation axis.
const (
	ActivationInactive     State = "INACTIVE"
	ActivationActivating   State = "ACTIVATING"
	ActivationActive       State = "ACTIVE"
	ActivationDeactivating State = "DEACTIVATING"
)

// Lifecycle axis.
const (
	LifecycleInitial          State = "INITIAL"
	LifecycleCreated          State = "CREATED"
	LifecycleTerminating      State = "TERMINATING"
	LifecycleTerminated       State = "TERMINATED"
	LifecycleTerminatedFailed State = "TERMINATED_FAILED"
)

// Axis names a sub-state axis, used in error messages and table lookups.
type Axis string

const (
	AxisReservation Axis = "reservation"
	AxisProvision   Axis = "provision"
	AxisActivation  Axis = "activation"
	AxisLifecycle   Axis = "lifecycle"
)
