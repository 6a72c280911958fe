package statemachine

// lifecycleTable encodes spec §4.2's lifecycle axis: INITIAL -> CREATED ->
// TERMINATING -> TERMINATED, with any non-terminal state able to fall into
// the absorbing TERMINATED_FAILED. TERMINATED and TERMINATED_FAILED are both
// absorbing — once a connection leaves the lifecycle axis it never returns.
var lifecycleTable = table{
	LifecycleInitial: {
		LifecycleCreated,
		LifecycleTerminatedFailed,
	},
	LifecycleCreated: {
		LifecycleTerminating,
		LifecycleTerminatedFailed,
	},
	LifecycleTerminating: {
		LifecycleTerminated,
		LifecycleTerminatedFailed,
	},
	LifecycleTerminated:       {},
	LifecycleTerminatedFailed: {},
}

// LifecycleMove validates a lifecycle-axis transition.
func LifecycleMove(from, to State) (State, error) {
	return Move(AxisLifecycle, lifecycleTable, from, to)
}

// IsTerminal reports whether a lifecycle state has no further legal moves.
func IsTerminal(s State) bool {
	return s == LifecycleTerminated || s == LifecycleTerminatedFailed
}
