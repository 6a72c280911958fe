package statemachine

// activationTable encodes spec §4.2's activation axis, the same reversible
// cycle shape as the provision axis but over the data-plane's on/off state:
// INACTIVE <-> ACTIVATING <-> ACTIVE <-> DEACTIVATING -> INACTIVE.
var activationTable = table{
	ActivationInactive: {
		ActivationActivating,
	},
	ActivationActivating: {
		ActivationInactive, // activation failed, revert
		ActivationActive,
	},
	ActivationActive: {
		ActivationActivating,
		ActivationDeactivating,
	},
	ActivationDeactivating: {
		ActivationActive, // deactivation failed, revert
		ActivationInactive,
	},
}

// ActivationMove validates an activation-axis transition.
func ActivationMove(from, to State) (State, error) {
	return Move(AxisActivation, activationTable, from, to)
}
