package statemachine

// provisionTable encodes spec §4.2's provision axis: a reversible cycle,
// SCHEDULED <-> PROVISIONING <-> PROVISIONED <-> RELEASING, with a
// completed release going on to SCHEDULED and a failed one reverting to
// PROVISIONED (the Aggregator's Release does the latter).
var provisionTable = table{
	ProvisionScheduled: {
		ProvisionProvisioning,
	},
	ProvisionProvisioning: {
		ProvisionScheduled,  // provisioning failed, revert
		ProvisionProvisioned,
	},
	ProvisionProvisioned: {
		ProvisionProvisioning,
		ProvisionReleasing,
	},
	ProvisionReleasing: {
		ProvisionProvisioned, // release failed, revert
		ProvisionScheduled,
	},
}

// ProvisionMove validates a provision-axis transition.
func ProvisionMove(from, to State) (State, error) {
	return Move(AxisProvision, provisionTable, from, to)
}
