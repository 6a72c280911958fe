package statemachine

// reservationTable encodes spec §4.2's reservation axis: a single forward
// path from INITIAL to RESERVED, with any non-terminal state able to fall
// into RESERVE_FAILED. RESERVED and RESERVE_FAILED are absorbing — the
// reservation axis never revisits a connection once it leaves them.
var reservationTable = table{
	ReservationInitial: {
		ReservationChecking,
		ReservationFailed,
	},
	ReservationChecking: {
		ReservationHeld,
		ReservationFailed,
	},
	ReservationHeld: {
		ReservationCommitting,
		ReservationFailed,
	},
	ReservationCommitting: {
		ReservationReserved,
		ReservationFailed,
	},
	ReservationReserved: {},
	ReservationFailed:   {},
}

// ReservationMove validates a reservation-axis transition.
func ReservationMove(from, to State) (State, error) {
	return Move(AxisReservation, reservationTable, from, to)
}
