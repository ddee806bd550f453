package booking

// transitions holds every edge the lifecycle allows. EXPIRED, COMPLETED,
// DECLINED, CANCELLED and NO_SHOW have no outgoing edges: they are terminal
// and irreversible, and any attempt to leave them fails with a conflict
// evaluated after the row lock is held, never before.
var transitions = map[Status]map[Status]bool{
	StatusPendingPayment: {
		StatusPendingApproval: true, // payment captured
		StatusExpired:         true, // payment timeout
		StatusCancelled:       true,
	},
	StatusPendingApproval: {
		StatusConfirmed: true, // staff approval inside the SLA window
		StatusDeclined:  true,
		StatusExpired:   true, // expiry sweep past the deadline
		StatusCancelled: true,
	},
	StatusConfirmed: {
		StatusInHouse:   true, // room assignment + check-in
		StatusNoShow:    true, // arrival-cutoff sweep
		StatusCancelled: true,
	},
	StatusInHouse: {
		StatusCompleted: true, // checkout released the room
		StatusCancelled: true,
	},
}

// CanTransition reports whether the edge from -> to exists.
func CanTransition(from, to Status) bool {
	return transitions[from][to]
}

// Terminal reports whether a status has no outgoing edges.
func Terminal(s Status) bool {
	return len(transitions[s]) == 0
}

// guardTransition is the post-lock re-validation every mutating operation
// runs: the booking may have changed between the decision to act and the
// moment its row lock was granted.
func guardTransition(b *Booking, to Status) error {
	if b.Status == StatusExpired || b.ExpiredAt != nil {
		// expired_at is never cleared; an approval racing the scheduler
		// loses here, after the lock, with a conflict.
		return ErrInvalidTransition
	}
	if !CanTransition(b.Status, to) {
		return ErrInvalidTransition
	}
	return nil
}
