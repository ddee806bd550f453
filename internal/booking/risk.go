package booking

import "time"

// RiskLevel classifies how close to or past a deadline a booking is. It is a
// pure function of the current time and the relevant deadline: computed on
// demand for display, never persisted, and never itself a trigger for a
// transition (only the sweeps transition).
type RiskLevel string

const (
	RiskOK       RiskLevel = "ok"
	RiskDueSoon  RiskLevel = "due_soon"
	RiskOverdue  RiskLevel = "overdue"
	RiskCritical RiskLevel = "critical"
	RiskNone     RiskLevel = "none" // no deadline applies in this status
)

const (
	dueSoonWindow   = 10 * time.Minute
	criticalOverrun = time.Hour
)

// RiskAt classifies a deadline against the given instant.
func RiskAt(now, deadline time.Time) RiskLevel {
	overrun := now.Sub(deadline)
	switch {
	case overrun >= criticalOverrun:
		return RiskCritical
	case overrun > 0:
		return RiskOverdue
	case overrun > -dueSoonWindow:
		return RiskDueSoon
	default:
		return RiskOK
	}
}

// Risk returns the booking's display risk for its current status: the
// approval deadline while pending approval, the expected checkout while in
// house, and none otherwise.
func (b *Booking) Risk(now time.Time) RiskLevel {
	switch b.Status {
	case StatusPendingApproval:
		if b.ApprovalDeadlineAt == nil {
			return RiskNone
		}
		return RiskAt(now, *b.ApprovalDeadlineAt)
	case StatusInHouse:
		return RiskAt(now, b.CheckOut)
	default:
		return RiskNone
	}
}
