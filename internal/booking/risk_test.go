package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRiskAt(t *testing.T) {
	deadline := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		now  time.Time
		want RiskLevel
	}{
		{"well before deadline", deadline.Add(-2 * time.Hour), RiskOK},
		{"just outside due-soon window", deadline.Add(-11 * time.Minute), RiskOK},
		{"inside due-soon window", deadline.Add(-5 * time.Minute), RiskDueSoon},
		{"at the deadline", deadline, RiskDueSoon},
		{"just past the deadline", deadline.Add(time.Minute), RiskOverdue},
		{"an hour past", deadline.Add(time.Hour), RiskCritical},
		{"far past", deadline.Add(26 * time.Hour), RiskCritical},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RiskAt(tc.now, deadline))
		})
	}
}

func TestBookingRisk(t *testing.T) {
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(5 * time.Minute)

	t.Run("pending approval uses the approval deadline", func(t *testing.T) {
		b := &Booking{Status: StatusPendingApproval, ApprovalDeadlineAt: &deadline}
		assert.Equal(t, RiskDueSoon, b.Risk(now))
	})

	t.Run("pending approval without a deadline has no risk", func(t *testing.T) {
		b := &Booking{Status: StatusPendingApproval}
		assert.Equal(t, RiskNone, b.Risk(now))
	})

	t.Run("in house uses the expected checkout", func(t *testing.T) {
		b := &Booking{Status: StatusInHouse, CheckOut: now.Add(-2 * time.Hour)}
		assert.Equal(t, RiskCritical, b.Risk(now))
	})

	t.Run("terminal statuses carry no risk", func(t *testing.T) {
		for _, s := range []Status{StatusCompleted, StatusExpired, StatusCancelled, StatusDeclined, StatusNoShow} {
			b := &Booking{Status: s, ApprovalDeadlineAt: &deadline, CheckOut: now.Add(-time.Hour)}
			assert.Equal(t, RiskNone, b.Risk(now), "status %s", s)
		}
	})
}
