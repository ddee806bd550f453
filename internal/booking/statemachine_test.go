package booking

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct {
		from, to Status
	}{
		{StatusPendingPayment, StatusPendingApproval},
		{StatusPendingPayment, StatusExpired},
		{StatusPendingPayment, StatusCancelled},
		{StatusPendingApproval, StatusConfirmed},
		{StatusPendingApproval, StatusDeclined},
		{StatusPendingApproval, StatusExpired},
		{StatusPendingApproval, StatusCancelled},
		{StatusConfirmed, StatusInHouse},
		{StatusConfirmed, StatusNoShow},
		{StatusConfirmed, StatusCancelled},
		{StatusInHouse, StatusCompleted},
		{StatusInHouse, StatusCancelled},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	forbidden := []struct {
		from, to Status
	}{
		{StatusPendingPayment, StatusConfirmed},
		{StatusPendingPayment, StatusInHouse},
		{StatusPendingApproval, StatusInHouse},
		{StatusConfirmed, StatusCompleted},
		{StatusConfirmed, StatusPendingApproval},
		{StatusInHouse, StatusConfirmed},
		{StatusCompleted, StatusInHouse},
		{StatusDeclined, StatusConfirmed},
		{StatusCancelled, StatusPendingPayment},
		{StatusNoShow, StatusInHouse},
		{StatusExpired, StatusConfirmed},
		{StatusExpired, StatusPendingApproval},
		{StatusExpired, StatusCancelled},
	}
	for _, tc := range forbidden {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be forbidden", tc.from, tc.to)
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{StatusCompleted, StatusDeclined, StatusCancelled, StatusExpired, StatusNoShow} {
		assert.True(t, Terminal(s), "%s should be terminal", s)
	}
	for _, s := range []Status{StatusPendingPayment, StatusPendingApproval, StatusConfirmed, StatusInHouse} {
		assert.False(t, Terminal(s), "%s should not be terminal", s)
	}
}

func TestGuardTransition(t *testing.T) {
	t.Run("allows valid transition", func(t *testing.T) {
		b := &Booking{Status: StatusPendingApproval}
		require.NoError(t, guardTransition(b, StatusConfirmed))
	})

	t.Run("rejects invalid transition", func(t *testing.T) {
		b := &Booking{Status: StatusConfirmed}
		err := guardTransition(b, StatusCompleted)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("expired booking cannot move anywhere", func(t *testing.T) {
		b := &Booking{Status: StatusExpired}
		for _, to := range []Status{StatusPendingApproval, StatusConfirmed, StatusCancelled, StatusInHouse} {
			err := guardTransition(b, to)
			assert.True(t, errors.Is(err, ErrInvalidTransition), "expired -> %s must fail", to)
		}
	})

	t.Run("expired_at stamp blocks transition regardless of status", func(t *testing.T) {
		// The stamp and status are written together, but the stamp alone
		// must be enough to refuse revival.
		now := time.Now().UTC()
		b := &Booking{Status: StatusPendingApproval, ExpiredAt: &now}
		err := guardTransition(b, StatusConfirmed)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})
}
