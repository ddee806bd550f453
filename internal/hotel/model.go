package hotel

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "hotel not found")
	ErrInvalidTimezone = apperror.Validation("invalid hotel timezone")
	ErrEmptyName       = apperror.Validation("hotel name cannot be empty")
)

// Hotel carries the per-hotel knobs the sweeps and deadline logic read.
// These are hotel-configurable values, deliberately not process env config.
type Hotel struct {
	ID       string
	Name     string
	Timezone string // IANA name, e.g. "Asia/Taipei"

	// ApprovalSLAMinutes is the window staff have to approve a paid booking
	// before the expiry sweep claims it. Zero means "use the server default".
	ApprovalSLAMinutes int

	// OverstayDetectionHour is the local hour on the expected checkout date
	// at which the overstay sweep starts flagging still-occupied stays.
	OverstayDetectionHour int

	// NoShowCutoffHour is the local hour past which a CONFIRMED booking that
	// never checked in is marked NO_SHOW the day after check-in. Nil disables
	// no-show detection for the hotel.
	NoShowCutoffHour *int

	// SameDayApprovalCapHour optionally caps the approval deadline of
	// same-day bookings at a local evening hour. Nil means the plain SLA
	// applies. Exposed as a hook; unset by default.
	SameDayApprovalCapHour *int

	CreatedAt time.Time
}

// Location resolves the hotel's IANA timezone, falling back to UTC when the
// stored name does not load.
func (h *Hotel) Location() *time.Location {
	loc, err := time.LoadLocation(h.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ApprovalSLA returns the hotel's SLA, or the given default when unset.
func (h *Hotel) ApprovalSLA(fallback time.Duration) time.Duration {
	if h.ApprovalSLAMinutes <= 0 {
		return fallback
	}
	return time.Duration(h.ApprovalSLAMinutes) * time.Minute
}

// ApprovalDeadline computes the deadline for a booking paid at the given
// instant. When the same-day cap hour is configured and the booking checks
// in the same local day it was paid, the deadline is clamped to that hour.
func (h *Hotel) ApprovalDeadline(paidAt, checkIn time.Time, fallback time.Duration) time.Time {
	deadline := paidAt.Add(h.ApprovalSLA(fallback))
	if h.SameDayApprovalCapHour == nil {
		return deadline
	}

	loc := h.Location()
	paidLocal := paidAt.In(loc)
	checkInLocal := checkIn.In(loc)
	sameDay := paidLocal.Year() == checkInLocal.Year() && paidLocal.YearDay() == checkInLocal.YearDay()
	if !sameDay {
		return deadline
	}

	cap := time.Date(paidLocal.Year(), paidLocal.Month(), paidLocal.Day(),
		*h.SameDayApprovalCapHour, 0, 0, 0, loc)
	if cap.After(paidAt) && cap.Before(deadline) {
		return cap
	}
	return deadline
}
