package booking

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "booking not found")
	ErrInvalidDateRange = apperror.Validation("check-in must be before check-out")
	ErrHotelNotFound    = apperror.New(http.StatusNotFound, "hotel not found")
	ErrRoomNotFound     = apperror.New(http.StatusNotFound, "room not found")

	// ErrInvalidTransition is the post-lock conflict for any transition the
	// state machine forbids, including every attempt to leave EXPIRED.
	ErrInvalidTransition = apperror.Conflict("booking status does not allow this action")
	// ErrApprovalExpired is returned when staff approve after the deadline
	// passed; the expiry sweep owns that booking now.
	ErrApprovalExpired = apperror.Conflict("approval window has expired")
	// ErrCaptureInProgress is returned when another capture request has
	// already claimed the booking and is waiting on the processor.
	ErrCaptureInProgress = apperror.Conflict("payment capture already in progress")
	ErrNotPaid           = apperror.Conflict("booking has no captured payment")
	ErrNotInHouse      = apperror.Conflict("booking is not checked in")
	ErrShorterStay     = apperror.Validation("new checkout date must extend the stay")
)

// Status values of the booking lifecycle. Transitions are validated by the
// state machine in statemachine.go; nothing mutates status directly.
type Status string

const (
	StatusPendingPayment  Status = "pending_payment"
	StatusPendingApproval Status = "pending_approval"
	StatusConfirmed       Status = "confirmed"
	StatusInHouse         Status = "in_house"
	StatusCompleted       Status = "completed"
	StatusDeclined        Status = "declined"
	StatusCancelled       Status = "cancelled"
	StatusExpired         Status = "expired"
	StatusNoShow          Status = "no_show"
)

// Booking is a guest stay moving through the lifecycle. CheckIn/CheckOut are
// dates (midnight UTC); the per-action timestamps are nullable and set once.
type Booking struct {
	ID        string
	HotelID   string
	GuestName string

	// RoomID is the requested or assigned room. Nil until a preference is
	// recorded or the booking is checked in.
	RoomID *string

	CheckIn  time.Time
	CheckOut time.Time
	Status   Status

	PaidAt             *time.Time
	ApprovalDeadlineAt *time.Time
	ExpiredAt          *time.Time // once set, never cleared
	CheckedInAt        *time.Time
	CheckedOutAt       *time.Time
	DecisionAt         *time.Time
	RefundedAt         *time.Time

	PaymentRef  string
	AmountCents int64
	Currency    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Paid reports whether a payment was captured for the booking.
func (b *Booking) Paid() bool {
	return b.PaidAt != nil
}

// Filter defines parameters for listing bookings.
type Filter struct {
	HotelID   string
	RoomID    string
	Status    string
	From      *time.Time // bookings whose stay ends on/after this instant
	To        *time.Time // bookings whose stay starts on/before this instant
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// Extension is the immutable record of a staff-initiated checkout change.
// Created only by extend_stay, never updated or deleted.
type Extension struct {
	ID          string
	BookingID   string
	OldCheckOut time.Time
	NewCheckOut time.Time
	PaymentRef  string
	StaffID     string
	CreatedAt   time.Time
}
