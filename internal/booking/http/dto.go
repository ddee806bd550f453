package http

import (
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/booking"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/request"
)

// ListBookingsRequest defines query parameters for listing bookings.
type ListBookingsRequest struct {
	request.ListParams
	HotelID string `form:"hotel_id" binding:"omitempty,uuid"`
	RoomID  string `form:"room_id" binding:"omitempty,uuid"`
	Status  string `form:"status" binding:"omitempty,oneof=pending_payment pending_approval confirmed in_house completed declined cancelled expired no_show"`
	From    *time.Time `form:"from" time_format:"2006-01-02"`
	To      *time.Time `form:"to" time_format:"2006-01-02"`
	SortBy  string `form:"sort_by" binding:"omitempty,oneof=check_in check_out created_at status"`
}

// Validate performs custom validation for ListBookingsRequest.
func (r *ListBookingsRequest) Validate() error {
	if r.From != nil && r.To != nil && r.From.After(*r.To) {
		return booking.ErrInvalidDateRange
	}
	return nil
}

type BookingResponse struct {
	ID        string  `json:"id"`
	HotelID   string  `json:"hotel_id"`
	GuestName string  `json:"guest_name"`
	RoomID    *string `json:"room_id"`

	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Status   string `json:"status"`

	// Risk is computed against the current clock on every read; it is not a
	// stored field.
	Risk string `json:"risk,omitempty"`

	PaidAt             *time.Time `json:"paid_at"`
	ApprovalDeadlineAt *time.Time `json:"approval_deadline_at"`
	ExpiredAt          *time.Time `json:"expired_at"`
	CheckedInAt        *time.Time `json:"checked_in_at"`
	CheckedOutAt       *time.Time `json:"checked_out_at"`
	RefundedAt         *time.Time `json:"refunded_at"`

	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	resp := BookingResponse{
		ID:                 b.ID,
		HotelID:            b.HotelID,
		GuestName:          b.GuestName,
		RoomID:             b.RoomID,
		CheckIn:            b.CheckIn.Format("2006-01-02"),
		CheckOut:           b.CheckOut.Format("2006-01-02"),
		Status:             string(b.Status),
		PaidAt:             b.PaidAt,
		ApprovalDeadlineAt: b.ApprovalDeadlineAt,
		ExpiredAt:          b.ExpiredAt,
		CheckedInAt:        b.CheckedInAt,
		CheckedOutAt:       b.CheckedOutAt,
		RefundedAt:         b.RefundedAt,
		AmountCents:        b.AmountCents,
		Currency:           b.Currency,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
	if risk := b.Risk(time.Now().UTC()); risk != booking.RiskNone {
		resp.Risk = string(risk)
	}
	return resp
}

// CreateBookingRequest carries the guest intake payload. CheckIn/CheckOut
// are date-only strings; the datetime tag rejects anything carrying a time
// component, so a stay boundary can never enter with a non-midnight clock.
type CreateBookingRequest struct {
	HotelID     string  `json:"hotel_id" binding:"required,uuid"`
	GuestName   string  `json:"guest_name" binding:"required"`
	RoomID      *string `json:"room_id" binding:"omitempty,uuid"`
	CheckIn     string  `json:"check_in" binding:"required,datetime=2006-01-02"`
	CheckOut    string  `json:"check_out" binding:"required,datetime=2006-01-02"`
	AmountCents int64   `json:"amount_cents" binding:"required,min=1"`
	Currency    string  `json:"currency" binding:"required,len=3"`
}

// Validate performs custom validation for CreateBookingRequest.
func (r *CreateBookingRequest) Validate() error {
	if !parseDate(r.CheckIn).Before(parseDate(r.CheckOut)) {
		return booking.ErrInvalidDateRange
	}
	return nil
}

// parseDate converts a bound YYYY-MM-DD string to its date at midnight UTC.
// The datetime binding tag validated the format, so parsing cannot fail.
func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

type CapturePaymentRequest struct {
	// Reference is the processor token for the charge, e.g. an Omise card
	// token from the payment form.
	Reference string `json:"reference" binding:"required"`
}

type AssignRoomRequest struct {
	RoomID string `json:"room_id" binding:"required,uuid"`
}

type MoveRoomRequest struct {
	ToRoomID string `json:"to_room_id" binding:"required,uuid"`
}

type ExtendStayRequest struct {
	NewCheckOut string `json:"new_check_out" binding:"required,datetime=2006-01-02"`
	PaymentRef  string `json:"payment_ref"`
}

type ExtensionResponse struct {
	ID          string    `json:"id"`
	BookingID   string    `json:"booking_id"`
	OldCheckOut string    `json:"old_check_out"`
	NewCheckOut string    `json:"new_check_out"`
	PaymentRef  string    `json:"payment_ref,omitempty"`
	StaffID     string    `json:"staff_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func NewExtensionResponse(e *booking.Extension) ExtensionResponse {
	return ExtensionResponse{
		ID:          e.ID,
		BookingID:   e.BookingID,
		OldCheckOut: e.OldCheckOut.Format("2006-01-02"),
		NewCheckOut: e.NewCheckOut.Format("2006-01-02"),
		PaymentRef:  e.PaymentRef,
		StaffID:     e.StaffID,
		CreatedAt:   e.CreatedAt,
	}
}

type RefundWebhookRequest struct {
	PaymentRef string `json:"payment_ref" binding:"required"`
	Status     string `json:"status" binding:"required,oneof=succeeded failed"`
}
