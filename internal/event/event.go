package event

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
)

// Routing keys for every persisted state change the core can commit.
// Advisory values computed on read (risk level, severity, countdowns) are
// never published; only committed mutations are.
const (
	TypeBookingCreated    = "booking.created"
	TypeBookingPaid       = "booking.paid"
	TypeBookingApproved   = "booking.approved"
	TypeBookingDeclined   = "booking.declined"
	TypeBookingExpired    = "booking.expired"
	TypeBookingCancelled  = "booking.cancelled"
	TypeBookingNoShow     = "booking.no_show"
	TypeBookingCheckedIn  = "booking.checked_in"
	TypeBookingMoved      = "booking.moved"
	TypeBookingCheckedOut = "booking.checked_out"
	TypeBookingExtended   = "booking.extended"
	TypeIncidentOpened    = "incident.opened"
	TypeIncidentAcked     = "incident.acknowledged"
	TypeIncidentResolved  = "incident.resolved"
	TypeIncidentDismissed = "incident.dismissed"
	TypeRefundInitiated   = "payment.refund_initiated"
	TypeRefundConfirmed   = "payment.refund_confirmed"
)

// Event is the change notification emitted once per committed mutation.
// Delivery is at-least-once; consumers deduplicate by ID.
type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	HotelID    string    `json:"hotel_id,omitempty"`
	BookingID  string    `json:"booking_id,omitempty"`
	RoomID     string    `json:"room_id,omitempty"`
	IncidentID string    `json:"incident_id,omitempty"`
	Actor      string    `json:"actor"` // staff id or "system"
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps a fresh event with a unique id and the current time.
func New(eventType, actor string) Event {
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		Actor:      actor,
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher delivers committed-change events to the real-time sink.
// Publish is called after the owning transaction commits, never inside it:
// a failed transaction must emit nothing.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to the process log instead of a broker.
// Used when no broker is configured (local development).
type LogPublisher struct{}

func (LogPublisher) Publish(_ context.Context, e Event) error {
	log.Printf("event %s %s booking=%s room=%s actor=%s", e.Type, e.ID, e.BookingID, e.RoomID, e.Actor)
	return nil
}
