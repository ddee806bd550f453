package oplog

import (
	"time"
)

// ActorSystem is recorded when a sweep, not a staff member, performed the
// mutation.
const ActorSystem = "system"

// Operation types recorded by the core. One entry is appended per mutation;
// entries are never updated or deleted.
const (
	OpBookingCreate    = "booking.create"
	OpPaymentCapture   = "payment.capture"
	OpApprove          = "booking.approve"
	OpDecline          = "booking.decline"
	OpExpire           = "booking.expire"
	OpCancel           = "booking.cancel"
	OpNoShow           = "booking.no_show"
	OpCheckIn          = "booking.check_in"
	OpCheckOut         = "booking.check_out"
	OpAssign           = "room.assign"
	OpMove             = "room.move"
	OpRelease          = "room.release"
	OpExtendStay       = "booking.extend_stay"
	OpIncidentOpen     = "incident.open"
	OpIncidentAck      = "incident.acknowledge"
	OpIncidentResolve  = "incident.resolve"
	OpRefundInitiate   = "payment.refund_initiate"
	OpRefundConfirm    = "payment.refund_confirm"
	OpRoomProvision    = "room.provision"
	OpRoomStatus       = "room.status"
)

// Entry is one immutable row of the operation log. Before/After hold the
// values relevant to the operation (e.g. old and new status), not full
// entity snapshots.
type Entry struct {
	ID        string
	HotelID   string
	BookingID string // empty when the operation touched no booking
	RoomID    string // empty when the operation touched no room
	Operation string
	Actor     string // staff id or ActorSystem
	Before    string
	After     string
	CreatedAt time.Time
}

// Filter selects entries for the reconciliation query surface.
type Filter struct {
	HotelID   string
	BookingID string
	RoomID    string
	Operation string
	Page      int
	PageSize  int
}
