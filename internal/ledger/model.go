package ledger

import (
	"fmt"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/apperror"
)

var (
	ErrEntryNotFound = apperror.New(404, "no ledger entry for room")
	// ErrNotOccupant is returned when a release or move names a booking that
	// the ledger does not show in that room.
	ErrNotOccupant = apperror.Conflict("booking does not occupy this room")
	// ErrAlreadyInHouse guards a booking against holding two rooms at once.
	ErrAlreadyInHouse = apperror.Conflict("booking already occupies another room")
)

// OccupancyConflict reports that a room is already held by another booking.
// Staff surfaces show the holder; guest surfaces must reduce this to a
// generic "unavailable".
type OccupancyConflict struct {
	RoomID          string
	HolderBookingID string
}

func (e *OccupancyConflict) Error() string {
	return fmt.Sprintf("room %s is already occupied by booking %s", e.RoomID, e.HolderBookingID)
}

// Entry is the authoritative record of which booking holds a room. Exactly
// one row exists per room, created when the room is provisioned and never
// deleted. An empty BookingID means the room is unoccupied.
type Entry struct {
	RoomID           string
	HotelID          string
	BookingID        string
	OccupiedSince    *time.Time
	ExpectedCheckout *time.Time
	AssignedBy       string // staff id of the last assignment
	UpdatedAt        time.Time
}

// Occupied reports whether the entry holds an active booking reference.
func (e *Entry) Occupied() bool {
	return e.BookingID != ""
}
