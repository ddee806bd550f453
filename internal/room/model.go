package room

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/apperror"
)

var (
	ErrNotFound        = apperror.New(http.StatusNotFound, "room not found")
	ErrDuplicateNumber = apperror.Conflict("room number already exists in this hotel")
	ErrInvalidStatus   = apperror.Validation("invalid room status")
)

// Status is the coarse display state of a room. It is a derived cache of the
// occupancy ledger maintained only by ledger operations (plus housekeeping
// flips between the vacant states); "is this room free" decisions never read
// it, they consult the ledger.
type Status string

const (
	StatusVacantClean Status = "vacant_clean"
	StatusVacantDirty Status = "vacant_dirty"
	StatusOccupied    Status = "occupied"
	StatusMaintenance Status = "maintenance"
	StatusOutOfOrder  Status = "out_of_order"
)

func (s Status) Valid() bool {
	switch s {
	case StatusVacantClean, StatusVacantDirty, StatusOccupied, StatusMaintenance, StatusOutOfOrder:
		return true
	}
	return false
}

type Room struct {
	ID        string
	HotelID   string
	Number    string
	Status    Status
	CreatedAt time.Time
}
