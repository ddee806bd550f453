package overstay

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/apperror"
)

var (
	ErrNotFound      = apperror.New(http.StatusNotFound, "overstay incident not found")
	ErrNotOpen       = apperror.Conflict("incident is not open")
	ErrAlreadyClosed = apperror.Conflict("incident is already resolved or dismissed")
)

// Status of an overstay incident. Detection only ever creates OPEN
// incidents; every other status requires explicit staff action or an
// extension transaction. No sweep resolves anything.
type Status string

const (
	StatusOpen      Status = "open"
	StatusAcked     Status = "acked"
	StatusResolved  Status = "resolved"
	StatusDismissed Status = "dismissed"
)

// Severity is derived from how long the stay has overrun. It is recomputed
// on every read and never stored, so it cannot go stale; recomputation never
// re-triggers a notification beyond the initial detection event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Incident records that a checked-in stay passed its expected checkout
// without checking out. One incident exists per (booking, overdue date)
// episode.
type Incident struct {
	ID        string
	HotelID   string
	BookingID string
	RoomID    string

	ExpectedCheckoutDate time.Time // date component only
	DetectedAt           time.Time

	Status         Status
	AcknowledgedAt *time.Time
	AcknowledgedBy string
	ResolvedAt     *time.Time
	ResolvedBy     string
}

// SeverityAt derives the severity from the overrun elapsed at the given
// instant.
func (i *Incident) SeverityAt(now time.Time) Severity {
	overrun := now.Sub(i.ExpectedCheckoutDate)
	switch {
	case overrun >= 72*time.Hour:
		return SeverityCritical
	case overrun >= 24*time.Hour:
		return SeverityHigh
	case overrun >= 6*time.Hour:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Filter selects incidents for the staff list surface.
type Filter struct {
	HotelID  string
	Status   string
	Page     int
	PageSize int
}
