package http

import (
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/overstay"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/request"
)

type ListIncidentsRequest struct {
	request.ListParams
	HotelID string `form:"hotel_id" binding:"omitempty,uuid"`
	Status  string `form:"status" binding:"omitempty,oneof=open acked resolved dismissed"`
}

type IncidentResponse struct {
	ID        string `json:"id"`
	HotelID   string `json:"hotel_id"`
	BookingID string `json:"booking_id"`
	RoomID    string `json:"room_id,omitempty"`

	ExpectedCheckoutDate string    `json:"expected_checkout_date"`
	DetectedAt           time.Time `json:"detected_at"`
	Status               string    `json:"status"`

	// Severity is derived from the overrun at read time, never stored.
	Severity string `json:"severity"`

	AcknowledgedAt *time.Time `json:"acknowledged_at"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
}

func NewIncidentResponse(i *overstay.Incident) IncidentResponse {
	return IncidentResponse{
		ID:                   i.ID,
		HotelID:              i.HotelID,
		BookingID:            i.BookingID,
		RoomID:               i.RoomID,
		ExpectedCheckoutDate: i.ExpectedCheckoutDate.Format("2006-01-02"),
		DetectedAt:           i.DetectedAt,
		Status:               string(i.Status),
		Severity:             string(i.SeverityAt(time.Now().UTC())),
		AcknowledgedAt:       i.AcknowledgedAt,
		AcknowledgedBy:       i.AcknowledgedBy,
		ResolvedAt:           i.ResolvedAt,
		ResolvedBy:           i.ResolvedBy,
	}
}
