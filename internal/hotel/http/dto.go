package http

import (
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/hotel"
)

type CreateHotelRequest struct {
	Name                   string `json:"name" binding:"required"`
	Timezone               string `json:"timezone" binding:"required"`
	ApprovalSLAMinutes     int    `json:"approval_sla_minutes" binding:"omitempty,min=1"`
	OverstayDetectionHour  int    `json:"overstay_detection_hour" binding:"omitempty,min=0,max=23"`
	NoShowCutoffHour       *int   `json:"no_show_cutoff_hour" binding:"omitempty,min=0,max=23"`
	SameDayApprovalCapHour *int   `json:"same_day_approval_cap_hour" binding:"omitempty,min=0,max=23"`
}

// Validate performs custom validation for CreateHotelRequest.
func (r *CreateHotelRequest) Validate() error {
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return hotel.ErrInvalidTimezone
	}
	return nil
}

type UpdateHotelRequest struct {
	Name                   *string `json:"name"`
	ApprovalSLAMinutes     *int    `json:"approval_sla_minutes" binding:"omitempty,min=1"`
	OverstayDetectionHour  *int    `json:"overstay_detection_hour" binding:"omitempty,min=0,max=23"`
	NoShowCutoffHour       *int    `json:"no_show_cutoff_hour" binding:"omitempty,min=0,max=23"`
	SameDayApprovalCapHour *int    `json:"same_day_approval_cap_hour" binding:"omitempty,min=0,max=23"`
}

type HotelResponse struct {
	ID                     string    `json:"id"`
	Name                   string    `json:"name"`
	Timezone               string    `json:"timezone"`
	ApprovalSLAMinutes     int       `json:"approval_sla_minutes"`
	OverstayDetectionHour  int       `json:"overstay_detection_hour"`
	NoShowCutoffHour       *int      `json:"no_show_cutoff_hour"`
	SameDayApprovalCapHour *int      `json:"same_day_approval_cap_hour"`
	CreatedAt              time.Time `json:"created_at"`
}

func NewHotelResponse(h *hotel.Hotel) HotelResponse {
	return HotelResponse{
		ID:                     h.ID,
		Name:                   h.Name,
		Timezone:               h.Timezone,
		ApprovalSLAMinutes:     h.ApprovalSLAMinutes,
		OverstayDetectionHour:  h.OverstayDetectionHour,
		NoShowCutoffHour:       h.NoShowCutoffHour,
		SameDayApprovalCapHour: h.SameDayApprovalCapHour,
		CreatedAt:              h.CreatedAt,
	}
}
