package http

import (
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/ledger"
	"github.com/nekogravitycat/hotel-ops-backend/internal/room"
)

type ProvisionRoomRequest struct {
	HotelID string `json:"hotel_id" binding:"required,uuid"`
	Number  string `json:"number" binding:"required"`
}

type SetStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=vacant_clean vacant_dirty maintenance out_of_order"`
}

type RoomResponse struct {
	ID        string    `json:"id"`
	HotelID   string    `json:"hotel_id"`
	Number    string    `json:"number"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func NewRoomResponse(rm *room.Room) RoomResponse {
	return RoomResponse{
		ID:        rm.ID,
		HotelID:   rm.HotelID,
		Number:    rm.Number,
		Status:    string(rm.Status),
		CreatedAt: rm.CreatedAt,
	}
}

// BoardEntryResponse is one row of the occupancy board, read straight from
// the ledger rather than the cached room status.
type BoardEntryResponse struct {
	RoomID           string     `json:"room_id"`
	BookingID        string     `json:"booking_id,omitempty"`
	OccupiedSince    *time.Time `json:"occupied_since,omitempty"`
	ExpectedCheckout *time.Time `json:"expected_checkout,omitempty"`
	AssignedBy       string     `json:"assigned_by,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func NewBoardEntryResponse(e *ledger.Entry) BoardEntryResponse {
	return BoardEntryResponse{
		RoomID:           e.RoomID,
		BookingID:        e.BookingID,
		OccupiedSince:    e.OccupiedSince,
		ExpectedCheckout: e.ExpectedCheckout,
		AssignedBy:       e.AssignedBy,
		UpdatedAt:        e.UpdatedAt,
	}
}
