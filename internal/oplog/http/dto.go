package http

import (
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/request"
)

type ListEntriesRequest struct {
	request.ListParams
	HotelID   string `form:"hotel_id" binding:"omitempty,uuid"`
	BookingID string `form:"booking_id" binding:"omitempty,uuid"`
	RoomID    string `form:"room_id" binding:"omitempty,uuid"`
	Operation string `form:"operation"`
}

type EntryResponse struct {
	ID        string    `json:"id"`
	HotelID   string    `json:"hotel_id"`
	BookingID string    `json:"booking_id,omitempty"`
	RoomID    string    `json:"room_id,omitempty"`
	Operation string    `json:"operation"`
	Actor     string    `json:"actor"`
	Before    string    `json:"before,omitempty"`
	After     string    `json:"after,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewEntryResponse(e *oplog.Entry) EntryResponse {
	return EntryResponse{
		ID:        e.ID,
		HotelID:   e.HotelID,
		BookingID: e.BookingID,
		RoomID:    e.RoomID,
		Operation: e.Operation,
		Actor:     e.Actor,
		Before:    e.Before,
		After:     e.After,
		CreatedAt: e.CreatedAt,
	}
}
