package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/hotel-ops-backend/internal/auth"
	"github.com/nekogravitycat/hotel-ops-backend/internal/ledger"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/request"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/response"
	"github.com/nekogravitycat/hotel-ops-backend/internal/room"
)

type Handler struct {
	service   room.Service
	ledgerSvc ledger.Service
}

func NewHandler(service room.Service, ledgerSvc ledger.Service) *Handler {
	return &Handler{service: service, ledgerSvc: ledgerSvc}
}

func (h *Handler) Provision(c *gin.Context) {
	var body ProvisionRoomRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rm, err := h.service.Provision(c.Request.Context(), room.ProvisionParams{
		HotelID: body.HotelID,
		Number:  body.Number,
		StaffID: auth.GetStaffID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewRoomResponse(rm))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	rm, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewRoomResponse(rm))
}

func (h *Handler) List(c *gin.Context) {
	hotelID := c.Query("hotel_id")
	if hotelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hotel_id is required"})
		return
	}

	rooms, err := h.service.ListByHotel(c.Request.Context(), hotelID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]RoomResponse, len(rooms))
	for i, rm := range rooms {
		items[i] = NewRoomResponse(rm)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// Board returns the hotel's occupancy ledger: the authoritative who-is-where
// view the front desk works from.
func (h *Handler) Board(c *gin.Context) {
	hotelID := c.Query("hotel_id")
	if hotelID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "hotel_id is required"})
		return
	}

	entries, err := h.ledgerSvc.ListByHotel(c.Request.Context(), hotelID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BoardEntryResponse, len(entries))
	for i, e := range entries {
		items[i] = NewBoardEntryResponse(e)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) SetStatus(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}
	var body SetStatusRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	rm, err := h.service.SetHousekeepingStatus(c.Request.Context(), req.ID, room.Status(body.Status), auth.GetStaffID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewRoomResponse(rm))
}
