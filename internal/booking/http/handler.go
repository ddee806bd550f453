package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/hotel-ops-backend/internal/auth"
	"github.com/nekogravitycat/hotel-ops-backend/internal/booking"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/request"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) List(c *gin.Context) {
	var req ListBookingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	filter := booking.Filter{
		HotelID:   req.HotelID,
		RoomID:    req.RoomID,
		Status:    req.Status,
		From:      req.From,
		To:        req.To,
		Page:      req.Page,
		PageSize:  req.PageSize,
		SortBy:    req.SortBy,
		SortOrder: req.SortOrder,
	}

	bookings, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, filter.Page, filter.PageSize, total))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	b, err := h.service.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) ListExtensions(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	exts, err := h.service.ListExtensions(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ExtensionResponse, len(exts))
	for i, e := range exts {
		items[i] = NewExtensionResponse(e)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}

	b, err := h.service.Create(c.Request.Context(), booking.CreateRequest{
		HotelID:     body.HotelID,
		GuestName:   body.GuestName,
		RoomID:      body.RoomID,
		CheckIn:     parseDate(body.CheckIn),
		CheckOut:    parseDate(body.CheckOut),
		AmountCents: body.AmountCents,
		Currency:    body.Currency,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) CapturePayment(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}
	var body CapturePaymentRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	b, err := h.service.CapturePayment(c.Request.Context(), req.ID, body.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Approve(c *gin.Context) {
	h.staffAction(c, h.service.Approve)
}

func (h *Handler) Decline(c *gin.Context) {
	h.staffAction(c, h.service.Decline)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.staffAction(c, h.service.Cancel)
}

func (h *Handler) CheckOut(c *gin.Context) {
	h.staffAction(c, h.service.CheckOut)
}

func (h *Handler) AssignRoom(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}
	var body AssignRoomRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	b, err := h.service.AssignRoom(c.Request.Context(), booking.AssignRoomRequest{
		BookingID: req.ID,
		RoomID:    body.RoomID,
		StaffID:   auth.GetStaffID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) MoveRoom(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}
	var body MoveRoomRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	b, err := h.service.MoveRoom(c.Request.Context(), booking.MoveRoomRequest{
		BookingID: req.ID,
		ToRoomID:  body.ToRoomID,
		StaffID:   auth.GetStaffID(c),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) ExtendStay(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}
	var body ExtendStayRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	b, err := h.service.ExtendStay(c.Request.Context(), booking.ExtendStayRequest{
		BookingID:   req.ID,
		NewCheckOut: parseDate(body.NewCheckOut),
		StaffID:     auth.GetStaffID(c),
		PaymentRef:  body.PaymentRef,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}

// RefundWebhook handles the processor's asynchronous refund confirmation.
// Unauthenticated route; the processor signs requests at the edge.
func (h *Handler) RefundWebhook(c *gin.Context) {
	var body RefundWebhookRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if body.Status != "succeeded" {
		// Failed refunds stay pending for manual review; acknowledge so the
		// processor stops retrying.
		c.Status(http.StatusNoContent)
		return
	}

	if err := h.service.ConfirmRefund(c.Request.Context(), body.PaymentRef); err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// staffAction is the shared shape of the single-booking staff decisions.
func (h *Handler) staffAction(c *gin.Context, action func(ctx context.Context, id, staffID string) (*booking.Booking, error)) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking id"})
		return
	}

	b, err := action(c.Request.Context(), req.ID, auth.GetStaffID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewBookingResponse(b))
}
