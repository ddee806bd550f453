package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/response"
)

type Handler struct {
	repo oplog.Repository
}

func NewHandler(repo oplog.Repository) *Handler {
	return &Handler{repo: repo}
}

// List is the reconciliation surface: staff trace what happened to a booking
// or room and who did it.
func (h *Handler) List(c *gin.Context) {
	var req ListEntriesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	entries, total, err := h.repo.List(c.Request.Context(), oplog.Filter{
		HotelID:   req.HotelID,
		BookingID: req.BookingID,
		RoomID:    req.RoomID,
		Operation: req.Operation,
		Page:      req.Page,
		PageSize:  req.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]EntryResponse, len(entries))
	for i, e := range entries {
		items[i] = NewEntryResponse(e)
	}
	c.JSON(http.StatusOK, response.NewPageResponse(items, req.Page, req.PageSize, total))
}
