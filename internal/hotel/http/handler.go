package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/hotel-ops-backend/internal/hotel"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/request"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/response"
)

type Handler struct {
	repo hotel.Repository
}

func NewHandler(repo hotel.Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateHotelRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	if err := body.Validate(); err != nil {
		response.Error(c, err)
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		response.Error(c, hotel.ErrEmptyName)
		return
	}

	ht := &hotel.Hotel{
		Name:                   strings.TrimSpace(body.Name),
		Timezone:               body.Timezone,
		ApprovalSLAMinutes:     body.ApprovalSLAMinutes,
		OverstayDetectionHour:  body.OverstayDetectionHour,
		NoShowCutoffHour:       body.NoShowCutoffHour,
		SameDayApprovalCapHour: body.SameDayApprovalCapHour,
	}
	if err := h.repo.Create(c.Request.Context(), ht); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusCreated, NewHotelResponse(ht))
}

func (h *Handler) Get(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hotel id"})
		return
	}

	ht, err := h.repo.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewHotelResponse(ht))
}

func (h *Handler) List(c *gin.Context) {
	hotels, err := h.repo.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]HotelResponse, len(hotels))
	for i, ht := range hotels {
		items[i] = NewHotelResponse(ht)
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) Update(c *gin.Context) {
	var req request.ByIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid hotel id"})
		return
	}
	var body UpdateHotelRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	ht, err := h.repo.GetByID(c.Request.Context(), req.ID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if body.Name != nil && strings.TrimSpace(*body.Name) != "" {
		ht.Name = strings.TrimSpace(*body.Name)
	}
	if body.ApprovalSLAMinutes != nil {
		ht.ApprovalSLAMinutes = *body.ApprovalSLAMinutes
	}
	if body.OverstayDetectionHour != nil {
		ht.OverstayDetectionHour = *body.OverstayDetectionHour
	}
	if body.NoShowCutoffHour != nil {
		ht.NoShowCutoffHour = body.NoShowCutoffHour
	}
	if body.SameDayApprovalCapHour != nil {
		ht.SameDayApprovalCapHour = body.SameDayApprovalCapHour
	}

	if err := h.repo.Update(c.Request.Context(), ht); err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, NewHotelResponse(ht))
}
