package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/response"
	"github.com/nekogravitycat/hotel-ops-backend/internal/sweep"
)

// SweepHandler exposes the sweep runs to the external scheduler (cron or a
// platform timer hitting these endpoints). Each run is idempotent and holds
// a per-hotel advisory marker, so overlapping triggers are harmless.
type SweepHandler struct {
	sweeps *sweep.Service
}

func NewSweepHandler(sweeps *sweep.Service) *SweepHandler {
	return &SweepHandler{sweeps: sweeps}
}

type sweepRequest struct {
	HotelID string `json:"hotel_id" binding:"required,uuid"`
}

// POST /v1/sweeps/expiry
func (h *SweepHandler) RunExpiry(c *gin.Context) {
	h.run(c, h.sweeps.RunExpirySweep)
}

// POST /v1/sweeps/overstay
func (h *SweepHandler) RunOverstay(c *gin.Context) {
	h.run(c, h.sweeps.RunOverstayDetection)
}

// POST /v1/sweeps/no-show
func (h *SweepHandler) RunNoShow(c *gin.Context) {
	h.run(c, h.sweeps.RunNoShowSweep)
}

func (h *SweepHandler) run(c *gin.Context, fn func(ctx context.Context, hotelID string) (sweep.Result, error)) {
	var req sweepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	res, err := fn(c.Request.Context(), req.HotelID)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
