package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/bookings")

	// Guest-facing routes: intake and payment capture.
	group.POST("", h.Create)
	group.POST("/:id/payment", h.CapturePayment)

	// Refund confirmations arrive from the payment processor.
	g.POST("/webhooks/refunds", h.RefundWebhook)

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/:id", h.Get)
		group.GET("/:id/extensions", h.ListExtensions)
		group.POST("/:id/approve", h.Approve)
		group.POST("/:id/decline", h.Decline)
		group.POST("/:id/cancel", h.Cancel)
		group.POST("/:id/assign-room", h.AssignRoom)
		group.POST("/:id/move-room", h.MoveRoom)
		group.POST("/:id/check-out", h.CheckOut)
		group.POST("/:id/extend", h.ExtendStay)
	}
}
