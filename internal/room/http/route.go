package http

import (
	"github.com/gin-gonic/gin"
)

func RegisterRoutes(g *gin.RouterGroup, h *Handler, authMiddleware gin.HandlerFunc) {
	group := g.Group("/rooms")

	// === Authenticated Routes ===
	group.Use(authMiddleware)
	{
		group.GET("", h.List)
		group.GET("/board", h.Board)
		group.GET("/:id", h.Get)
		group.POST("", h.Provision)
		group.PATCH("/:id/status", h.SetStatus)
	}
}
