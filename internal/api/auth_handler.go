package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/hotel-ops-backend/internal/auth"
	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/response"
	"github.com/nekogravitycat/hotel-ops-backend/internal/staff"
)

type AuthHandler struct {
	staffService staff.Service
	jwtManager   *auth.JWTManager
}

func NewAuthHandler(
	staffService staff.Service,
	jwtManager *auth.JWTManager,
) *AuthHandler {
	return &AuthHandler{
		staffService: staffService,
		jwtManager:   jwtManager,
	}
}

//
// POST /v1/auth/register
//

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	m, err := h.staffService.Register(c.Request.Context(), staff.RegisterParams{
		HotelID:     req.HotelID,
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
		Role:        req.Role,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, RegisterResponse{Staff: NewStaffResponse(m)})
}

//
// POST /v1/auth/login
//

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	m, err := h.staffService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid email or password",
		})
		return
	}

	token, err := h.jwtManager.GenerateAccessToken(m.ID, m.Email, m.Role)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to generate token",
		})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		AccessToken: token,
		Staff:       NewStaffResponse(m),
	})
}

//
// GET /v1/me
//

func (h *AuthHandler) Me(c *gin.Context) {
	staffID := auth.GetStaffID(c)
	if staffID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	m, err := h.staffService.GetByID(c.Request.Context(), staffID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "staff member not found"})
		return
	}

	c.JSON(http.StatusOK, MeResponse{Staff: NewStaffResponse(m)})
}
