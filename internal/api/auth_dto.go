package api

import (
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/staff"
)

// RegisterRequest is the payload for POST /v1/auth/register.
type RegisterRequest struct {
	HotelID     string `json:"hotel_id" binding:"required,uuid"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role" binding:"required,oneof=manager front_desk"`
}

// LoginRequest is the payload for POST /v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// StaffResponse is the shape of staff data returned in API responses.
type StaffResponse struct {
	ID          string     `json:"id"`
	HotelID     string     `json:"hotel_id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name,omitempty"`
	Role        string     `json:"role"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// RegisterResponse is the response for POST /v1/auth/register.
type RegisterResponse struct {
	Staff StaffResponse `json:"staff"`
}

// LoginResponse is the response for POST /v1/auth/login.
type LoginResponse struct {
	AccessToken string        `json:"access_token"`
	Staff       StaffResponse `json:"staff"`
}

// MeResponse is the response for GET /v1/me.
type MeResponse struct {
	Staff StaffResponse `json:"staff"`
}

// NewStaffResponse converts domain staff.Staff to StaffResponse used by the API.
func NewStaffResponse(m *staff.Staff) StaffResponse {
	var lastLoginAt *time.Time
	if m.LastLoginAt != nil {
		ll := *m.LastLoginAt
		lastLoginAt = &ll
	}

	return StaffResponse{
		ID:          m.ID,
		HotelID:     m.HotelID,
		Email:       m.Email,
		DisplayName: m.DisplayName,
		Role:        m.Role,
		IsActive:    m.IsActive,
		CreatedAt:   m.CreatedAt,
		LastLoginAt: lastLoginAt,
	}
}
