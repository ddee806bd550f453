package api

import (
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/hotel-ops-backend/internal/auth"
	"github.com/nekogravitycat/hotel-ops-backend/internal/staff"
)

// RequireManager restricts a route to manager accounts. It MUST be used
// after auth.AuthRequired middleware.
func RequireManager() gin.HandlerFunc {
	return auth.RoleRequired(staff.RoleManager)
}

// RequireStaff allows any staff role. It MUST be used after
// auth.AuthRequired middleware.
func RequireStaff() gin.HandlerFunc {
	return auth.RoleRequired(staff.RoleManager, staff.RoleFrontDesk)
}
