package auth

import "github.com/gin-gonic/gin"

// GetStaffID returns the authenticated staff member's ID or empty string.
func GetStaffID(c *gin.Context) string {
	if v, ok := c.Get("staffID"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// GetStaffRole returns the authenticated staff member's role or empty string.
func GetStaffRole(c *gin.Context) string {
	if v, ok := c.Get("staffRole"); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
