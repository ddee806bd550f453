package staff

import (
	"net/http"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/apperror"
)

var (
	ErrNotFound           = apperror.New(http.StatusNotFound, "staff member not found")
	ErrEmailAlreadyUsed   = apperror.Conflict("email already used")
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid email or password")
	ErrInactive           = apperror.New(http.StatusForbidden, "staff account is inactive")
)

// Roles understood by the route guards. Managers can decide bookings and
// close incidents; front desk handles check-in, check-out and room moves.
const (
	RoleManager   = "manager"
	RoleFrontDesk = "front_desk"
)

// Staff is a hotel employee account. All mutating API operations are
// attributed to a staff id in the operation log.
type Staff struct {
	ID           string // UUID
	HotelID      string
	Email        string
	PasswordHash string
	DisplayName  string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	LastLoginAt  *time.Time
}
