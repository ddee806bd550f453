package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/nekogravitycat/hotel-ops-backend/internal/auth"
	"github.com/nekogravitycat/hotel-ops-backend/internal/booking"
	bookingHttp "github.com/nekogravitycat/hotel-ops-backend/internal/booking/http"
	"github.com/nekogravitycat/hotel-ops-backend/internal/hotel"
	hotelHttp "github.com/nekogravitycat/hotel-ops-backend/internal/hotel/http"
	"github.com/nekogravitycat/hotel-ops-backend/internal/ledger"
	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
	oplogHttp "github.com/nekogravitycat/hotel-ops-backend/internal/oplog/http"
	"github.com/nekogravitycat/hotel-ops-backend/internal/overstay"
	overstayHttp "github.com/nekogravitycat/hotel-ops-backend/internal/overstay/http"
	"github.com/nekogravitycat/hotel-ops-backend/internal/room"
	roomHttp "github.com/nekogravitycat/hotel-ops-backend/internal/room/http"
	"github.com/nekogravitycat/hotel-ops-backend/internal/staff"
	"github.com/nekogravitycat/hotel-ops-backend/internal/sweep"
)

// RouterDeps collects the services the router wires into handlers.
type RouterDeps struct {
	BookingService  booking.Service
	RoomService     room.Service
	LedgerService   ledger.Service
	OverstayService overstay.Service
	StaffService    staff.Service
	HotelRepo       hotel.Repository
	OplogRepo       oplog.Repository
	Sweeps          *sweep.Service
	JWTManager      *auth.JWTManager

	IsProduction bool
	ProdOrigins  []string
}

// NewRouter initializes the HTTP router engine.
// It is responsible for assembling middleware (CORS, Logger, Auth) and registering routes for various modules.
func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()

	// Global Middleware:
	// - Logger: Logs request information to the console.
	// - Recovery: Captures panics to prevent server crashes and returns a 500 error.
	r.Use(gin.Logger(), gin.Recovery())

	// Configure CORS (Cross-Origin Resource Sharing).
	config := cors.DefaultConfig()
	if d.IsProduction {
		config.AllowOrigins = d.ProdOrigins
	} else {
		config.AllowOrigins = []string{
			"http://localhost:8081", // Swagger
		}
	}
	config.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	r.Use(cors.New(config))

	// authMiddleware: Validates if the request contains a valid JWT.
	authMiddleware := auth.AuthRequired(d.JWTManager)

	// Initialize HTTP Handlers for each module (injecting Service dependencies).
	authHandler := NewAuthHandler(d.StaffService, d.JWTManager)
	sweepHandler := NewSweepHandler(d.Sweeps)
	bookingHandler := bookingHttp.NewHandler(d.BookingService)
	roomHandler := roomHttp.NewHandler(d.RoomService, d.LedgerService)
	hotelHandler := hotelHttp.NewHandler(d.HotelRepo)
	overstayHandler := overstayHttp.NewHandler(d.OverstayService)
	oplogHandler := oplogHttp.NewHandler(d.OplogRepo)

	// Register API routes under /v1
	v1 := r.Group("/v1")
	{
		v1.POST("/auth/register", authHandler.Register)
		v1.POST("/auth/login", authHandler.Login)
		v1.GET("/me", authMiddleware, authHandler.Me)

		// Sweeps are triggered by the scheduler, guarded by manager auth.
		sweeps := v1.Group("/sweeps", authMiddleware, RequireManager())
		{
			sweeps.POST("/expiry", sweepHandler.RunExpiry)
			sweeps.POST("/overstay", sweepHandler.RunOverstay)
			sweeps.POST("/no-show", sweepHandler.RunNoShow)
		}

		bookingHttp.RegisterRoutes(v1, bookingHandler, authMiddleware)
		roomHttp.RegisterRoutes(v1, roomHandler, authMiddleware)
		hotelHttp.RegisterRoutes(v1, hotelHandler, authMiddleware)
		overstayHttp.RegisterRoutes(v1, overstayHandler, authMiddleware)
		oplogHttp.RegisterRoutes(v1, oplogHandler, authMiddleware)
	}

	return r
}
