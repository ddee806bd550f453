package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nekogravitycat/hotel-ops-backend/internal/api"
	"github.com/nekogravitycat/hotel-ops-backend/internal/auth"
	"github.com/nekogravitycat/hotel-ops-backend/internal/booking"
	"github.com/nekogravitycat/hotel-ops-backend/internal/event"
	"github.com/nekogravitycat/hotel-ops-backend/internal/hotel"
	"github.com/nekogravitycat/hotel-ops-backend/internal/ledger"
	"github.com/nekogravitycat/hotel-ops-backend/internal/oplog"
	"github.com/nekogravitycat/hotel-ops-backend/internal/overstay"
	"github.com/nekogravitycat/hotel-ops-backend/internal/payment"
	"github.com/nekogravitycat/hotel-ops-backend/internal/room"
	"github.com/nekogravitycat/hotel-ops-backend/internal/staff"
	"github.com/nekogravitycat/hotel-ops-backend/internal/sweep"
	"github.com/nekogravitycat/hotel-ops-backend/internal/txn"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	BcryptCost   int

	AMQPURL       string
	EventExchange string

	OmisePublicKey string
	OmiseSecretKey string

	LockWaitTimeout    time.Duration
	DefaultApprovalSLA time.Duration
	SweepBatchSize     int
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router     *gin.Engine
	JWTManager *auth.JWTManager

	// Publisher is exposed so main can close the broker connection on
	// shutdown.
	Publisher event.Publisher
}

// NewContainer initializes all modules and returns the container.
func NewContainer(cfg Config) (*Container, error) {
	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasher(cfg.BcryptCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)
	txManager := txn.NewPgxManager(cfg.DBPool, cfg.LockWaitTimeout)

	// Change-event publisher: AMQP when a broker is configured, process log
	// otherwise.
	var publisher event.Publisher = event.LogPublisher{}
	if cfg.AMQPURL != "" {
		p, err := event.NewAMQPPublisher(cfg.AMQPURL, cfg.EventExchange)
		if err != nil {
			return nil, fmt.Errorf("connect event broker: %w", err)
		}
		publisher = p
	}

	// Payment gateway: Omise when keys are configured.
	var gateway payment.Gateway = payment.LogGateway{}
	if cfg.OmiseSecretKey != "" {
		g, err := payment.NewOmiseGateway(cfg.OmisePublicKey, cfg.OmiseSecretKey)
		if err != nil {
			return nil, fmt.Errorf("init payment gateway: %w", err)
		}
		gateway = g
	}

	// Staff Module
	staffRepo := staff.NewPgxRepository(cfg.DBPool)
	staffService := staff.NewService(staffRepo, passwordHasher)

	// Hotel Module
	hotelRepo := hotel.NewPgxRepository(cfg.DBPool)

	// Operation Log
	oplogRepo := oplog.NewPgxRepository(cfg.DBPool)

	// Room + Ledger Modules
	roomRepo := room.NewPgxRepository(cfg.DBPool)
	ledgerRepo := ledger.NewPgxRepository(cfg.DBPool)
	ledgerService := ledger.NewService(ledgerRepo, roomRepo, oplogRepo)
	roomService := room.NewService(roomRepo, ledgerRepo, oplogRepo, txManager)

	// Overstay Module
	overstayRepo := overstay.NewPgxRepository(cfg.DBPool)
	overstayService := overstay.NewService(overstayRepo, oplogRepo, txManager, publisher)

	// Booking Module
	bookingRepo := booking.NewPgxRepository(cfg.DBPool)
	bookingService := booking.NewService(booking.Deps{
		Repo:       bookingRepo,
		LedgerSvc:  ledgerService,
		HotelRepo:  hotelRepo,
		RoomRepo:   roomRepo,
		LogRepo:    oplogRepo,
		Tx:         txManager,
		Events:     publisher,
		Gateway:    gateway,
		Resolver:   overstayService,
		DefaultSLA: cfg.DefaultApprovalSLA,
	})

	// Sweeps
	sweeps := sweep.NewService(sweep.Deps{
		HotelRepo:    hotelRepo,
		BookingRepo:  bookingRepo,
		IncidentRepo: overstayRepo,
		LogRepo:      oplogRepo,
		Tx:           txManager,
		Events:       publisher,
		Gateway:      gateway,
		BatchSize:    cfg.SweepBatchSize,
	})

	// Router
	router := api.NewRouter(api.RouterDeps{
		BookingService:  bookingService,
		RoomService:     roomService,
		LedgerService:   ledgerService,
		OverstayService: overstayService,
		StaffService:    staffService,
		HotelRepo:       hotelRepo,
		OplogRepo:       oplogRepo,
		Sweeps:          sweeps,
		JWTManager:      jwtManager,
		IsProduction:    cfg.IsProduction,
		ProdOrigins:     splitOrigins(cfg.ProdOrigins),
	})

	return &Container{
		Router:     router,
		JWTManager: jwtManager,
		Publisher:  publisher,
	}, nil
}

func splitOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
