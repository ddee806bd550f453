package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nekogravitycat/hotel-ops-backend/internal/app"
	"github.com/nekogravitycat/hotel-ops-backend/internal/config"
	"github.com/nekogravitycat/hotel-ops-backend/internal/db"
	"github.com/nekogravitycat/hotel-ops-backend/internal/event"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Connect DB
	pool, err := db.NewPool(ctx, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer pool.Close()

	// Assemble modules
	container, err := app.NewContainer(app.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		DBPool:             pool,
		JWTSecret:          cfg.JWTSecret,
		JWTTTL:             cfg.JWTAccessTokenTTL,
		BcryptCost:         cfg.BcryptCost,
		AMQPURL:            cfg.AMQPURL,
		EventExchange:      cfg.EventExchange,
		OmisePublicKey:     cfg.OmisePublicKey,
		OmiseSecretKey:     cfg.OmiseSecretKey,
		LockWaitTimeout:    cfg.LockWaitTimeout,
		DefaultApprovalSLA: cfg.DefaultApprovalSLA,
		SweepBatchSize:     cfg.SweepBatchSize,
	})
	if err != nil {
		log.Fatalf("failed to init application: %v", err)
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: container.Router,
	}

	// Run server in separate goroutine
	go func() {
		log.Printf("server running on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	log.Println("shutdown signal received")

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}

	// Close the broker connection after the server stopped publishing.
	if closer, ok := container.Publisher.(*event.AMQPPublisher); ok {
		if err := closer.Close(); err != nil {
			log.Printf("close event publisher: %v", err)
		}
	}

	log.Println("server exited gracefully")
}
