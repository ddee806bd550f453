package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const PROD_STRING = "prod"

// Config holds all application configuration loaded from environment.
// Hotel-level knobs (approval SLA, overstay detection hour, no-show cutoff)
// live on the hotel row, not here; these are process-wide settings.
type Config struct {
	IsProduction      bool
	ProdOrigins       string
	HTTPAddr          string
	DBDSN             string
	JWTSecret         string
	JWTAccessTokenTTL time.Duration
	BcryptCost        int

	// Omise API keys. Both empty switches the payment gateway to the local
	// log-only implementation.
	OmisePublicKey string
	OmiseSecretKey string

	// AMQPURL is the change-event broker address. Empty disables publishing
	// (events are logged and dropped), which is useful for local development.
	AMQPURL       string
	EventExchange string

	// LockWaitTimeout bounds how long an interactive operation may wait on a
	// row lock before aborting with a retryable error.
	LockWaitTimeout time.Duration

	// DefaultApprovalSLA applies to hotels that have no SLA of their own.
	DefaultApprovalSLA time.Duration

	// SweepBatchSize caps how many rows a single sweep run processes.
	SweepBatchSize int
}

// Load loads configuration from .env (optional) and environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	err := godotenv.Load()
	if err != nil {
		log.Printf("failed to load .env file: %v", err)
	}

	cfg := &Config{}

	cfg.ProdOrigins = getEnv("PROD_ORIGINS", "")

	appEnvStr := getEnv("APP_ENV", "dev")
	cfg.IsProduction = appEnvStr == PROD_STRING

	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	// Database DSN is required
	cfg.DBDSN = os.Getenv("DB_DSN")
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required")
	}

	// JWT secret is required for signing staff tokens
	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	cfg.JWTAccessTokenTTL, err = getEnvAsDuration("JWT_ACCESS_TOKEN_TTL", "15m")
	if err != nil {
		return nil, err
	}

	cfg.BcryptCost, err = getEnvAsInt("BCRYPT_COST", 12)
	if err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	cfg.OmisePublicKey = getEnv("OMISE_PUBLIC_KEY", "")
	cfg.OmiseSecretKey = getEnv("OMISE_SECRET_KEY", "")

	cfg.AMQPURL = getEnv("AMQP_URL", "")
	cfg.EventExchange = getEnv("EVENT_EXCHANGE", "hotel.events")

	cfg.LockWaitTimeout, err = getEnvAsDuration("LOCK_WAIT_TIMEOUT", "3s")
	if err != nil {
		return nil, err
	}

	cfg.DefaultApprovalSLA, err = getEnvAsDuration("DEFAULT_APPROVAL_SLA", "30m")
	if err != nil {
		return nil, err
	}

	cfg.SweepBatchSize, err = getEnvAsInt("SWEEP_BATCH_SIZE", 200)
	if err != nil {
		return nil, fmt.Errorf("invalid SWEEP_BATCH_SIZE: %w", err)
	}

	return cfg, nil
}

// getEnv returns the value of the environment variable if set,
// otherwise returns the provided default value.
func getEnv(key, defaultValue string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer.
// It returns the default value if the variable is not set.
// It returns an error if the variable is set but is not a valid integer.
func getEnvAsInt(key string, defaultValue int) (int, error) {
	valStr := getEnv(key, "")
	if valStr == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid integer: %w", key, valStr, err)
	}

	return val, nil
}

// getEnvAsDuration retrieves an environment variable as a time.Duration
// (e.g. "3s", "15m"), falling back to the given default expression.
func getEnvAsDuration(key, defaultValue string) (time.Duration, error) {
	valStr := getEnv(key, defaultValue)
	d, err := time.ParseDuration(valStr)
	if err != nil {
		return 0, fmt.Errorf("env %s value %q is not a valid duration: %w", key, valStr, err)
	}
	return d, nil
}
