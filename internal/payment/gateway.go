package payment

import (
	"context"
	"log"

	"github.com/nekogravitycat/hotel-ops-backend/internal/pkg/apperror"
)

var ErrGatewayUnavailable = apperror.External("payment processor unavailable")

// CaptureResult reports how far a capture got. Some processors confirm
// synchronously, others leave the charge pending until a webhook lands.
type CaptureResult string

const (
	CapturePending   CaptureResult = "pending"
	CaptureConfirmed CaptureResult = "confirmed"
)

// Gateway is the external payment processor collaborator. A failed call
// leaves the booking in its prior state; the caller retries or flags the
// booking for manual review.
type Gateway interface {
	// Capture charges the given amount against a payment reference.
	Capture(ctx context.Context, amountCents int64, currency, reference string) (CaptureResult, error)

	// Refund initiates a refund for a previously captured reference. The
	// result arrives asynchronously via webhook and must be treated as
	// at-least-once: duplicate confirmations are ignored.
	Refund(ctx context.Context, reference string) error
}

// LogGateway approves every charge and refund and writes them to the
// process log. Used when no processor keys are configured (local
// development).
type LogGateway struct{}

func (LogGateway) Capture(_ context.Context, amountCents int64, currency, reference string) (CaptureResult, error) {
	log.Printf("payment capture %d %s ref=%s (log gateway)", amountCents, currency, reference)
	return CaptureConfirmed, nil
}

func (LogGateway) Refund(_ context.Context, reference string) error {
	log.Printf("payment refund ref=%s (log gateway)", reference)
	return nil
}
