package payment

import (
	"context"
	"fmt"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"
)

// OmiseGateway implements Gateway against the Omise API. The payment
// reference stored on the booking is the Omise charge id.
type OmiseGateway struct {
	client *omise.Client
}

func NewOmiseGateway(publicKey, secretKey string) (*OmiseGateway, error) {
	client, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("create omise client: %w", err)
	}
	return &OmiseGateway{client: client}, nil
}

func (g *OmiseGateway) Capture(ctx context.Context, amountCents int64, currency, reference string) (CaptureResult, error) {
	charge := &omise.Charge{}
	err := g.client.Do(charge, &operations.CreateCharge{
		Amount:   amountCents,
		Currency: currency,
		Customer: reference,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	switch charge.Status {
	case omise.ChargeSuccessful:
		return CaptureConfirmed, nil
	case omise.ChargePending:
		return CapturePending, nil
	default:
		return "", fmt.Errorf("%w: charge %s status %s", ErrGatewayUnavailable, charge.ID, charge.Status)
	}
}

func (g *OmiseGateway) Refund(ctx context.Context, reference string) error {
	charge := &omise.Charge{}
	if err := g.client.Do(charge, &operations.RetrieveCharge{ChargeID: reference}); err != nil {
		return fmt.Errorf("%w: retrieve charge %s: %v", ErrGatewayUnavailable, reference, err)
	}

	refund := &omise.Refund{}
	err := g.client.Do(refund, &operations.CreateRefund{
		ChargeID: reference,
		Amount:   charge.Amount - charge.RefundedAmount,
	})
	if err != nil {
		return fmt.Errorf("%w: refund charge %s: %v", ErrGatewayUnavailable, reference, err)
	}
	return nil
}
