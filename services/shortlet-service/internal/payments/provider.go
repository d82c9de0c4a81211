// Package payments talks to the payment provider. It creates payment intents for bookings and
// turns the provider's view of an intent into a lifecycle.VerificationResult.
package payments

import (
	"context"
	"errors"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/lifecycle"
)

var ErrNotConfigured = errors.New("payment provider not configured")

type InitiateRequest struct {
	BookingID      string
	ReferenceID    string
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
}

type Intent struct {
	ID           string
	ClientSecret string
}

// Provider is implemented by StripeProvider and by test fakes.
type Provider interface {
	Initiate(ctx context.Context, req InitiateRequest) (Intent, error)
	Verify(ctx context.Context, intentID string) (lifecycle.VerificationResult, error)
}
