package payments

import (
	"context"
	"strings"
	"time"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/lifecycle"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/paymentintent"
)

const (
	MetadataBookingID   = "booking_id"
	MetadataReferenceID = "reference_id"
)

type StripeProvider struct {
	secretKey string
}

func NewStripeProvider(secretKey string) *StripeProvider {
	return &StripeProvider{secretKey: strings.TrimSpace(secretKey)}
}

func (p *StripeProvider) Enabled() bool {
	return p != nil && p.secretKey != ""
}

func (p *StripeProvider) Initiate(ctx context.Context, req InitiateRequest) (Intent, error) {
	if !p.Enabled() {
		return Intent{}, ErrNotConfigured
	}
	stripe.Key = p.secretKey

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(req.AmountMinor),
		Currency: stripe.String(strings.ToLower(req.Currency)),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata(MetadataBookingID, req.BookingID)
	params.AddMetadata(MetadataReferenceID, req.ReferenceID)
	if req.IdempotencyKey != "" {
		params.IdempotencyKey = stripe.String(req.IdempotencyKey)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return Intent{}, err
	}
	return Intent{ID: pi.ID, ClientSecret: pi.ClientSecret}, nil
}

func (p *StripeProvider) Verify(ctx context.Context, intentID string) (lifecycle.VerificationResult, error) {
	if !p.Enabled() {
		return lifecycle.VerificationResult{}, ErrNotConfigured
	}
	stripe.Key = p.secretKey

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	params.AddExpand("latest_charge")
	pi, err := paymentintent.Get(intentID, params)
	if err != nil {
		return lifecycle.VerificationResult{}, err
	}
	return FromPaymentIntent(pi), nil
}

// FromPaymentIntent maps a Stripe intent onto the provider-neutral result. Only a canceled intent
// is failed. A declined card leaves the intent in requires_payment_method, where the customer can
// retry it, so that stays pending with the rest.
func FromPaymentIntent(pi *stripe.PaymentIntent) lifecycle.VerificationResult {
	res := lifecycle.VerificationResult{
		AmountMinor: pi.Amount,
		Currency:    strings.ToUpper(string(pi.Currency)),
	}
	if pi.Customer != nil {
		res.CustomerCode = pi.Customer.ID
	}

	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		res.Status = lifecycle.ProviderSucceeded
		if pi.AmountReceived > 0 {
			res.AmountMinor = pi.AmountReceived
		}
		res.PaidAt = time.Unix(pi.Created, 0).UTC()
		if ch := pi.LatestCharge; ch != nil {
			res.AuthorizationCode = ch.ID
			if ch.Created > 0 {
				res.PaidAt = time.Unix(ch.Created, 0).UTC()
			}
		}
	case stripe.PaymentIntentStatusCanceled:
		res.Status = lifecycle.ProviderFailed
		res.FailureReason = "payment intent canceled"
		if pi.CancellationReason != "" {
			res.FailureReason += ": " + string(pi.CancellationReason)
		}
	default:
		res.Status = lifecycle.ProviderPending
	}
	return res
}
