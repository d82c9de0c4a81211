package payments

import (
	"context"
	"testing"
	"time"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/lifecycle"
	"github.com/stretchr/testify/assert"
	"github.com/stripe/stripe-go/v79"
)

func TestFromPaymentIntent_Succeeded(t *testing.T) {
	pi := &stripe.PaymentIntent{
		ID:             "pi_1",
		Amount:         250000,
		AmountReceived: 250000,
		Currency:       stripe.Currency("ngn"),
		Status:         stripe.PaymentIntentStatusSucceeded,
		Created:        1772366400,
		Customer:       &stripe.Customer{ID: "cus_1"},
		LatestCharge:   &stripe.Charge{ID: "ch_1", Created: 1772366460},
	}
	res := FromPaymentIntent(pi)
	assert.Equal(t, lifecycle.ProviderSucceeded, res.Status)
	assert.Equal(t, int64(250000), res.AmountMinor)
	assert.Equal(t, "NGN", res.Currency)
	assert.Equal(t, "ch_1", res.AuthorizationCode)
	assert.Equal(t, "cus_1", res.CustomerCode)
	assert.Equal(t, time.Unix(1772366460, 0).UTC(), res.PaidAt)
}

func TestFromPaymentIntent_PendingAndFailed(t *testing.T) {
	for _, s := range []stripe.PaymentIntentStatus{
		stripe.PaymentIntentStatusProcessing,
		stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresPaymentMethod,
	} {
		res := FromPaymentIntent(&stripe.PaymentIntent{Status: s})
		assert.Equal(t, lifecycle.ProviderPending, res.Status, "status %s", s)
	}

	// a declined card can be retried on the same intent
	res := FromPaymentIntent(&stripe.PaymentIntent{
		Status:           stripe.PaymentIntentStatusRequiresPaymentMethod,
		LastPaymentError: &stripe.Error{Msg: "Your card was declined."},
	})
	assert.Equal(t, lifecycle.ProviderPending, res.Status)
	assert.Empty(t, res.FailureReason)

	res = FromPaymentIntent(&stripe.PaymentIntent{Status: stripe.PaymentIntentStatusCanceled})
	assert.Equal(t, lifecycle.ProviderFailed, res.Status)
	assert.Contains(t, res.FailureReason, "canceled")
}

func TestStripeProvider_Disabled(t *testing.T) {
	p := NewStripeProvider("  ")
	_, err := p.Initiate(context.Background(), InitiateRequest{})
	assert.ErrorIs(t, err, ErrNotConfigured)
	_, err = p.Verify(context.Background(), "pi_1")
	assert.ErrorIs(t, err, ErrNotConfigured)
}
