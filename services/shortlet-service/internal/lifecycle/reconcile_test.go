package lifecycle

import (
	"testing"
	"time"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtures() (model.ShortletBooking, model.ShortletPayment) {
	expires := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	b := model.ShortletBooking{
		ID:               "b-1",
		Status:           model.BookingStatusPendingPayment,
		BookingMode:      model.BookingModeRequest,
		Currency:         "NGN",
		TotalAmountMinor: 250000,
		PaymentReference: "ref-1",
		ExpiresAt:        &expires,
	}
	p := model.ShortletPayment{
		ID:          "p-1",
		BookingID:   "b-1",
		Status:      model.PaymentStatusInitiated,
		ReferenceID: "ref-1",
		AmountMinor: 250000,
		Currency:    "NGN",
	}
	return b, p
}

func success() VerificationResult {
	return VerificationResult{
		Status:            ProviderSucceeded,
		AmountMinor:       250000,
		Currency:          "ngn",
		PaidAt:            time.Date(2026, 3, 1, 12, 5, 0, 0, time.UTC),
		AuthorizationCode: "AUTH_x",
		CustomerCode:      "CUS_y",
	}
}

func TestReconcile_SuccessAdvancesByMode(t *testing.T) {
	b, p := fixtures()

	out, err := Reconcile(b, p, success(), "")
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.True(t, out.BookingChanged)
	assert.False(t, out.NeedsReview)
	assert.Equal(t, model.BookingStatusPending, out.Booking.Status)
	assert.Nil(t, out.Booking.ExpiresAt)
	assert.Equal(t, model.PaymentStatusSucceeded, out.Payment.Status)
	require.NotNil(t, out.Payment.PaidAt)
	assert.Equal(t, "AUTH_x", out.Payment.AuthorizationCode)
	assert.Equal(t, "CUS_y", out.Payment.CustomerCode)

	out, err = Reconcile(b, p, success(), model.BookingModeInstant)
	require.NoError(t, err)
	assert.Equal(t, model.BookingStatusConfirmed, out.Booking.Status)

	// inputs are not mutated
	assert.Equal(t, model.BookingStatusPendingPayment, b.Status)
	assert.NotNil(t, b.ExpiresAt)
}

func TestReconcile_AlreadySucceededIsIdempotent(t *testing.T) {
	b, p := fixtures()
	first, err := Reconcile(b, p, success(), model.BookingModeInstant)
	require.NoError(t, err)

	again1, err1 := Reconcile(first.Booking, first.Payment, success(), model.BookingModeInstant)
	again2, err2 := Reconcile(first.Booking, first.Payment, success(), model.BookingModeInstant)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, again1, again2)
	assert.False(t, again1.Applied)
	assert.False(t, again1.BookingChanged)
	assert.Equal(t, first.Booking, again1.Booking)
	assert.Equal(t, first.Payment, again1.Payment)
}

func TestReconcile_Mismatch(t *testing.T) {
	b, p := fixtures()
	res := success()
	res.AmountMinor = 100

	out, err := Reconcile(b, p, res, model.BookingModeInstant)
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindMismatch))
	assert.True(t, out.Applied)
	assert.True(t, out.NeedsReview)
	assert.Equal(t, model.PaymentStatusFailed, out.Payment.Status)
	assert.Contains(t, out.Payment.FailureReason, "amount mismatch")
	assert.Equal(t, model.BookingStatusPendingPayment, out.Booking.Status)
	assert.False(t, out.BookingChanged)

	res = success()
	res.Currency = "USD"
	out, err = Reconcile(b, p, res, "")
	assert.True(t, apperror.Is(err, apperror.KindMismatch))
	assert.Contains(t, out.Payment.FailureReason, "currency mismatch")

	// verifying the same mismatched capture again writes nothing but still reports it
	again, err := Reconcile(out.Booking, out.Payment, res, "")
	assert.True(t, apperror.Is(err, apperror.KindMismatch))
	assert.False(t, again.Applied)
	assert.True(t, again.NeedsReview)
	assert.Equal(t, out.Payment, again.Payment)
	assert.Equal(t, model.BookingStatusPendingPayment, again.Booking.Status)
}

func TestReconcile_SuccessAfterFailureIsRecoveredAndFlagged(t *testing.T) {
	b, p := fixtures()
	p.Status = model.PaymentStatusFailed
	p.FailureReason = "payment intent canceled"

	out, err := Reconcile(b, p, success(), model.BookingModeInstant)
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.True(t, out.NeedsReview)
	assert.Contains(t, out.Reason, "marked failed")
	assert.Equal(t, model.PaymentStatusSucceeded, out.Payment.Status)
	assert.Empty(t, out.Payment.FailureReason)
	assert.True(t, out.BookingChanged)
	assert.Equal(t, model.BookingStatusConfirmed, out.Booking.Status)
	assert.Nil(t, out.Booking.ExpiresAt)

	// once recorded, a redelivery is a no-op
	again, err := Reconcile(out.Booking, out.Payment, success(), model.BookingModeInstant)
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.False(t, again.NeedsReview)

	// the booking already expired: keep it, record the capture for review
	b.Status = model.BookingStatusExpired
	out, err = Reconcile(b, p, success(), "")
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.True(t, out.NeedsReview)
	assert.False(t, out.BookingChanged)
	assert.Equal(t, model.PaymentStatusSucceeded, out.Payment.Status)

	// non-success reports leave a failed payment alone
	for _, st := range []ProviderStatus{ProviderPending, ProviderFailed} {
		out, err = Reconcile(b, p, VerificationResult{Status: st}, "")
		require.NoError(t, err)
		assert.False(t, out.Applied)
		assert.Equal(t, p, out.Payment)
	}
}

func TestReconcile_PendingAndFailed(t *testing.T) {
	b, p := fixtures()

	out, err := Reconcile(b, p, VerificationResult{Status: ProviderPending}, "")
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Equal(t, p, out.Payment)

	out, err = Reconcile(b, p, VerificationResult{Status: ProviderFailed, FailureReason: "card_declined"}, "")
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.False(t, out.NeedsReview)
	assert.Equal(t, model.PaymentStatusFailed, out.Payment.Status)
	assert.Equal(t, "card_declined", out.Payment.FailureReason)
	assert.Equal(t, model.BookingStatusPendingPayment, out.Booking.Status)
}

func TestReconcile_LatePaymentFlagsReview(t *testing.T) {
	b, p := fixtures()
	b.Status = model.BookingStatusExpired

	out, err := Reconcile(b, p, success(), "")
	require.NoError(t, err)
	assert.True(t, out.Applied)
	assert.True(t, out.NeedsReview)
	assert.False(t, out.BookingChanged)
	assert.Equal(t, model.PaymentStatusSucceeded, out.Payment.Status)
	assert.Equal(t, model.BookingStatusExpired, out.Booking.Status)
}

func TestReconcile_RejectsUnknownStatuses(t *testing.T) {
	b, p := fixtures()
	p.Status = model.PaymentStatusUnknown
	_, err := Reconcile(b, p, success(), "")
	assert.True(t, apperror.Is(err, apperror.KindIllegalTransition))

	_, p = fixtures()
	_, err = Reconcile(b, p, VerificationResult{Status: "weird"}, "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}
