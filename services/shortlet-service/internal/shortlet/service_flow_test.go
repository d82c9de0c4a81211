package shortlet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/lifecycle"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/outbox"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingInput(key string) CreateBookingInput {
	return CreateBookingInput{
		PropertyID:       testProperty,
		GuestUserID:      testGuest,
		CheckIn:          "2026-03-10",
		CheckOut:         "2026-03-13",
		Currency:         "ngn",
		TotalAmountMinor: 450000,
		IdempotencyKey:   key,
	}
}

func TestCreateBooking_HoldsDatesInPendingPayment(t *testing.T) {
	h := newHarness(model.BookingModeInstant)

	b, replay, err := h.svc.CreateBooking(context.Background(), bookingInput(""))
	require.NoError(t, err)
	assert.False(t, replay)
	assert.Equal(t, model.BookingStatusPendingPayment, b.Status)
	assert.Equal(t, 3, b.Nights)
	assert.Equal(t, "NGN", b.Currency)
	require.NotNil(t, b.ExpiresAt)
	assert.Equal(t, h.now.Add(30*time.Minute), *b.ExpiresAt)
	assert.Equal(t, []string{outbox.EventBookingCreated}, h.outbox.types())
}

func TestCreateBooking_ExclusionViolationIsUnavailable(t *testing.T) {
	h := newHarness(model.BookingModeRequest)
	h.bookings.createErr = &pgconn.PgError{Code: "23P01", ConstraintName: "shortlet_bookings_no_overlap"}

	_, _, err := h.svc.CreateBooking(context.Background(), bookingInput(""))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindUnavailable), "got %v", err)
	assert.Empty(t, h.outbox.events)
}

func TestCreateBooking_OverlapCheckUsesBookingsAndBlocks(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	h := newHarness(model.BookingModeRequest)
	h.bookings.overlapping = []model.ShortletBooking{
		{ID: "old", PropertyID: testProperty, CheckIn: day(12), CheckOut: day(14), Status: model.BookingStatusConfirmed},
	}
	_, _, err := h.svc.CreateBooking(context.Background(), bookingInput(""))
	assert.True(t, apperror.Is(err, apperror.KindUnavailable), "got %v", err)
	assert.Zero(t, h.bookings.created)

	h = newHarness(model.BookingModeRequest)
	h.bookings.blocks = []model.ShortletBlock{{ID: "blk", PropertyID: testProperty, DateFrom: day(9), DateTo: day(11)}}
	_, _, err = h.svc.CreateBooking(context.Background(), bookingInput(""))
	assert.True(t, apperror.Is(err, apperror.KindUnavailable), "got %v", err)

	// a released booking does not hold its dates
	h = newHarness(model.BookingModeRequest)
	h.bookings.overlapping = []model.ShortletBooking{
		{ID: "gone", PropertyID: testProperty, CheckIn: day(10), CheckOut: day(13), Status: model.BookingStatusCancelled},
	}
	_, _, err = h.svc.CreateBooking(context.Background(), bookingInput(""))
	require.NoError(t, err)
}

func TestCreateBooking_HostCannotBookOwnProperty(t *testing.T) {
	h := newHarness(model.BookingModeRequest)
	in := bookingInput("")
	in.GuestUserID = testHost

	_, _, err := h.svc.CreateBooking(context.Background(), in)
	assert.True(t, apperror.Is(err, apperror.KindValidation), "got %v", err)
}

func TestCreateBooking_IdempotencyKeyReplays(t *testing.T) {
	h := newHarness(model.BookingModeRequest)

	first, replay, err := h.svc.CreateBooking(context.Background(), bookingInput("key-1"))
	require.NoError(t, err)
	require.False(t, replay)

	second, replay, err := h.svc.CreateBooking(context.Background(), bookingInput("key-1"))
	require.NoError(t, err)
	assert.True(t, replay)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, h.bookings.created)
	assert.Len(t, h.outbox.events, 1)

	_, replay, err = h.svc.CreateBooking(context.Background(), bookingInput("key-2"))
	require.NoError(t, err)
	assert.False(t, replay)
	assert.Equal(t, 2, h.bookings.created)
}

func TestVerifyPayment_SettledPaymentSkipsProviderAndWrites(t *testing.T) {
	h := newHarness(model.BookingModeInstant)
	_, p := h.seed(model.PaymentStatusSucceeded)

	for i := 0; i < 2; i++ {
		res, err := h.svc.VerifyPayment(context.Background(), p.ReferenceID)
		require.NoError(t, err)
		assert.False(t, res.Outcome.Applied)
		assert.Equal(t, model.PaymentStatusSucceeded, res.Payment.Status)
	}
	assert.Zero(t, h.provider.verifyCalls)
	assert.Zero(t, h.tx.calls)
	assert.Empty(t, h.payments.applied)
	assert.Empty(t, h.outbox.events)
}

func TestVerifyPayment_PendingWritesNothing(t *testing.T) {
	h := newHarness(model.BookingModeInstant)
	b, p := h.seed(model.PaymentStatusInitiated)
	h.provider.result = lifecycle.VerificationResult{Status: lifecycle.ProviderPending}

	res, err := h.svc.VerifyPayment(context.Background(), p.ReferenceID)
	require.NoError(t, err)
	assert.False(t, res.Outcome.Applied)
	assert.Equal(t, 1, h.provider.verifyCalls)
	assert.Empty(t, h.payments.applied)
	assert.Empty(t, h.bookings.updates)
	assert.Empty(t, h.outbox.events)
	assert.Equal(t, b, h.bookings.rows[b.ID])
}

func TestVerifyPayment_SuccessAdvancesOnce(t *testing.T) {
	h := newHarness(model.BookingModeInstant)
	b, p := h.seed(model.PaymentStatusInitiated)
	h.provider.result = paid(450000)

	res, err := h.svc.VerifyPayment(context.Background(), p.ReferenceID)
	require.NoError(t, err)
	assert.True(t, res.Outcome.Applied)
	assert.Equal(t, model.BookingStatusConfirmed, res.Booking.Status)
	assert.Equal(t, model.BookingStatusConfirmed, h.bookings.rows[b.ID].Status)
	assert.Nil(t, h.bookings.rows[b.ID].ExpiresAt)
	assert.Equal(t, []string{outbox.EventBookingStatusChanged, outbox.EventPaymentSucceeded}, h.outbox.types())

	again, err := h.svc.VerifyPayment(context.Background(), p.ReferenceID)
	require.NoError(t, err)
	assert.False(t, again.Outcome.Applied)
	assert.Equal(t, 1, h.provider.verifyCalls)
	assert.Len(t, h.outbox.events, 2)
}

func TestVerifyPayment_RequestModeWaitsForHost(t *testing.T) {
	h := newHarness(model.BookingModeRequest)
	b, p := h.seed(model.PaymentStatusInitiated)
	h.provider.result = paid(450000)

	_, err := h.svc.VerifyPayment(context.Background(), p.ReferenceID)
	require.NoError(t, err)
	got := h.bookings.rows[b.ID]
	assert.Equal(t, model.BookingStatusPending, got.Status)
	require.NotNil(t, got.RespondBy)
	assert.Equal(t, h.now.Add(24*time.Hour), *got.RespondBy)
}

func TestVerifyPayment_MismatchIsPersistedAndReturned(t *testing.T) {
	h := newHarness(model.BookingModeInstant)
	b, p := h.seed(model.PaymentStatusInitiated)
	h.provider.result = paid(100)

	res, err := h.svc.VerifyPayment(context.Background(), p.ReferenceID)
	assert.True(t, apperror.Is(err, apperror.KindMismatch), "got %v", err)
	assert.Equal(t, model.PaymentStatusFailed, res.Payment.Status)
	assert.True(t, res.Outcome.NeedsReview)
	assert.Equal(t, model.BookingStatusPendingPayment, h.bookings.rows[b.ID].Status)
	assert.Equal(t, []string{outbox.EventPaymentFailed, outbox.EventPaymentReview}, h.outbox.types())
}

func TestVerifyPayment_CaptureAfterFailureIsRecovered(t *testing.T) {
	h := newHarness(model.BookingModeInstant)
	b, p := h.seed(model.PaymentStatusFailed)
	h.provider.result = paid(450000)

	res, err := h.svc.VerifyPayment(context.Background(), p.ReferenceID)
	require.NoError(t, err)
	assert.Equal(t, 1, h.provider.verifyCalls)
	assert.True(t, res.Outcome.NeedsReview)
	assert.Equal(t, model.PaymentStatusSucceeded, res.Payment.Status)
	assert.Equal(t, model.BookingStatusConfirmed, h.bookings.rows[b.ID].Status)
	assert.Equal(t, []string{
		outbox.EventBookingStatusChanged,
		outbox.EventPaymentSucceeded,
		outbox.EventPaymentReview,
	}, h.outbox.types())
}

func TestApplyProviderNotification_RedeliveryChangesNothing(t *testing.T) {
	h := newHarness(model.BookingModeInstant)
	b, _ := h.seed(model.PaymentStatusInitiated)
	n := ProviderNotification{
		Event:    storage.ProviderEvent{Provider: "stripe", ProviderEventID: "evt_1", EventType: "payment_intent.succeeded", Payload: []byte(`{}`)},
		IntentID: "pi_seeded",
		Result:   paid(450000),
	}

	res, dup, err := h.svc.ApplyProviderNotification(context.Background(), n)
	require.NoError(t, err)
	assert.False(t, dup)
	assert.True(t, res.Outcome.Applied)
	assert.Equal(t, model.BookingStatusConfirmed, h.bookings.rows[b.ID].Status)
	events := len(h.outbox.events)

	_, dup, err = h.svc.ApplyProviderNotification(context.Background(), n)
	require.NoError(t, err)
	assert.True(t, dup)
	assert.Len(t, h.outbox.events, events)
	assert.Len(t, h.payments.applied, 1)
}

func TestInitiatePayment_RetryReusesProviderIdempotencyKey(t *testing.T) {
	h := newHarness(model.BookingModeInstant)
	b, _ := h.seed(model.PaymentStatusFailed)
	h.payments.createErr = errors.New("connection reset")

	_, err := h.svc.InitiatePayment(context.Background(), b.ID)
	require.Error(t, err)

	p, err := h.svc.InitiatePayment(context.Background(), b.ID)
	require.NoError(t, err)
	require.Len(t, h.provider.keys, 2)
	assert.Equal(t, h.provider.keys[0], h.provider.keys[1])
	assert.Equal(t, h.provider.refs[0], h.provider.refs[1])
	assert.Equal(t, h.provider.refs[1], p.ReferenceID)
	assert.Equal(t, model.PaymentStatusInitiated, p.Status)
	assert.Equal(t, "pi_"+h.provider.keys[1], p.ProviderIntentID)

	// the open attempt is returned without asking the provider again
	again, err := h.svc.InitiatePayment(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ReferenceID, again.ReferenceID)
	assert.Len(t, h.provider.keys, 2)
}

func TestInitiatePayment_ConcurrentInsertReturnsStoredAttempt(t *testing.T) {
	h := newHarness(model.BookingModeInstant)
	b, _ := h.seed(model.PaymentStatusFailed)
	winner := model.ShortletPayment{ID: "won", BookingID: b.ID, Status: model.PaymentStatusInitiated, ReferenceID: paymentReference(b.ID, 2)}
	h.payments.createErr = &pgconn.PgError{Code: "23505"}

	// the racing request lands between the read and the insert
	h.svc.provider = &racingProvider{fakeProvider: h.provider, onInitiate: func() { h.payments.rows = append(h.payments.rows, winner) }}

	p, err := h.svc.InitiatePayment(context.Background(), b.ID)
	require.NoError(t, err)
	assert.Equal(t, "won", p.ID)
}

func TestInitiatePayment_RejectsClosedBooking(t *testing.T) {
	h := newHarness(model.BookingModeInstant)
	b, _ := h.seed(model.PaymentStatusFailed)

	h.now = b.ExpiresAt.Add(time.Second)
	_, err := h.svc.InitiatePayment(context.Background(), b.ID)
	assert.True(t, apperror.Is(err, apperror.KindUnavailable), "got %v", err)

	b.Status = model.BookingStatusExpired
	h.bookings.rows[b.ID] = b
	_, err = h.svc.InitiatePayment(context.Background(), b.ID)
	assert.True(t, apperror.Is(err, apperror.KindIllegalTransition), "got %v", err)
	assert.Empty(t, h.provider.keys)
}

func TestPaymentReference_Deterministic(t *testing.T) {
	a := paymentReference("b-1", 1)
	assert.Equal(t, a, paymentReference("b-1", 1))
	assert.NotEqual(t, a, paymentReference("b-1", 2))
	assert.NotEqual(t, a, paymentReference("b-2", 1))
}
