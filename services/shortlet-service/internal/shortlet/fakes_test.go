package shortlet

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/lifecycle"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/outbox"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/overlap"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/payments"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/storage"
	"go.opentelemetry.io/otel/trace/noop"
)

// fakeTx runs fn without a database. Nothing is rolled back on error.
type fakeTx struct{ calls int }

func (f *fakeTx) InTx(_ context.Context, fn func(pgx.Tx) error) error {
	f.calls++
	return fn(nil)
}

type fakeBookings struct {
	property    model.Property
	rows        map[string]model.ShortletBooking
	keys        map[string]storage.IdempotencyRecord
	overlapping []model.ShortletBooking
	blocks      []model.ShortletBlock
	createErr   error
	created     int
	updates     []model.BookingStatus
}

func (f *fakeBookings) LockProperty(_ context.Context, _ pgx.Tx, propertyID string) (model.Property, error) {
	if propertyID != f.property.ID {
		return model.Property{}, pgx.ErrNoRows
	}
	return f.property, nil
}

func (f *fakeBookings) LockIdempotencyKey(_ context.Context, _ pgx.Tx, guestUserID, key string) (storage.IdempotencyRecord, bool, error) {
	if rec, ok := f.keys[guestUserID+"/"+key]; ok && rec.StatusCode != 0 {
		return rec, true, nil
	}
	rec := storage.IdempotencyRecord{GuestUserID: guestUserID, IdempotencyKey: key}
	f.keys[guestUserID+"/"+key] = rec
	return rec, false, nil
}

func (f *fakeBookings) FinalizeIdempotency(_ context.Context, _ pgx.Tx, guestUserID, key, bookingID string, statusCode int) error {
	f.keys[guestUserID+"/"+key] = storage.IdempotencyRecord{
		GuestUserID:    guestUserID,
		IdempotencyKey: key,
		BookingID:      bookingID,
		StatusCode:     statusCode,
	}
	return nil
}

func (f *fakeBookings) ListOverlapping(context.Context, pgx.Tx, string, overlap.DateRange, []model.BookingStatus) ([]model.ShortletBooking, []model.ShortletBlock, error) {
	return f.overlapping, f.blocks, nil
}

func (f *fakeBookings) Create(_ context.Context, _ pgx.Tx, b *model.ShortletBooking) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created++
	b.ID = uuid.NewString()
	f.rows[b.ID] = *b
	return nil
}

func (f *fakeBookings) Get(_ context.Context, bookingID string) (model.ShortletBooking, error) {
	b, ok := f.rows[bookingID]
	if !ok {
		return model.ShortletBooking{}, pgx.ErrNoRows
	}
	return b, nil
}

func (f *fakeBookings) GetForUpdate(ctx context.Context, _ pgx.Tx, bookingID string) (model.ShortletBooking, error) {
	return f.Get(ctx, bookingID)
}

func (f *fakeBookings) UpdateStatus(_ context.Context, _ pgx.Tx, b *model.ShortletBooking, from model.BookingStatus) error {
	if f.rows[b.ID].Status != from {
		return storage.ErrStaleWrite
	}
	f.rows[b.ID] = *b
	f.updates = append(f.updates, b.Status)
	return nil
}

func (f *fakeBookings) ListDue(context.Context, pgx.Tx, storage.DueKind, time.Time, int) ([]model.ShortletBooking, error) {
	return nil, nil
}

type fakePayments struct {
	rows      []model.ShortletPayment
	createErr error
	applied   []model.ShortletPayment
}

func (f *fakePayments) find(match func(model.ShortletPayment) bool) (int, bool) {
	for i := len(f.rows) - 1; i >= 0; i-- {
		if match(f.rows[i]) {
			return i, true
		}
	}
	return -1, false
}

func (f *fakePayments) FindInitiated(_ context.Context, _ pgx.Tx, bookingID string) (model.ShortletPayment, bool, error) {
	i, ok := f.find(func(p model.ShortletPayment) bool {
		return p.BookingID == bookingID && p.Status == model.PaymentStatusInitiated
	})
	if !ok {
		return model.ShortletPayment{}, false, nil
	}
	return f.rows[i], true, nil
}

func (f *fakePayments) CountForBooking(_ context.Context, _ pgx.Tx, bookingID string) (int, error) {
	n := 0
	for _, p := range f.rows {
		if p.BookingID == bookingID {
			n++
		}
	}
	return n, nil
}

func (f *fakePayments) Create(_ context.Context, _ pgx.Tx, p *model.ShortletPayment) error {
	if f.createErr != nil {
		err := f.createErr
		f.createErr = nil
		return err
	}
	p.ID = uuid.NewString()
	f.rows = append(f.rows, *p)
	return nil
}

func (f *fakePayments) GetByReference(_ context.Context, referenceID string) (model.ShortletPayment, error) {
	i, ok := f.find(func(p model.ShortletPayment) bool { return p.ReferenceID == referenceID })
	if !ok {
		return model.ShortletPayment{}, pgx.ErrNoRows
	}
	return f.rows[i], nil
}

func (f *fakePayments) GetByReferenceForUpdate(ctx context.Context, _ pgx.Tx, referenceID string) (model.ShortletPayment, error) {
	return f.GetByReference(ctx, referenceID)
}

func (f *fakePayments) GetByIntentForUpdate(_ context.Context, _ pgx.Tx, intentID string) (model.ShortletPayment, error) {
	i, ok := f.find(func(p model.ShortletPayment) bool { return p.ProviderIntentID == intentID })
	if !ok {
		return model.ShortletPayment{}, pgx.ErrNoRows
	}
	return f.rows[i], nil
}

func (f *fakePayments) Latest(_ context.Context, bookingID string) (model.ShortletPayment, error) {
	i, ok := f.find(func(p model.ShortletPayment) bool { return p.BookingID == bookingID })
	if !ok {
		return model.ShortletPayment{}, pgx.ErrNoRows
	}
	return f.rows[i], nil
}

func (f *fakePayments) ApplyResult(_ context.Context, _ pgx.Tx, p model.ShortletPayment, from model.PaymentStatus) error {
	i, ok := f.find(func(row model.ShortletPayment) bool { return row.ReferenceID == p.ReferenceID })
	if !ok || f.rows[i].Status != from {
		return storage.ErrStaleWrite
	}
	f.rows[i] = p
	f.applied = append(f.applied, p)
	return nil
}

func (f *fakePayments) ListStaleInitiated(context.Context, time.Time, int) ([]model.ShortletPayment, error) {
	return nil, nil
}

type fakeProviderEvents struct{ seen map[string]bool }

func (f *fakeProviderEvents) Insert(_ context.Context, _ pgx.Tx, evt storage.ProviderEvent) error {
	key := evt.Provider + "/" + evt.ProviderEventID
	if f.seen[key] {
		return storage.ErrDuplicateProviderEvent
	}
	f.seen[key] = true
	return nil
}

type fakeOutbox struct{ events []outbox.Event }

func (f *fakeOutbox) Insert(_ context.Context, _ pgx.Tx, evt outbox.Event) error {
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeOutbox) types() []string {
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeProvider struct {
	keys        []string
	refs        []string
	verifyCalls int
	result      lifecycle.VerificationResult
}

func (f *fakeProvider) Initiate(_ context.Context, req payments.InitiateRequest) (payments.Intent, error) {
	f.keys = append(f.keys, req.IdempotencyKey)
	f.refs = append(f.refs, req.ReferenceID)
	return payments.Intent{ID: "pi_" + req.IdempotencyKey, ClientSecret: "secret_" + req.IdempotencyKey}, nil
}

func (f *fakeProvider) Verify(context.Context, string) (lifecycle.VerificationResult, error) {
	f.verifyCalls++
	return f.result, nil
}

type harness struct {
	svc      *Service
	tx       *fakeTx
	bookings *fakeBookings
	payments *fakePayments
	events   *fakeProviderEvents
	outbox   *fakeOutbox
	provider *fakeProvider
	now      time.Time
}

const (
	testProperty = "0b4f6f8e-8d7c-4a0e-9e55-3c1a2f6d7b10"
	testHost     = "5a1e9c3d-2b7f-4d61-8f0a-9c4e7b2d1a33"
	testGuest    = "e2c7a4b9-6f1d-4c83-a5e0-7b9d3f2c8a54"
)

func newHarness(mode model.BookingMode) *harness {
	h := &harness{
		tx: &fakeTx{},
		bookings: &fakeBookings{
			property: model.Property{ID: testProperty, HostUserID: testHost, Timezone: "Africa/Lagos", BookingMode: mode},
			rows:     map[string]model.ShortletBooking{},
			keys:     map[string]storage.IdempotencyRecord{},
		},
		payments: &fakePayments{},
		events:   &fakeProviderEvents{seen: map[string]bool{}},
		outbox:   &fakeOutbox{},
		provider: &fakeProvider{},
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	h.svc = &Service{
		tx:       h.tx,
		bookings: h.bookings,
		payments: h.payments,
		events:   h.events,
		outbox:   h.outbox,
		provider: h.provider,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   noop.NewTracerProvider().Tracer("test"),
		cfg:      Config{PaymentWindow: 30 * time.Minute, HostResponseWindow: 24 * time.Hour, ViewingSlotMinutes: 30},
		now:      func() time.Time { return h.now },
	}
	return h
}

// seed stores a pending_payment booking with one payment in status and returns both.
func (h *harness) seed(status model.PaymentStatus) (model.ShortletBooking, model.ShortletPayment) {
	expires := h.now.Add(20 * time.Minute)
	b := model.ShortletBooking{
		ID:               uuid.NewString(),
		PropertyID:       testProperty,
		GuestUserID:      testGuest,
		HostUserID:       testHost,
		CheckIn:          time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		CheckOut:         time.Date(2026, 3, 13, 0, 0, 0, 0, time.UTC),
		Nights:           3,
		Status:           model.BookingStatusPendingPayment,
		BookingMode:      h.bookings.property.BookingMode,
		Currency:         "NGN",
		TotalAmountMinor: 450000,
		ExpiresAt:        &expires,
	}
	h.bookings.rows[b.ID] = b
	p := model.ShortletPayment{
		ID:               uuid.NewString(),
		BookingID:        b.ID,
		Status:           status,
		ReferenceID:      uuid.NewString(),
		ProviderIntentID: "pi_seeded",
		AmountMinor:      b.TotalAmountMinor,
		Currency:         b.Currency,
	}
	h.payments.rows = append(h.payments.rows, p)
	return b, p
}

func paid(amount int64) lifecycle.VerificationResult {
	return lifecycle.VerificationResult{
		Status:            lifecycle.ProviderSucceeded,
		AmountMinor:       amount,
		Currency:          "ngn",
		PaidAt:            time.Date(2026, 3, 1, 12, 4, 0, 0, time.UTC),
		AuthorizationCode: "ch_1",
	}
}

// racingProvider runs onInitiate before answering, standing in for a request that wins the race.
type racingProvider struct {
	*fakeProvider
	onInitiate func()
}

func (r *racingProvider) Initiate(ctx context.Context, req payments.InitiateRequest) (payments.Intent, error) {
	r.onInitiate()
	return r.fakeProvider.Initiate(ctx, req)
}
