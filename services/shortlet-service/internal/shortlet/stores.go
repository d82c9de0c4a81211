package shortlet

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/outbox"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/overlap"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/storage"
)

// The narrow views of storage the service needs. The pgx repositories satisfy them.

type txRunner interface {
	InTx(ctx context.Context, fn func(pgx.Tx) error) error
}

type scheduleStore interface {
	GetSchedule(ctx context.Context, propertyID string, from, to time.Time) (model.PropertySchedule, error)
}

type bookingStore interface {
	LockProperty(ctx context.Context, tx pgx.Tx, propertyID string) (model.Property, error)
	LockIdempotencyKey(ctx context.Context, tx pgx.Tx, guestUserID, key string) (storage.IdempotencyRecord, bool, error)
	FinalizeIdempotency(ctx context.Context, tx pgx.Tx, guestUserID, key, bookingID string, statusCode int) error
	ListOverlapping(ctx context.Context, tx pgx.Tx, propertyID string, rng overlap.DateRange, statuses []model.BookingStatus) ([]model.ShortletBooking, []model.ShortletBlock, error)
	Create(ctx context.Context, tx pgx.Tx, b *model.ShortletBooking) error
	Get(ctx context.Context, bookingID string) (model.ShortletBooking, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, bookingID string) (model.ShortletBooking, error)
	UpdateStatus(ctx context.Context, tx pgx.Tx, b *model.ShortletBooking, from model.BookingStatus) error
	ListDue(ctx context.Context, tx pgx.Tx, kind storage.DueKind, now time.Time, limit int) ([]model.ShortletBooking, error)
}

type paymentStore interface {
	FindInitiated(ctx context.Context, tx pgx.Tx, bookingID string) (model.ShortletPayment, bool, error)
	CountForBooking(ctx context.Context, tx pgx.Tx, bookingID string) (int, error)
	Create(ctx context.Context, tx pgx.Tx, p *model.ShortletPayment) error
	GetByReference(ctx context.Context, referenceID string) (model.ShortletPayment, error)
	GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, referenceID string) (model.ShortletPayment, error)
	GetByIntentForUpdate(ctx context.Context, tx pgx.Tx, intentID string) (model.ShortletPayment, error)
	Latest(ctx context.Context, bookingID string) (model.ShortletPayment, error)
	ApplyResult(ctx context.Context, tx pgx.Tx, p model.ShortletPayment, from model.PaymentStatus) error
	ListStaleInitiated(ctx context.Context, cutoff time.Time, limit int) ([]model.ShortletPayment, error)
}

type providerEventStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt storage.ProviderEvent) error
}

type outboxStore interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) error
}
