package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/shortlet/libs/db"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
)

type PaymentRepository struct {
	pool *db.Pool
}

const paymentColumns = `
	id::text, booking_id::text, status, reference_id, COALESCE(provider_intent_id, ''),
	COALESCE(client_secret, ''), amount_minor, currency, COALESCE(authorization_code, ''),
	COALESCE(customer_code, ''), COALESCE(failure_reason, ''), paid_at, created_at, updated_at`

func NewPaymentRepository(pool *db.Pool) *PaymentRepository {
	return &PaymentRepository{pool: pool}
}

// FindInitiated returns the open payment attempt for a booking, if any.
func (r *PaymentRepository) FindInitiated(ctx context.Context, tx pgx.Tx, bookingID string) (model.ShortletPayment, bool, error) {
	p, err := scanPayment(tx.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM shortlet_payments
		WHERE booking_id = $1 AND status = 'initiated'
		FOR UPDATE
	`, bookingID))
	if err != nil {
		if IsNotFound(err) {
			return model.ShortletPayment{}, false, nil
		}
		return model.ShortletPayment{}, false, err
	}
	return p, true, nil
}

// CountForBooking returns how many payment attempts the booking has had, settled or not.
func (r *PaymentRepository) CountForBooking(ctx context.Context, tx pgx.Tx, bookingID string) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `SELECT count(*) FROM shortlet_payments WHERE booking_id = $1`, bookingID).Scan(&n)
	return n, err
}

// Create inserts an initiated payment. A second insert of the same reference, or of another
// initiated payment for the booking, fails with a unique violation (IsDuplicate).
func (r *PaymentRepository) Create(ctx context.Context, tx pgx.Tx, p *model.ShortletPayment) error {
	return tx.QueryRow(ctx, `
		INSERT INTO shortlet_payments
			(booking_id, status, reference_id, provider_intent_id, client_secret, amount_minor, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id::text, created_at, updated_at
	`, p.BookingID, string(p.Status), p.ReferenceID, nullIfEmpty(p.ProviderIntentID), nullIfEmpty(p.ClientSecret),
		p.AmountMinor, p.Currency,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PaymentRepository) GetByReference(ctx context.Context, referenceID string) (model.ShortletPayment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM shortlet_payments WHERE reference_id = $1`, referenceID))
}

func (r *PaymentRepository) GetByReferenceForUpdate(ctx context.Context, tx pgx.Tx, referenceID string) (model.ShortletPayment, error) {
	return scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM shortlet_payments WHERE reference_id = $1 FOR UPDATE`, referenceID))
}

func (r *PaymentRepository) GetByIntentForUpdate(ctx context.Context, tx pgx.Tx, intentID string) (model.ShortletPayment, error) {
	return scanPayment(tx.QueryRow(ctx, `SELECT `+paymentColumns+` FROM shortlet_payments WHERE provider_intent_id = $1 FOR UPDATE`, intentID))
}

// Latest returns the most recent payment attempt for a booking.
func (r *PaymentRepository) Latest(ctx context.Context, bookingID string) (model.ShortletPayment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM shortlet_payments
		WHERE booking_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, bookingID))
}

// ApplyResult persists a reconciled payment, guarded on the status it was read with.
func (r *PaymentRepository) ApplyResult(ctx context.Context, tx pgx.Tx, p model.ShortletPayment, from model.PaymentStatus) error {
	tag, err := tx.Exec(ctx, `
		UPDATE shortlet_payments
		SET status = $3,
			authorization_code = $4,
			customer_code = $5,
			failure_reason = $6,
			paid_at = $7,
			updated_at = now()
		WHERE id = $1 AND status = $2
	`, p.ID, string(from), string(p.Status), nullIfEmpty(p.AuthorizationCode), nullIfEmpty(p.CustomerCode),
		nullIfEmpty(p.FailureReason), p.PaidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleWrite
	}
	return nil
}

// ListStaleInitiated returns initiated payments older than cutoff that have a provider intent.
func (r *PaymentRepository) ListStaleInitiated(ctx context.Context, cutoff time.Time, limit int) ([]model.ShortletPayment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM shortlet_payments
		WHERE status = 'initiated' AND provider_intent_id IS NOT NULL AND created_at <= $1
		ORDER BY created_at
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ShortletPayment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanPayment(row pgx.Row) (model.ShortletPayment, error) {
	var p model.ShortletPayment
	var status string
	err := row.Scan(
		&p.ID,
		&p.BookingID,
		&status,
		&p.ReferenceID,
		&p.ProviderIntentID,
		&p.ClientSecret,
		&p.AmountMinor,
		&p.Currency,
		&p.AuthorizationCode,
		&p.CustomerCode,
		&p.FailureReason,
		&p.PaidAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return model.ShortletPayment{}, err
	}
	p.Status, _ = model.ParsePaymentStatus(status)
	return p, nil
}
