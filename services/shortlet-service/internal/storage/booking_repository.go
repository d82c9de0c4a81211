package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/shortlet/libs/db"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/overlap"
)

type BookingRepository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	GuestUserID    string
	IdempotencyKey string
	BookingID      string
	StatusCode     int
}

// DueKind selects which deadline ListDue scans.
type DueKind int

const (
	DuePaymentWindow DueKind = iota
	DueHostResponse
	DueStayEnded
)

const bookingColumns = `
	id::text, property_id::text, guest_user_id::text, host_user_id::text, check_in, check_out, nights,
	status, booking_mode, currency, total_amount_minor, payment_reference, expires_at, respond_by,
	created_at, updated_at`

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

// LockProperty takes a row lock on the property so overlap reads and the insert that follows are
// serialised per property.
func (r *BookingRepository) LockProperty(ctx context.Context, tx pgx.Tx, propertyID string) (model.Property, error) {
	var p model.Property
	var mode string
	err := tx.QueryRow(ctx, `
		SELECT id::text, host_user_id::text, timezone, booking_mode
		FROM properties
		WHERE id = $1
		FOR UPDATE
	`, propertyID).Scan(&p.ID, &p.HostUserID, &p.Timezone, &mode)
	if err != nil {
		return model.Property{}, err
	}
	p.BookingMode, _ = model.ParseBookingMode(mode)
	return p, nil
}

func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, guestUserID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, guestUserID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO shortlet_booking_idempotency_keys (guest_user_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (guest_user_id, idempotency_key) DO NOTHING
	`, guestUserID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, guestUserID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, rec.StatusCode != 0, nil
}

// FinalizeIdempotency binds the key to the booking it created. A replay loads that booking.
func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, guestUserID, key, bookingID string, statusCode int) error {
	_, err := tx.Exec(ctx, `
		UPDATE shortlet_booking_idempotency_keys
		SET booking_id = $3,
			status_code = $4,
			updated_at = now()
		WHERE guest_user_id = $1 AND idempotency_key = $2
	`, guestUserID, key, bookingID, statusCode)
	return err
}

// ListOverlapping returns the bookings and blocks on propertyID whose range intersects rng.
// Bookings are filtered to statuses and carry only their identity, range and status.
func (r *BookingRepository) ListOverlapping(ctx context.Context, tx pgx.Tx, propertyID string, rng overlap.DateRange, statuses []model.BookingStatus) ([]model.ShortletBooking, []model.ShortletBlock, error) {
	names := make([]string, 0, len(statuses))
	for _, s := range statuses {
		names = append(names, string(s))
	}
	rows, err := tx.Query(ctx, `
		SELECT id::text, property_id::text, check_in, check_out, status
		FROM shortlet_bookings
		WHERE property_id = $1
			AND status = ANY($2)
			AND check_in < $4
			AND check_out > $3
	`, propertyID, names, rng.Start, rng.End)
	if err != nil {
		return nil, nil, err
	}
	bookings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ShortletBooking, error) {
		var b model.ShortletBooking
		var status string
		if err := row.Scan(&b.ID, &b.PropertyID, &b.CheckIn, &b.CheckOut, &status); err != nil {
			return model.ShortletBooking{}, err
		}
		b.Status, _ = model.ParseBookingStatus(status)
		return b, nil
	})
	if err != nil {
		return nil, nil, err
	}

	rows, err = tx.Query(ctx, `
		SELECT id::text, property_id::text, date_from, date_to, reason
		FROM shortlet_blocks
		WHERE property_id = $1
			AND date_from < $3
			AND date_to > $2
	`, propertyID, rng.Start, rng.End)
	if err != nil {
		return nil, nil, err
	}
	blocks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ShortletBlock, error) {
		var b model.ShortletBlock
		err := row.Scan(&b.ID, &b.PropertyID, &b.DateFrom, &b.DateTo, &b.Reason)
		return b, err
	})
	if err != nil {
		return nil, nil, err
	}
	return bookings, blocks, nil
}

func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.ShortletBooking) error {
	return tx.QueryRow(ctx, `
		INSERT INTO shortlet_bookings
			(property_id, guest_user_id, host_user_id, check_in, check_out, nights, status, booking_mode,
			 currency, total_amount_minor, payment_reference, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id::text, created_at, updated_at
	`, b.PropertyID, b.GuestUserID, b.HostUserID, b.CheckIn, b.CheckOut, b.Nights, string(b.Status),
		string(b.BookingMode), b.Currency, b.TotalAmountMinor, b.PaymentReference, b.ExpiresAt,
	).Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *BookingRepository) Get(ctx context.Context, bookingID string) (model.ShortletBooking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM shortlet_bookings WHERE id = $1`, bookingID))
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, bookingID string) (model.ShortletBooking, error) {
	return scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM shortlet_bookings WHERE id = $1 FOR UPDATE`, bookingID))
}

// UpdateStatus writes b's status and deadlines, guarded on the status it was read with.
func (r *BookingRepository) UpdateStatus(ctx context.Context, tx pgx.Tx, b *model.ShortletBooking, from model.BookingStatus) error {
	tag, err := tx.Exec(ctx, `
		UPDATE shortlet_bookings
		SET status = $3,
			expires_at = $4,
			respond_by = $5,
			updated_at = now()
		WHERE id = $1 AND status = $2
	`, b.ID, string(from), string(b.Status), b.ExpiresAt, b.RespondBy)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleWrite
	}
	return nil
}

// ListDue locks up to limit bookings whose deadline of the given kind is before now.
// Rows locked by another worker are skipped.
func (r *BookingRepository) ListDue(ctx context.Context, tx pgx.Tx, kind DueKind, now time.Time, limit int) ([]model.ShortletBooking, error) {
	if limit <= 0 {
		limit = 100
	}
	var where string
	switch kind {
	case DuePaymentWindow:
		where = `status = 'pending_payment' AND expires_at IS NOT NULL AND expires_at <= $1`
	case DueHostResponse:
		where = `status = 'pending' AND respond_by IS NOT NULL AND respond_by <= $1`
	case DueStayEnded:
		where = `status = 'confirmed' AND check_out <= ($1::timestamptz AT TIME ZONE 'UTC')::date`
	default:
		return nil, errors.New("unknown due kind")
	}
	rows, err := tx.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM shortlet_bookings
		WHERE `+where+`
		ORDER BY id
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ShortletBooking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanBooking(row pgx.Row) (model.ShortletBooking, error) {
	var b model.ShortletBooking
	var status, mode string
	err := row.Scan(
		&b.ID,
		&b.PropertyID,
		&b.GuestUserID,
		&b.HostUserID,
		&b.CheckIn,
		&b.CheckOut,
		&b.Nights,
		&status,
		&mode,
		&b.Currency,
		&b.TotalAmountMinor,
		&b.PaymentReference,
		&b.ExpiresAt,
		&b.RespondBy,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return model.ShortletBooking{}, err
	}
	b.Status, _ = model.ParseBookingStatus(status)
	b.BookingMode, _ = model.ParseBookingMode(mode)
	return b, nil
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, guestUserID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	err := tx.QueryRow(ctx, `
		SELECT guest_user_id::text,
			idempotency_key,
			COALESCE(booking_id::text, ''),
			COALESCE(status_code, 0)
		FROM shortlet_booking_idempotency_keys
		WHERE guest_user_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, guestUserID, key).Scan(
		&rec.GuestUserID,
		&rec.IdempotencyKey,
		&rec.BookingID,
		&rec.StatusCode,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	return rec, nil
}
