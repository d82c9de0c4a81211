package storage

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/shortlet/libs/db"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
)

type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) GetProperty(ctx context.Context, propertyID string) (model.Property, error) {
	var p model.Property
	var mode string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, host_user_id::text, timezone, booking_mode
		FROM properties
		WHERE id = $1
	`, propertyID).Scan(&p.ID, &p.HostUserID, &p.Timezone, &mode)
	if err != nil {
		return model.Property{}, err
	}
	p.BookingMode, _ = model.ParseBookingMode(mode)
	return p, nil
}

// GetSchedule loads the property's timezone, all weekly rules and the exceptions between from and
// to inclusive. Exceptions come back in insertion order, which is the order they are applied in.
func (r *ScheduleRepository) GetSchedule(ctx context.Context, propertyID string, from, to time.Time) (model.PropertySchedule, error) {
	prop, err := r.GetProperty(ctx, propertyID)
	if err != nil {
		return model.PropertySchedule{}, err
	}
	sched := model.PropertySchedule{PropertyID: prop.ID, Timezone: prop.Timezone}

	rows, err := r.pool.Query(ctx, `
		SELECT day_of_week, start_minute, end_minute
		FROM property_availability_rules
		WHERE property_id = $1
		ORDER BY day_of_week, start_minute
	`, propertyID)
	if err != nil {
		return model.PropertySchedule{}, err
	}
	for rows.Next() {
		var rule model.WeeklyRule
		if err := rows.Scan(&rule.DayOfWeek, &rule.StartMinute, &rule.EndMinute); err != nil {
			rows.Close()
			return model.PropertySchedule{}, err
		}
		sched.Rules = append(sched.Rules, rule)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return model.PropertySchedule{}, err
	}

	rows, err = r.pool.Query(ctx, `
		SELECT to_char(local_date, 'YYYY-MM-DD'), type, start_minute, end_minute
		FROM property_availability_exceptions
		WHERE property_id = $1 AND local_date BETWEEN $2 AND $3
		ORDER BY local_date, id
	`, propertyID, from, to)
	if err != nil {
		return model.PropertySchedule{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var ex model.AvailabilityException
		var typ string
		if err := rows.Scan(&ex.LocalDate, &typ, &ex.StartMinute, &ex.EndMinute); err != nil {
			return model.PropertySchedule{}, err
		}
		ex.Type = model.ExceptionType(typ)
		sched.Exceptions = append(sched.Exceptions, ex)
	}
	if err := rows.Err(); err != nil {
		return model.PropertySchedule{}, err
	}
	return sched, nil
}
