package availability

import (
	"time"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
)

const (
	MinPreferredTimes = 1
	MaxPreferredTimes = 3

	// DefaultViewingSlotMinutes is the granularity viewing requests are offered at.
	DefaultViewingSlotMinutes = 30
)

// AssertPreferredTimesInAvailability accepts a viewing proposal only if every instant is one
// of the generated slots for its local date. A single miss rejects the whole batch.
// The returned instants are the inputs in UTC, in input order.
func AssertPreferredTimesInAvailability(instants []time.Time, timezone string, rules []model.WeeklyRule, exceptions []model.AvailabilityException, slotMinutes int) ([]time.Time, error) {
	if len(instants) < MinPreferredTimes || len(instants) > MaxPreferredTimes {
		return nil, apperror.Validation("between %d and %d preferred times are required, got %d",
			MinPreferredTimes, MaxPreferredTimes, len(instants))
	}
	if slotMinutes <= 0 {
		slotMinutes = DefaultViewingSlotMinutes
	}
	loc, err := LoadZone(timezone)
	if err != nil {
		return nil, err
	}

	byDate := map[string]map[int64]struct{}{}
	normalized := make([]time.Time, 0, len(instants))
	for _, in := range instants {
		utc := in.UTC()
		normalized = append(normalized, utc)

		date := UTCToLocalDate(loc, utc)
		offered, ok := byDate[date]
		if !ok {
			day, err := GenerateSlotsForDate(date, timezone, rules, exceptions, slotMinutes)
			if err != nil {
				return nil, err
			}
			offered = make(map[int64]struct{}, len(day.Slots))
			for _, s := range day.Slots {
				offered[s.Start.UnixNano()] = struct{}{}
			}
			byDate[date] = offered
		}
		if _, ok := offered[utc.UnixNano()]; !ok {
			return nil, apperror.Unavailable("preferred time %s is not an available slot", utc.Format(time.RFC3339))
		}
	}
	return normalized, nil
}
