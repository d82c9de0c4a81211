package availability

import (
	"time"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
)

// Slot is one bookable start time.
type Slot struct {
	Start       time.Time `json:"start"`        // UTC instant
	LocalMinute int       `json:"local_minute"` // minutes after local midnight
	Label       string    `json:"label"`        // local HH:MM
}

// Day is the result of slot generation for one local date.
type Day struct {
	Date     string   `json:"date"`
	Timezone string   `json:"timezone"`
	Windows  []Window `json:"windows"`
	Slots    []Slot   `json:"slots"`
}

// GenerateSlotsForDate turns the weekly rules and the date's exceptions into discrete slots of
// slotMinutes. Rules for other weekdays and exceptions for other dates are ignored, so callers
// may pass a property's full schedule.
func GenerateSlotsForDate(date, timezone string, rules []model.WeeklyRule, exceptions []model.AvailabilityException, slotMinutes int) (Day, error) {
	if slotMinutes <= 0 || slotMinutes > 24*60 {
		return Day{}, apperror.Validation("slot length %d minutes out of range", slotMinutes)
	}
	loc, err := LoadZone(timezone)
	if err != nil {
		return Day{}, err
	}
	day, err := ParseLocalDate(date)
	if err != nil {
		return Day{}, err
	}

	windows, err := windowsForDate(day, rules, exceptions)
	if err != nil {
		return Day{}, err
	}

	out := Day{Date: day.Format(dateLayout), Timezone: loc.String(), Windows: windows}
	for _, w := range windows {
		for m := w.Start; m < w.End; m += slotMinutes {
			out.Slots = append(out.Slots, Slot{
				Start:       LocalToUTC(loc, day, m),
				LocalMinute: m,
				Label:       FormatMinute(m),
			})
		}
	}
	return out, nil
}

// windowsForDate applies the weekday's rules (or the full default day) and then every exception
// for the date in the order given.
func windowsForDate(day time.Time, rules []model.WeeklyRule, exceptions []model.AvailabilityException) ([]Window, error) {
	weekday := int(day.Weekday())
	var windows []Window
	matched := false
	for _, r := range rules {
		if r.DayOfWeek != weekday {
			continue
		}
		w, err := EnsureWithinDailyBounds(r.StartMinute, r.EndMinute)
		if err != nil {
			return nil, err
		}
		windows = append(windows, w)
		matched = true
	}
	if !matched {
		windows = []Window{{Start: DailyStart, End: DailyEnd}}
	}

	date := day.Format(dateLayout)
	for _, ex := range exceptions {
		if ex.LocalDate != date {
			continue
		}
		switch ex.Type {
		case model.ExceptionBlackout:
			if ex.StartMinute == nil && ex.EndMinute == nil {
				windows = nil
				continue
			}
			if !ex.HasBounds() {
				return nil, apperror.Validation("blackout exception on %s needs both start and end or neither", date)
			}
			w, err := EnsureWithinDailyBounds(*ex.StartMinute, *ex.EndMinute)
			if err != nil {
				return nil, err
			}
			windows = Subtract(windows, w.Start, w.End)
		case model.ExceptionAddWindow:
			if !ex.HasBounds() {
				return nil, apperror.Validation("add_window exception on %s needs start and end", date)
			}
			w, err := EnsureWithinDailyBounds(*ex.StartMinute, *ex.EndMinute)
			if err != nil {
				return nil, err
			}
			windows = Add(windows, w.Start, w.End)
		default:
			return nil, apperror.Validation("unknown exception type %q", ex.Type)
		}
	}
	return Merge(windows), nil
}
