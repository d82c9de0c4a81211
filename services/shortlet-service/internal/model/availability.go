package model

// WeeklyRule is one recurring availability window in property-local time.
// DayOfWeek follows time.Weekday (0 = Sunday).
type WeeklyRule struct {
	DayOfWeek   int `json:"day_of_week"`
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

type ExceptionType string

const (
	ExceptionBlackout  ExceptionType = "blackout"
	ExceptionAddWindow ExceptionType = "add_window"
)

// AvailabilityException overrides the weekly rules for one local date. A blackout without
// bounds removes the whole date; with both bounds only that interval. A single bound is
// malformed. An add_window needs bounds.
type AvailabilityException struct {
	LocalDate   string        `json:"local_date"`
	Type        ExceptionType `json:"type"`
	StartMinute *int          `json:"start_minute,omitempty"`
	EndMinute   *int          `json:"end_minute,omitempty"`
}

func (e AvailabilityException) HasBounds() bool {
	return e.StartMinute != nil && e.EndMinute != nil
}

// PropertySchedule is everything slot generation needs for one property.
type PropertySchedule struct {
	PropertyID string
	Timezone   string
	Rules      []WeeklyRule
	Exceptions []AvailabilityException
}
