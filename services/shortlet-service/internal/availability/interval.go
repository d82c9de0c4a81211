package availability

import (
	"sort"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
)

// Bookable hours for any property, in local minutes of day (06:00–22:00).
const (
	DailyStart = 360
	DailyEnd   = 1320
)

// Window is a half-open [Start, End) interval in local minutes of day.
type Window struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// EnsureWithinDailyBounds is the single gate every window passes through before it reaches
// the algebra below.
func EnsureWithinDailyBounds(start, end int) (Window, error) {
	if start >= end {
		return Window{}, apperror.Validation("window start %d must be before end %d", start, end)
	}
	if start < DailyStart || end > DailyEnd {
		return Window{}, apperror.Validation("window %s-%s outside bookable hours %s-%s",
			FormatMinute(start), FormatMinute(end), FormatMinute(DailyStart), FormatMinute(DailyEnd))
	}
	return Window{Start: start, End: end}, nil
}

// Merge returns the windows sorted by start with overlapping and touching windows fused.
func Merge(ws []Window) []Window {
	if len(ws) == 0 {
		return nil
	}
	sorted := make([]Window, len(ws))
	copy(sorted, ws)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	out := []Window{sorted[0]}
	for _, w := range sorted[1:] {
		last := &out[len(out)-1]
		if w.Start <= last.End {
			if w.End > last.End {
				last.End = w.End
			}
			continue
		}
		out = append(out, w)
	}
	return out
}

// Subtract removes [start, end) from every window.
func Subtract(ws []Window, start, end int) []Window {
	var out []Window
	for _, w := range ws {
		switch {
		case end <= w.Start || start >= w.End:
			out = append(out, w)
		case start <= w.Start && end >= w.End:
			// fully covered
		case start <= w.Start:
			out = append(out, Window{Start: end, End: w.End})
		case end >= w.End:
			out = append(out, Window{Start: w.Start, End: start})
		default:
			out = append(out, Window{Start: w.Start, End: start}, Window{Start: end, End: w.End})
		}
	}
	return Merge(out)
}

// Add unions [start, end) into the windows.
func Add(ws []Window, start, end int) []Window {
	out := make([]Window, 0, len(ws)+1)
	out = append(out, ws...)
	out = append(out, Window{Start: start, End: end})
	return Merge(out)
}
