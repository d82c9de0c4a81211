// Package overlap decides which properties are unavailable for a candidate stay.
//
// It is a pre-check only. Two concurrent writers can both pass it, so the booking table must
// also carry an exclusion constraint over (property_id, daterange) for active statuses, and the
// overlap rows must be read in the same transaction as the insert.
package overlap

import (
	"time"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/model"
)

const dateLayout = "2006-01-02"

// DateRange is a half-open range of nights [Start, End). Both ends are UTC midnights.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// ParseDateRange validates a check-in/check-out pair of YYYY-MM-DD dates.
func ParseDateRange(checkIn, checkOut string) (DateRange, error) {
	start, err := time.Parse(dateLayout, checkIn)
	if err != nil {
		return DateRange{}, apperror.Wrap(apperror.KindValidation, err, "invalid check_in %q", checkIn)
	}
	end, err := time.Parse(dateLayout, checkOut)
	if err != nil {
		return DateRange{}, apperror.Wrap(apperror.KindValidation, err, "invalid check_out %q", checkOut)
	}
	return NewDateRange(start, end)
}

// NewDateRange truncates both ends to their calendar date and requires start < end.
func NewDateRange(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: civil(start), End: civil(end)}
	if !r.Start.Before(r.End) {
		return DateRange{}, apperror.Validation("check_in %s must be before check_out %s",
			r.Start.Format(dateLayout), r.End.Format(dateLayout))
	}
	return r, nil
}

// Nights is the number of nights in the stay; check-out day is not one of them.
func (r DateRange) Nights() int {
	return int(r.End.Sub(r.Start).Hours() / 24)
}

// Overlaps is the half-open test: touching ranges do not overlap.
func (r DateRange) Overlaps(other DateRange) bool {
	return other.Start.Before(r.End) && other.End.After(r.Start)
}

// String renders the range as check_in/check_out.
func (r DateRange) String() string {
	return r.Start.Format(dateLayout) + "/" + r.End.Format(dateLayout)
}

// PropertyRange is an existing booking or block on one property.
type PropertyRange struct {
	PropertyID string
	Range      DateRange
}

// BlockingStatuses are the booking statuses that hold dates by default.
var BlockingStatuses = []model.BookingStatus{
	model.BookingStatusPendingPayment,
	model.BookingStatusPending,
	model.BookingStatusConfirmed,
}

// UnavailablePropertyIDs returns every property with a booked or blocked range overlapping
// candidate.
func UnavailablePropertyIDs(candidate DateRange, booked, blocked []PropertyRange) map[string]struct{} {
	out := map[string]struct{}{}
	for _, src := range [][]PropertyRange{booked, blocked} {
		for _, pr := range src {
			if candidate.Overlaps(pr.Range) {
				out[pr.PropertyID] = struct{}{}
			}
		}
	}
	return out
}

// EnsureAvailable returns an Unavailable error when propertyID is taken for candidate.
func EnsureAvailable(propertyID string, candidate DateRange, booked, blocked []PropertyRange) error {
	if _, taken := UnavailablePropertyIDs(candidate, booked, blocked)[propertyID]; taken {
		return apperror.Unavailable("property %s is not available for %s", propertyID, candidate)
	}
	return nil
}

// FromBookings keeps the bookings whose status is in statuses, or that hold their dates when
// statuses is nil.
func FromBookings(bookings []model.ShortletBooking, statuses []model.BookingStatus) []PropertyRange {
	out := make([]PropertyRange, 0, len(bookings))
	for _, b := range bookings {
		if statuses == nil && !b.Status.Blocking() {
			continue
		}
		if statuses != nil && !containsStatus(statuses, b.Status) {
			continue
		}
		out = append(out, PropertyRange{PropertyID: b.PropertyID, Range: DateRange{Start: civil(b.CheckIn), End: civil(b.CheckOut)}})
	}
	return out
}

// FromBlocks turns host blocks into ranges. Every block holds its dates.
func FromBlocks(blocks []model.ShortletBlock) []PropertyRange {
	out := make([]PropertyRange, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, PropertyRange{PropertyID: b.PropertyID, Range: DateRange{Start: civil(b.DateFrom), End: civil(b.DateTo)}})
	}
	return out
}

func containsStatus(statuses []model.BookingStatus, s model.BookingStatus) bool {
	for _, c := range statuses {
		if c == s {
			return true
		}
	}
	return false
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
