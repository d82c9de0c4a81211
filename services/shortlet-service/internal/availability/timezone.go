package availability

import (
	"fmt"
	"strings"
	"time"
	// Zone validity must not depend on the host's zoneinfo.
	_ "time/tzdata"

	"github.com/md-rashed-zaman/shortlet/services/shortlet-service/internal/apperror"
)

const dateLayout = "2006-01-02"

// LoadZone resolves an IANA zone name. Empty and unknown names are caller errors; there is no
// UTC fallback.
func LoadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.Validation("timezone is required")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, apperror.Wrap(apperror.KindValidation, err, "invalid timezone %q", name)
	}
	return loc, nil
}

// ParseLocalDate parses a YYYY-MM-DD calendar date. The result is midnight UTC and only its
// year/month/day are meaningful.
func ParseLocalDate(raw string) (time.Time, error) {
	d, err := time.Parse(dateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, apperror.Wrap(apperror.KindValidation, err, "invalid date %q (want YYYY-MM-DD)", raw)
	}
	return d, nil
}

// LocalToUTC returns the instant at which the wall clock in loc reads date + minute.
// The zone offset depends on the instant, so it is read at a naive UTC guess of the wall
// clock and then subtracted. When a DST change falls between the guess and the corrected
// instant, the offset at the corrected instant wins.
func LocalToUTC(loc *time.Location, date time.Time, minute int) time.Time {
	guess := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC).
		Add(time.Duration(minute) * time.Minute)
	_, offset := guess.In(loc).Zone()
	instant := guess.Add(-time.Duration(offset) * time.Second)
	if _, actual := instant.In(loc).Zone(); actual != offset {
		instant = guess.Add(-time.Duration(actual) * time.Second)
	}
	return instant
}

// UTCToLocalDate returns the YYYY-MM-DD calendar date of instant in loc.
func UTCToLocalDate(loc *time.Location, instant time.Time) string {
	return instant.In(loc).Format(dateLayout)
}

// FormatMinute renders a minute of day as HH:MM.
func FormatMinute(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
