package availability

import (
	"testing"
	"time"
)

func TestLocalToUTC_AcrossSpringForward(t *testing.T) {
	loc, err := LoadZone("America/New_York")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	day, _ := ParseLocalDate("2026-03-08") // clocks jump 02:00 -> 03:00 local

	cases := []struct {
		minute int
		want   time.Time
	}{
		{360, time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)},  // 06:00 EDT
		{540, time.Date(2026, 3, 8, 13, 0, 0, 0, time.UTC)},  // 09:00 EDT
		{1260, time.Date(2026, 3, 9, 1, 0, 0, 0, time.UTC)},  // 21:00 EDT
	}
	for _, tc := range cases {
		got := LocalToUTC(loc, day, tc.minute)
		if !got.Equal(tc.want) {
			t.Fatalf("minute %d: expected %s, got %s", tc.minute, tc.want, got)
		}
		if local := got.In(loc); local.Hour()*60+local.Minute() != tc.minute {
			t.Fatalf("minute %d: wall clock reads %s", tc.minute, local.Format("15:04"))
		}
	}
}

func TestLocalToUTC_FallBack(t *testing.T) {
	loc, err := LoadZone("Europe/London")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}
	day, _ := ParseLocalDate("2026-10-25") // BST ends 02:00 -> 01:00
	got := LocalToUTC(loc, day, 600)
	if !got.Equal(time.Date(2026, 10, 25, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected 10:00 UTC, got %s", got)
	}
}

func TestUTCToLocalDate(t *testing.T) {
	loc, _ := LoadZone("Asia/Tokyo")
	instant := time.Date(2026, 3, 9, 20, 0, 0, 0, time.UTC)
	if got := UTCToLocalDate(loc, instant); got != "2026-03-10" {
		t.Fatalf("expected 2026-03-10, got %s", got)
	}
}

func TestFormatMinute(t *testing.T) {
	if FormatMinute(365) != "06:05" || FormatMinute(1320) != "22:00" {
		t.Fatalf("unexpected formatting: %s %s", FormatMinute(365), FormatMinute(1320))
	}
}
