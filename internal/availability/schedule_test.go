package availability

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func mustZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("load zone %s: %v", name, err)
	}
	return loc
}

func TestToUTCShiftsWeekdayAcrossMidnight(t *testing.T) {
	tokyo := mustZone(t, "Asia/Tokyo")

	// Monday 08:00 in Tokyo (UTC+9) is Sunday 23:00 UTC.
	stored, err := ToUTC([]LocalWindow{{Weekday: 1, Open: "08:00", Close: "17:00"}}, tokyo)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("expected 1 window, got %d", len(stored))
	}
	got := stored[0]
	if got.Weekday != 0 {
		t.Errorf("expected UTC weekday 0 (Sunday), got %d", got.Weekday)
	}
	if got.OpenMinute != 23*60 {
		t.Errorf("expected open at minute %d, got %d", 23*60, got.OpenMinute)
	}
	if got.CloseMinute != 23*60+9*60 {
		t.Errorf("expected close at minute %d (past midnight), got %d", 23*60+9*60, got.CloseMinute)
	}
}

func TestScheduleRoundTrip(t *testing.T) {
	zones := []string{
		"UTC",
		"America/New_York",
		"America/Chicago",
		"Europe/Berlin",
		"Asia/Tokyo",
		"Asia/Kathmandu", // +05:45, exercises non-hour offsets
		"Pacific/Auckland",
	}
	schedule := []LocalWindow{
		{Weekday: 0, Open: "10:00", Close: "14:00"},
		{Weekday: 1, Open: "08:00", Close: "17:00"},
		{Weekday: 3, Open: "09:30", Close: "18:15"},
		{Weekday: 5, Open: "00:15", Close: "23:45"},
		{Weekday: 6, Open: "22:00", Close: "23:00"},
	}

	for _, zone := range zones {
		t.Run(zone, func(t *testing.T) {
			loc := mustZone(t, zone)
			stored, err := ToUTC(schedule, loc)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			back := FromUTC(stored, loc)
			if !reflect.DeepEqual(schedule, back) {
				t.Errorf("round trip mismatch:\n in: %+v\nout: %+v", schedule, back)
			}
		})
	}
}

func TestToUTCRejectsBadInput(t *testing.T) {
	utc := time.UTC
	cases := []struct {
		name    string
		windows []LocalWindow
		want    error
	}{
		{"zero length", []LocalWindow{{Weekday: 1, Open: "09:00", Close: "09:00"}}, ErrEmptyWindow},
		{"inverted", []LocalWindow{{Weekday: 1, Open: "17:00", Close: "09:00"}}, ErrEmptyWindow},
		{"bad clock", []LocalWindow{{Weekday: 1, Open: "9am", Close: "17:00"}}, ErrInvalidClock},
		{"hour out of range", []LocalWindow{{Weekday: 1, Open: "25:00", Close: "26:00"}}, ErrInvalidClock},
		{"bad weekday", []LocalWindow{{Weekday: 7, Open: "09:00", Close: "17:00"}}, ErrBadWeekday},
		{"duplicate day", []LocalWindow{
			{Weekday: 2, Open: "09:00", Close: "12:00"},
			{Weekday: 2, Open: "13:00", Close: "17:00"},
		}, ErrDuplicateDay},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ToUTC(tc.windows, utc)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestParseClock(t *testing.T) {
	if _, err := parseClock("07:5"); err == nil {
		t.Error("expected error for short clock string")
	}
	min, err := parseClock("23:59")
	if err != nil || min != 1439 {
		t.Errorf("parseClock(23:59) = %d, %v", min, err)
	}
	if formatClock(1439) != "23:59" {
		t.Errorf("formatClock(1439) = %s", formatClock(1439))
	}
	if formatClock(1500) != "01:00" {
		t.Errorf("formatClock(1500) = %s", formatClock(1500))
	}
}
