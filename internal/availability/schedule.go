package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrInvalidClock = errors.New("availability: clock must be HH:MM")
	ErrEmptyWindow  = errors.New("availability: window must open before it closes")
	ErrBadWeekday   = errors.New("availability: weekday must be 0 (Sunday) through 6")
	ErrDuplicateDay = errors.New("availability: duplicate weekday in schedule")
	ErrUnknownZone  = errors.New("availability: unknown timezone")
)

// DayWindow is the stored form of one weekly opening: minutes from
// midnight UTC, anchored at the weekday of the opening instant.
// CloseMinute passes 1440 when the window crosses UTC midnight.
type DayWindow struct {
	Weekday     int `json:"weekday"`
	OpenMinute  int `json:"open_minute"`
	CloseMinute int `json:"close_minute"`
}

// LocalWindow is one weekly opening in the organization's wall clock.
type LocalWindow struct {
	Weekday int    `json:"weekday"`
	Open    string `json:"open"`
	Close   string `json:"close"`
}

// referenceSunday is a fixed Sunday used to anchor wall-clock to UTC
// conversion. Weekly schedules are offset-invariant relative to this
// week; actual dates re-resolve the zone offset at slot time.
var referenceSunday = time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC)

func parseClock(s string) (int, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, ErrInvalidClock
	}
	if h < 0 || h > 23 || m < 0 || m > 59 || len(s) != 5 || s[2] != ':' {
		return 0, ErrInvalidClock
	}
	return h*60 + m, nil
}

func formatClock(minutes int) string {
	minutes = ((minutes % 1440) + 1440) % 1440
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ToUTC converts a weekly schedule given in wall-clock time for loc to
// its stored UTC form. A window whose opening instant lands on a
// different UTC day is re-anchored to that weekday.
func ToUTC(windows []LocalWindow, loc *time.Location) ([]DayWindow, error) {
	seen := make(map[int]bool)
	out := make([]DayWindow, 0, len(windows))
	for _, w := range windows {
		if w.Weekday < 0 || w.Weekday > 6 {
			return nil, ErrBadWeekday
		}
		if seen[w.Weekday] {
			return nil, ErrDuplicateDay
		}
		seen[w.Weekday] = true

		openMin, err := parseClock(w.Open)
		if err != nil {
			return nil, err
		}
		closeMin, err := parseClock(w.Close)
		if err != nil {
			return nil, err
		}
		if openMin >= closeMin {
			return nil, ErrEmptyWindow
		}

		ref := referenceSunday.AddDate(0, 0, w.Weekday)
		open := time.Date(ref.Year(), ref.Month(), ref.Day(), openMin/60, openMin%60, 0, 0, loc).UTC()

		utcWeekday := int(open.Weekday())
		utcOpen := open.Hour()*60 + open.Minute()
		out = append(out, DayWindow{
			Weekday:     utcWeekday,
			OpenMinute:  utcOpen,
			CloseMinute: utcOpen + (closeMin - openMin),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].OpenMinute < out[j].OpenMinute
	})
	return out, nil
}

// FromUTC converts stored windows back to the organization's wall clock.
// The round trip through ToUTC is lossless for any IANA zone.
func FromUTC(windows []DayWindow, loc *time.Location) []LocalWindow {
	out := make([]LocalWindow, 0, len(windows))
	for _, w := range windows {
		ref := referenceSunday.AddDate(0, 0, w.Weekday)
		open := time.Date(ref.Year(), ref.Month(), ref.Day(), w.OpenMinute/60, w.OpenMinute%60, 0, 0, time.UTC).In(loc)
		duration := w.CloseMinute - w.OpenMinute

		openMin := open.Hour()*60 + open.Minute()
		out = append(out, LocalWindow{
			Weekday: int(open.Weekday()),
			Open:    formatClock(openMin),
			Close:   formatClock(openMin + duration),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].Open < out[j].Open
	})
	return out
}

// windowFor returns the local window for the given weekday, if any.
func windowFor(windows []LocalWindow, weekday time.Weekday) (LocalWindow, bool) {
	for _, w := range windows {
		if w.Weekday == int(weekday) {
			return w, true
		}
	}
	return LocalWindow{}, false
}
