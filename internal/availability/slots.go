package availability

import (
	"time"
)

// Slot is one bookable interval, returned in UTC.
type Slot struct {
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

// Interval is an existing booking that blocks candidate slots.
type Interval struct {
	StartsAt time.Time
	EndsAt   time.Time
}

// Overlaps reports whether [start, end) intersects the interval.
func (iv Interval) Overlaps(start, end time.Time) bool {
	return start.Before(iv.EndsAt) && end.After(iv.StartsAt)
}

// ComputeSlots generates bookable slots for one local date. The window
// is resolved against the actual date in loc, so zone offsets on DST
// transition days are the ones in force that day. Candidates step from
// open by stepMinutes, last for durationMinutes, never extend past
// close, skip anything overlapping a busy interval, and skip starts
// before now.
func ComputeSlots(window LocalWindow, date time.Time, loc *time.Location, stepMinutes, durationMinutes int, busy []Interval, now time.Time) []Slot {
	if stepMinutes <= 0 || durationMinutes <= 0 {
		return nil
	}
	openMin, err := parseClock(window.Open)
	if err != nil {
		return nil
	}
	closeMin, err := parseClock(window.Close)
	if err != nil {
		return nil
	}

	y, m, d := date.Date()
	openAt := time.Date(y, m, d, openMin/60, openMin%60, 0, 0, loc)
	closeAt := time.Date(y, m, d, closeMin/60, closeMin%60, 0, 0, loc)

	step := time.Duration(stepMinutes) * time.Minute
	dur := time.Duration(durationMinutes) * time.Minute

	var slots []Slot
	for start := openAt; !start.Add(dur).After(closeAt); start = start.Add(step) {
		end := start.Add(dur)
		if start.Before(now) {
			continue
		}
		blocked := false
		for _, iv := range busy {
			if iv.Overlaps(start, end) {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		slots = append(slots, Slot{StartsAt: start.UTC(), EndsAt: end.UTC()})
	}
	return slots
}
