package availability

import (
	"testing"
	"time"
)

func utcDate(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeSlotsFiltersOverlaps(t *testing.T) {
	window := LocalWindow{Weekday: 1, Open: "09:00", Close: "12:00"}
	date := utcDate(2026, time.September, 7) // a Monday
	busy := []Interval{{
		StartsAt: time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, time.September, 7, 10, 30, 0, 0, time.UTC),
	}}
	past := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)

	slots := ComputeSlots(window, date, time.UTC, 30, 60, busy, past)

	want := []string{"09:00", "10:30", "11:00"}
	if len(slots) != len(want) {
		t.Fatalf("expected %d slots, got %d: %+v", len(want), len(slots), slots)
	}
	for i, w := range want {
		if got := slots[i].StartsAt.Format("15:04"); got != w {
			t.Errorf("slot %d starts at %s, want %s", i, got, w)
		}
	}
	// No slot extends past close.
	for _, s := range slots {
		if s.EndsAt.After(time.Date(2026, time.September, 7, 12, 0, 0, 0, time.UTC)) {
			t.Errorf("slot %v extends past close", s)
		}
	}
}

func TestComputeSlotsExcludesPast(t *testing.T) {
	window := LocalWindow{Weekday: 1, Open: "09:00", Close: "12:00"}
	date := utcDate(2026, time.September, 7)
	now := time.Date(2026, time.September, 7, 10, 45, 0, 0, time.UTC)

	slots := ComputeSlots(window, date, time.UTC, 30, 60, nil, now)

	if len(slots) != 1 {
		t.Fatalf("expected 1 slot, got %d: %+v", len(slots), slots)
	}
	if got := slots[0].StartsAt.Format("15:04"); got != "11:00" {
		t.Errorf("remaining slot starts at %s, want 11:00", got)
	}
}

func TestComputeSlotsUsesOffsetInForceOnDSTDate(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("load zone: %v", err)
	}

	// Schedule captured in January (EST, UTC-5): Sunday 09:00 local.
	stored, err := ToUTC([]LocalWindow{{Weekday: 0, Open: "09:00", Close: "11:00"}}, ny)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	local := FromUTC(stored, ny)

	// 2026-03-08 is the spring-forward date: EDT, UTC-4.
	date := time.Date(2026, time.March, 8, 0, 0, 0, 0, ny)
	past := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	slots := ComputeSlots(local[0], date, ny, 60, 60, nil, past)

	if len(slots) != 2 {
		t.Fatalf("expected 2 slots, got %d: %+v", len(slots), slots)
	}
	wantFirst := time.Date(2026, time.March, 8, 13, 0, 0, 0, time.UTC) // 09:00 EDT
	if !slots[0].StartsAt.Equal(wantFirst) {
		t.Errorf("first slot starts at %v, want %v", slots[0].StartsAt, wantFirst)
	}
}

func TestComputeSlotsDurationLongerThanWindow(t *testing.T) {
	window := LocalWindow{Weekday: 1, Open: "09:00", Close: "09:30"}
	date := utcDate(2026, time.September, 7)
	past := utcDate(2026, time.January, 1)

	slots := ComputeSlots(window, date, time.UTC, 30, 60, nil, past)
	if len(slots) != 0 {
		t.Fatalf("expected no slots, got %d", len(slots))
	}
}
