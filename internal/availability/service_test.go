package availability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxishealth/praxis/internal/appointmenttypes"
	"github.com/praxishealth/praxis/internal/organizations"
	"github.com/praxishealth/praxis/pkg/logging"
)

type stubOrgs struct {
	org *organizations.Organization
}

func (s *stubOrgs) Get(ctx context.Context, orgID string) (*organizations.Organization, error) {
	if s.org == nil || s.org.ID != orgID {
		return nil, organizations.ErrOrgNotFound
	}
	return s.org, nil
}

type stubTypes struct {
	t *appointmenttypes.AppointmentType
}

func (s *stubTypes) Get(ctx context.Context, orgID, typeID string) (*appointmenttypes.AppointmentType, error) {
	if s.t == nil || s.t.ID != typeID {
		return nil, appointmenttypes.ErrTypeNotFound
	}
	return s.t, nil
}

type stubBusy struct {
	intervals []Interval
}

func (s *stubBusy) BusyIntervals(ctx context.Context, orgID string, from, to time.Time) ([]Interval, error) {
	return s.intervals, nil
}

func setupService(t *testing.T, tz string, busy []Interval) *Service {
	t.Helper()
	orgs := &stubOrgs{org: &organizations.Organization{
		ID: "org-1", Timezone: tz, SlotDurationMinutes: 30,
	}}
	types := &stubTypes{t: &appointmenttypes.AppointmentType{
		ID: "type-1", OrgID: "org-1", Name: "Consult", DurationMinutes: 30,
	}}
	svc := NewService(NewInMemoryWindowStore(), orgs, types, &stubBusy{intervals: busy}, logging.Default())
	svc.now = func() time.Time { return time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC) }
	return svc
}

func TestSetAndGetSchedule(t *testing.T) {
	svc := setupService(t, "Asia/Tokyo", nil)
	ctx := context.Background()

	in := []LocalWindow{
		{Weekday: 1, Open: "08:00", Close: "17:00"},
		{Weekday: 2, Open: "08:00", Close: "12:00"},
	}
	out, err := svc.SetSchedule(ctx, "org-1", in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	got, err := svc.GetSchedule(ctx, "org-1")
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestSlotsClosedDay(t *testing.T) {
	svc := setupService(t, "UTC", nil)
	ctx := context.Background()

	_, err := svc.SetSchedule(ctx, "org-1", []LocalWindow{{Weekday: 1, Open: "09:00", Close: "17:00"}})
	require.NoError(t, err)

	// 2026-09-08 is a Tuesday; only Monday is open.
	slots, err := svc.Slots(ctx, "org-1", "2026-09-08", "type-1")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlotsNoScheduleConfigured(t *testing.T) {
	svc := setupService(t, "UTC", nil)

	_, err := svc.Slots(context.Background(), "org-1", "2026-09-07", "type-1")
	assert.ErrorIs(t, err, ErrNoSchedule)
}

func TestSlotsBlockedByAppointments(t *testing.T) {
	busy := []Interval{{
		StartsAt: time.Date(2026, time.September, 7, 9, 0, 0, 0, time.UTC),
		EndsAt:   time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC),
	}}
	svc := setupService(t, "UTC", busy)
	ctx := context.Background()

	_, err := svc.SetSchedule(ctx, "org-1", []LocalWindow{{Weekday: 1, Open: "09:00", Close: "11:00"}})
	require.NoError(t, err)

	slots, err := svc.Slots(ctx, "org-1", "2026-09-07", "type-1")
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, time.Date(2026, time.September, 7, 10, 0, 0, 0, time.UTC), slots[0].StartsAt)
	assert.Equal(t, time.Date(2026, time.September, 7, 10, 30, 0, 0, time.UTC), slots[1].StartsAt)
}

func TestSlotsBeyondLookaheadAreEmpty(t *testing.T) {
	svc := setupService(t, "UTC", nil).WithLookahead(30)
	ctx := context.Background()

	_, err := svc.SetSchedule(ctx, "org-1", []LocalWindow{{Weekday: 1, Open: "09:00", Close: "17:00"}})
	require.NoError(t, err)

	// Monday, but past the 30-day booking horizon.
	slots, err := svc.Slots(ctx, "org-1", "2026-11-02", "type-1")
	require.NoError(t, err)
	assert.Empty(t, slots)
}

func TestSlotsInvalidInputs(t *testing.T) {
	svc := setupService(t, "UTC", nil)
	ctx := context.Background()

	_, err := svc.SetSchedule(ctx, "org-1", []LocalWindow{{Weekday: 1, Open: "09:00", Close: "17:00"}})
	require.NoError(t, err)

	_, err = svc.Slots(ctx, "org-1", "not-a-date", "type-1")
	assert.Error(t, err)

	_, err = svc.Slots(ctx, "org-1", "2026-09-07", "type-missing")
	assert.ErrorIs(t, err, appointmenttypes.ErrTypeNotFound)

	_, err = svc.Slots(ctx, "org-2", "2026-09-07", "type-1")
	assert.ErrorIs(t, err, organizations.ErrOrgNotFound)
}
