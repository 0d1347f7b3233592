package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/praxishealth/praxis/internal/appointmenttypes"
	"github.com/praxishealth/praxis/internal/organizations"
	"github.com/praxishealth/praxis/pkg/logging"
)

var ErrNoSchedule = errors.New("availability: no schedule configured")

// orgSource resolves organization settings (timezone, slot duration).
// *organizations.Service satisfies it, serving from the Redis cache.
type orgSource interface {
	Get(ctx context.Context, orgID string) (*organizations.Organization, error)
}

// typeSource resolves appointment types for slot durations.
type typeSource interface {
	Get(ctx context.Context, orgID, typeID string) (*appointmenttypes.AppointmentType, error)
}

// busySource lists booked intervals blocking candidate slots.
type busySource interface {
	BusyIntervals(ctx context.Context, orgID string, from, to time.Time) ([]Interval, error)
}

// Service resolves schedules and computes bookable slots.
type Service struct {
	windows   WindowStore
	orgs      orgSource
	types     typeSource
	busy      busySource
	logger    *logging.Logger
	now       func() time.Time
	lookahead int
}

// NewService wires the availability service.
func NewService(windows WindowStore, orgs orgSource, types typeSource, busy busySource, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		windows:   windows,
		orgs:      orgs,
		types:     types,
		busy:      busy,
		logger:    logger,
		now:       time.Now,
		lookahead: 60,
	}
}

// WithLookahead bounds how many days ahead slots may be queried.
func (s *Service) WithLookahead(days int) *Service {
	if days > 0 {
		s.lookahead = days
	}
	return s
}

// SetSchedule stores the weekly schedule given in org-local wall clock.
func (s *Service) SetSchedule(ctx context.Context, orgID string, local []LocalWindow) ([]LocalWindow, error) {
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(org.Timezone)
	if err != nil {
		return nil, ErrUnknownZone
	}

	stored, err := ToUTC(local, loc)
	if err != nil {
		return nil, err
	}
	if err := s.windows.ReplaceSchedule(ctx, orgID, stored); err != nil {
		return nil, err
	}
	s.logger.Info("schedule updated", "org_id", orgID, "days", len(stored))
	return FromUTC(stored, loc), nil
}

// GetSchedule returns the schedule in org-local wall clock.
func (s *Service) GetSchedule(ctx context.Context, orgID string) ([]LocalWindow, error) {
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(org.Timezone)
	if err != nil {
		return nil, ErrUnknownZone
	}
	stored, err := s.windows.GetWindows(ctx, orgID)
	if err != nil {
		return nil, err
	}
	return FromUTC(stored, loc), nil
}

// Slots computes bookable slots of the given appointment type for one
// org-local date (YYYY-MM-DD).
func (s *Service) Slots(ctx context.Context, orgID, date, typeID string) ([]Slot, error) {
	org, err := s.orgs.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	loc, err := time.LoadLocation(org.Timezone)
	if err != nil {
		return nil, ErrUnknownZone
	}

	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, fmt.Errorf("availability: invalid date %q", date)
	}
	if day.After(s.now().In(loc).AddDate(0, 0, s.lookahead)) {
		return []Slot{}, nil
	}

	apptType, err := s.types.Get(ctx, orgID, typeID)
	if err != nil {
		return nil, err
	}

	stored, err := s.windows.GetWindows(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, ErrNoSchedule
	}

	window, open := windowFor(FromUTC(stored, loc), day.Weekday())
	if !open {
		return []Slot{}, nil
	}

	// The busy lookup spans the whole local day plus a margin so
	// appointments straddling midnight still block slots.
	from := day.Add(-time.Hour).UTC()
	to := day.AddDate(0, 0, 1).Add(time.Hour).UTC()
	busy, err := s.busy.BusyIntervals(ctx, orgID, from, to)
	if err != nil {
		return nil, err
	}

	slots := ComputeSlots(window, day, loc, org.SlotDurationMinutes, apptType.DurationMinutes, busy, s.now())
	if slots == nil {
		slots = []Slot{}
	}
	return slots, nil
}
