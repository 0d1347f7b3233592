package appointments

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/praxishealth/praxis/internal/availability"
)

// InMemoryStore is an in-memory Store used in tests and local
// development. It applies the same overlap rule as the Postgres store.
type InMemoryStore struct {
	mu    sync.RWMutex
	appts map[string]*Appointment
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{appts: make(map[string]*Appointment)}
}

func (s *InMemoryStore) Insert(ctx context.Context, appt *Appointment) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, other := range s.appts {
		if other.OrgID == appt.OrgID && other.Blocks() &&
			appt.StartsAt.Before(other.EndsAt) && appt.EndsAt.After(other.StartsAt) {
			return nil, ErrSlotConflict
		}
	}
	now := time.Now().UTC()
	booked := *appt
	booked.ID = uuid.New().String()
	booked.CreatedAt = now
	booked.UpdatedAt = now
	s.appts[booked.ID] = &booked
	copied := booked
	return &copied, nil
}

func (s *InMemoryStore) Get(ctx context.Context, orgID, apptID string) (*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.appts[apptID]
	if !ok || a.OrgID != orgID {
		return nil, ErrAppointmentNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *InMemoryStore) List(ctx context.Context, orgID string, params ListParams) ([]*Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Appointment
	for _, a := range s.appts {
		if a.OrgID != orgID {
			continue
		}
		if a.StartsAt.Before(params.From) || !a.StartsAt.Before(params.To) {
			continue
		}
		if params.PatientID != "" && a.PatientID != params.PatientID {
			continue
		}
		copied := *a
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

func (s *InMemoryStore) UpdateStatus(ctx context.Context, orgID, apptID, status string) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[apptID]
	if !ok || a.OrgID != orgID {
		return nil, ErrAppointmentNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now().UTC()
	copied := *a
	return &copied, nil
}

func (s *InMemoryStore) Move(ctx context.Context, orgID, apptID string, startsAt, endsAt time.Time) (*Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[apptID]
	if !ok || a.OrgID != orgID {
		return nil, ErrAppointmentNotFound
	}
	for id, other := range s.appts {
		if id == apptID || other.OrgID != orgID || !other.Blocks() {
			continue
		}
		if startsAt.Before(other.EndsAt) && endsAt.After(other.StartsAt) {
			return nil, ErrSlotConflict
		}
	}
	a.StartsAt = startsAt
	a.EndsAt = endsAt
	a.UpdatedAt = time.Now().UTC()
	copied := *a
	return &copied, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, orgID, apptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[apptID]
	if !ok || a.OrgID != orgID {
		return ErrAppointmentNotFound
	}
	delete(s.appts, apptID)
	return nil
}

func (s *InMemoryStore) BusyIntervals(ctx context.Context, orgID string, from, to time.Time) ([]availability.Interval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []availability.Interval
	for _, a := range s.appts {
		if a.OrgID != orgID || !a.Blocks() {
			continue
		}
		if a.StartsAt.Before(to) && a.EndsAt.After(from) {
			out = append(out, availability.Interval{StartsAt: a.StartsAt, EndsAt: a.EndsAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}
