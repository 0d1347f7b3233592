package appointmenttypes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is an in-memory Store used in tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	types map[string]*AppointmentType

	// FutureAppointments marks type IDs that still have upcoming
	// appointments, so tests can exercise the delete conflict.
	FutureAppointments map[string]bool
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		types:              make(map[string]*AppointmentType),
		FutureAppointments: make(map[string]bool),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, orgID string, req *CreateTypeRequest) (*AppointmentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &AppointmentType{
		ID:              uuid.New().String(),
		OrgID:           orgID,
		Name:            req.Name,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		RequiresPayment: req.RequiresPayment,
		Color:           req.Color,
		CreatedAt:       time.Now().UTC(),
	}
	s.types[t.ID] = t
	copied := *t
	return &copied, nil
}

func (s *InMemoryStore) Get(ctx context.Context, orgID, typeID string) (*AppointmentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.types[typeID]
	if !ok || t.OrgID != orgID {
		return nil, ErrTypeNotFound
	}
	copied := *t
	return &copied, nil
}

func (s *InMemoryStore) Update(ctx context.Context, orgID, typeID string, req *UpdateTypeRequest) (*AppointmentType, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.types[typeID]
	if !ok || t.OrgID != orgID {
		return nil, ErrTypeNotFound
	}
	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.DurationMinutes != nil {
		t.DurationMinutes = *req.DurationMinutes
	}
	if req.PriceCents != nil {
		t.PriceCents = *req.PriceCents
	}
	if req.RequiresPayment != nil {
		t.RequiresPayment = *req.RequiresPayment
	}
	if req.Color != nil {
		t.Color = *req.Color
	}
	copied := *t
	return &copied, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, orgID, typeID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.types[typeID]
	if !ok || t.OrgID != orgID {
		return ErrTypeNotFound
	}
	if s.FutureAppointments[typeID] {
		return ErrTypeInUse
	}
	delete(s.types, typeID)
	return nil
}

func (s *InMemoryStore) List(ctx context.Context, orgID string) ([]*AppointmentType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*AppointmentType
	for _, t := range s.types {
		if t.OrgID == orgID {
			copied := *t
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
