package patients

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is an in-memory Store used in tests and local development.
type InMemoryStore struct {
	mu       sync.RWMutex
	patients map[string]*Patient
	orgLinks map[string]map[string]bool // patientID -> orgID -> linked
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		patients: make(map[string]*Patient),
		orgLinks: make(map[string]map[string]bool),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, orgID string, req *CreatePatientRequest) (*Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	p := &Patient{
		ID:        uuid.New().String(),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		BirthDate: req.BirthDate,
		Sex:       req.Sex,
		Address:   req.Address,
		Allergies: req.Allergies,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.patients[p.ID] = p
	s.orgLinks[p.ID] = map[string]bool{orgID: true}
	copied := *p
	return &copied, nil
}

func (s *InMemoryStore) Get(ctx context.Context, orgID, patientID string) (*Patient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.patients[patientID]
	if !ok || !s.orgLinks[patientID][orgID] {
		return nil, ErrPatientNotFound
	}
	copied := *p
	return &copied, nil
}

func (s *InMemoryStore) Update(ctx context.Context, orgID, patientID string, req *UpdatePatientRequest) (*Patient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.patients[patientID]
	if !ok || !s.orgLinks[patientID][orgID] {
		return nil, ErrPatientNotFound
	}
	if req.FirstName != nil {
		p.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		p.LastName = *req.LastName
	}
	if req.Email != nil {
		p.Email = *req.Email
	}
	if req.Phone != nil {
		p.Phone = *req.Phone
	}
	if req.BirthDate != nil {
		p.BirthDate = req.BirthDate
	}
	if req.Sex != nil {
		p.Sex = *req.Sex
	}
	if req.Address != nil {
		p.Address = *req.Address
	}
	if req.Allergies != nil {
		p.Allergies = *req.Allergies
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}
	p.UpdatedAt = time.Now().UTC()
	copied := *p
	return &copied, nil
}

func (s *InMemoryStore) Delete(ctx context.Context, orgID, patientID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.patients[patientID]; !ok || !s.orgLinks[patientID][orgID] {
		return ErrPatientNotFound
	}
	delete(s.patients, patientID)
	delete(s.orgLinks, patientID)
	return nil
}

func (s *InMemoryStore) List(ctx context.Context, orgID string, params ListParams) ([]*Patient, error) {
	params.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []*Patient
	for id, p := range s.patients {
		if !s.orgLinks[id][orgID] {
			continue
		}
		if params.Search != "" {
			needle := strings.ToLower(params.Search)
			if !strings.Contains(strings.ToLower(p.FirstName), needle) &&
				!strings.Contains(strings.ToLower(p.LastName), needle) {
				continue
			}
		}
		copied := *p
		all = append(all, &copied)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if params.Offset >= len(all) {
		return nil, nil
	}
	all = all[params.Offset:]
	if len(all) > params.Limit {
		all = all[:params.Limit]
	}
	return all, nil
}
