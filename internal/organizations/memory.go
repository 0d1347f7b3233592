package organizations

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is an in-memory Store used in tests and local development.
type InMemoryStore struct {
	mu      sync.RWMutex
	orgs    map[string]*Organization
	bySlug  map[string]string
	members map[string]map[string]*Member // orgID -> userID -> member
	invites map[string]*Invitation

	// Users lets tests register display data returned by ListMembers.
	Users map[string]struct{ Name, Email string }
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orgs:    make(map[string]*Organization),
		bySlug:  make(map[string]string),
		members: make(map[string]map[string]*Member),
		invites: make(map[string]*Invitation),
		Users:   make(map[string]struct{ Name, Email string }),
	}
}

func (s *InMemoryStore) Create(ctx context.Context, req *CreateOrganizationRequest, ownerID string, defaultTimezone string, defaultSlotMinutes int) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySlug[req.Slug]; exists {
		return nil, ErrSlugTaken
	}
	tz := req.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	org := &Organization{
		ID:                  uuid.New().String(),
		Name:                req.Name,
		Slug:                req.Slug,
		Timezone:            tz,
		SlotDurationMinutes: defaultSlotMinutes,
		CreatedAt:           time.Now().UTC(),
	}
	s.orgs[org.ID] = org
	s.bySlug[org.Slug] = org.ID
	s.members[org.ID] = map[string]*Member{
		ownerID: {OrgID: org.ID, UserID: ownerID, Role: "owner", CreatedAt: org.CreatedAt},
	}
	return org, nil
}

func (s *InMemoryStore) Get(ctx context.Context, orgID string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return nil, ErrOrgNotFound
	}
	copied := *org
	return &copied, nil
}

func (s *InMemoryStore) UpdateSettings(ctx context.Context, orgID string, req *UpdateSettingsRequest) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[orgID]
	if !ok {
		return nil, ErrOrgNotFound
	}
	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.Timezone != nil {
		org.Timezone = *req.Timezone
	}
	if req.SlotDurationMinutes != nil {
		org.SlotDurationMinutes = *req.SlotDurationMinutes
	}
	if req.LetterheadAddress != nil {
		org.LetterheadAddress = *req.LetterheadAddress
	}
	if req.LetterheadPhone != nil {
		org.LetterheadPhone = *req.LetterheadPhone
	}
	copied := *org
	return &copied, nil
}

func (s *InMemoryStore) ListForUser(ctx context.Context, userID string) ([]*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var orgs []*Organization
	for orgID, members := range s.members {
		if _, ok := members[userID]; ok {
			copied := *s.orgs[orgID]
			orgs = append(orgs, &copied)
		}
	}
	return orgs, nil
}

func (s *InMemoryStore) RoleOf(ctx context.Context, orgID, userID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.members[orgID][userID]
	if !ok {
		return "", ErrNotMember
	}
	return m.Role, nil
}

func (s *InMemoryStore) ListMembers(ctx context.Context, orgID string) ([]*Member, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Member
	for _, m := range s.members[orgID] {
		copied := *m
		if u, ok := s.Users[m.UserID]; ok {
			copied.Name = u.Name
			copied.Email = u.Email
		}
		out = append(out, &copied)
	}
	return out, nil
}

func (s *InMemoryStore) UpdateMemberRole(ctx context.Context, orgID, userID, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[orgID][userID]
	if !ok {
		return ErrNotMember
	}
	if m.Role == "owner" && role != "owner" && s.ownerCount(orgID) == 1 {
		return ErrLastOwner
	}
	m.Role = role
	return nil
}

func (s *InMemoryStore) RemoveMember(ctx context.Context, orgID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.members[orgID][userID]
	if !ok {
		return ErrNotMember
	}
	if m.Role == "owner" && s.ownerCount(orgID) == 1 {
		return ErrLastOwner
	}
	delete(s.members[orgID], userID)
	return nil
}

func (s *InMemoryStore) ownerCount(orgID string) int {
	n := 0
	for _, m := range s.members[orgID] {
		if m.Role == "owner" {
			n++
		}
	}
	return n
}

func (s *InMemoryStore) CreateInvitation(ctx context.Context, orgID, email, role, inviterID string, ttl time.Duration) (*Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invites {
		if inv.OrgID == orgID && inv.Email == email && inv.Status == InviteStatusPending {
			return nil, ErrInvitePending
		}
	}
	inv := &Invitation{
		ID:        uuid.New().String(),
		OrgID:     orgID,
		Email:     email,
		Role:      role,
		Status:    InviteStatusPending,
		InviterID: inviterID,
		ExpiresAt: time.Now().Add(ttl).UTC(),
		CreatedAt: time.Now().UTC(),
	}
	s.invites[inv.ID] = inv
	copied := *inv
	return &copied, nil
}

func (s *InMemoryStore) GetInvitation(ctx context.Context, id string) (*Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invites[id]
	if !ok {
		return nil, ErrInviteNotFound
	}
	copied := *inv
	return &copied, nil
}

func (s *InMemoryStore) ListInvitations(ctx context.Context, orgID string) ([]*Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Invitation
	for _, inv := range s.invites {
		if inv.OrgID == orgID && inv.Status == InviteStatusPending {
			copied := *inv
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *InMemoryStore) AcceptInvitation(ctx context.Context, inv *Invitation, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.invites[inv.ID]
	if !ok || stored.Status != InviteStatusPending {
		return ErrInviteNotFound
	}
	if _, exists := s.members[inv.OrgID][userID]; exists {
		return ErrAlreadyMember
	}
	stored.Status = InviteStatusAccepted
	if s.members[inv.OrgID] == nil {
		s.members[inv.OrgID] = make(map[string]*Member)
	}
	s.members[inv.OrgID][userID] = &Member{
		OrgID:     inv.OrgID,
		UserID:    userID,
		Role:      inv.Role,
		CreatedAt: time.Now().UTC(),
	}
	return nil
}

func (s *InMemoryStore) CancelInvitation(ctx context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invites[id]
	if !ok || inv.OrgID != orgID || inv.Status != InviteStatusPending {
		return ErrInviteNotFound
	}
	inv.Status = InviteStatusCanceled
	return nil
}
