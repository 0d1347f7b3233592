package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is a map-backed Store for tests.
type InMemoryStore struct {
	mu    sync.RWMutex
	plans map[string]*Plan
	subs  map[string]*Subscription // keyed by org id
	keys  map[string]*OrgBillingKeys
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		plans: make(map[string]*Plan),
		subs:  make(map[string]*Subscription),
		keys:  make(map[string]*OrgBillingKeys),
	}
}

// AddPlan seeds a plan and returns its id.
func (s *InMemoryStore) AddPlan(p *Plan) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	cp := *p
	s.plans[p.ID] = &cp
	return p.ID
}

func (s *InMemoryStore) CreatePlan(ctx context.Context, req *CreatePlanRequest) (*Plan, error) {
	p := &Plan{
		Name:          req.Name,
		PriceCents:    req.PriceCents,
		Interval:      req.Interval,
		StripePriceID: req.StripePriceID,
		MaxMembers:    req.MaxMembers,
		MaxPatients:   req.MaxPatients,
	}
	s.AddPlan(p)
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) ListPlans(ctx context.Context) ([]*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Plan
	for _, p := range s.plans {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PriceCents < out[j].PriceCents })
	return out, nil
}

func (s *InMemoryStore) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[planID]
	if !ok {
		return nil, ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryStore) GetSubscription(ctx context.Context, orgID string) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subs[orgID]
	if !ok {
		return nil, ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *InMemoryStore) UpsertSubscription(ctx context.Context, sub *Subscription) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	stored := *sub
	if existing, ok := s.subs[sub.OrgID]; ok {
		stored.ID = existing.ID
		stored.CreatedAt = existing.CreatedAt
	} else {
		if stored.ID == "" {
			stored.ID = uuid.New().String()
		}
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.subs[sub.OrgID] = &stored
	cp := stored
	return &cp, nil
}

func (s *InMemoryStore) SyncStatus(ctx context.Context, stripeSubscriptionID, status string, periodEnd *time.Time) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.StripeSubscriptionID != stripeSubscriptionID {
			continue
		}
		sub.Status = status
		if periodEnd != nil {
			sub.PeriodEnd = periodEnd
		}
		sub.UpdatedAt = time.Now().UTC()
		cp := *sub
		return &cp, nil
	}
	return nil, ErrSubscriptionNotFound
}

func (s *InMemoryStore) GetKeys(ctx context.Context, orgID string) (*OrgBillingKeys, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys, ok := s.keys[orgID]
	if !ok {
		return nil, ErrKeysNotConfigured
	}
	cp := *keys
	return &cp, nil
}

func (s *InMemoryStore) SetKeys(ctx context.Context, orgID string, req *SetKeysRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[orgID] = &OrgBillingKeys{
		OrgID:           orgID,
		StripeSecretKey: req.StripeSecretKey,
		WebhookSecret:   req.WebhookSecret,
		UpdatedAt:       time.Now().UTC(),
	}
	return nil
}
