package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/praxishealth/praxis/internal/events"
)

type recordingOutbox struct {
	mu      sync.Mutex
	entries []struct {
		orgID     string
		eventType string
		payload   any
	}
}

func (o *recordingOutbox) Insert(ctx context.Context, orgID string, eventType string, payload any) (uuid.UUID, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.entries = append(o.entries, struct {
		orgID     string
		eventType string
		payload   any
	}{orgID, eventType, payload})
	return uuid.New(), nil
}

type stubCheckout struct {
	lastParams CheckoutParams
	err        error
}

func (s *stubCheckout) CreateSubscriptionCheckout(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	s.lastParams = params
	if s.err != nil {
		return nil, s.err
	}
	return &CheckoutSession{ProviderID: "cs_stub", URL: "https://checkout.stripe.com/pay/cs_stub"}, nil
}

func setupBillingService(t *testing.T) (*Service, *InMemoryStore, *stubCheckout, *recordingOutbox, string, string) {
	t.Helper()
	store := NewInMemoryStore()
	checkout := &stubCheckout{}
	outbox := &recordingOutbox{}
	svc := NewService(store, checkout, outbox, nil)
	svc.now = func() time.Time { return time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC) }

	orgID := uuid.New().String()
	planID := store.AddPlan(&Plan{Name: "Practice", PriceCents: 9900, Interval: "month", StripePriceID: "price_practice"})
	return svc, store, checkout, outbox, orgID, planID
}

func TestServiceCheckoutUsesOrgKeys(t *testing.T) {
	svc, store, checkout, _, orgID, planID := setupBillingService(t)
	ctx := context.Background()

	require.NoError(t, store.SetKeys(ctx, orgID, &SetKeysRequest{StripeSecretKey: "sk_live_org", WebhookSecret: "whsec_org"}))

	session, err := svc.Checkout(ctx, orgID, planID, "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_stub", session.URL)

	assert.Equal(t, "sk_live_org", checkout.lastParams.SecretKey)
	assert.Equal(t, orgID, checkout.lastParams.OrgID)
	assert.Equal(t, planID, checkout.lastParams.PlanID)
	assert.Equal(t, "price_practice", checkout.lastParams.PriceID)
	assert.Equal(t, "owner@example.com", checkout.lastParams.CustomerEmail)
}

func TestServiceCheckoutRequiresPlanAndKeys(t *testing.T) {
	svc, store, _, _, orgID, planID := setupBillingService(t)
	ctx := context.Background()

	_, err := svc.Checkout(ctx, orgID, uuid.New().String(), "")
	assert.ErrorIs(t, err, ErrPlanNotFound)

	_, err = svc.Checkout(ctx, orgID, planID, "")
	assert.ErrorIs(t, err, ErrKeysNotConfigured)

	require.NoError(t, store.SetKeys(ctx, orgID, &SetKeysRequest{StripeSecretKey: "sk_live_org"}))
	_, err = svc.Checkout(ctx, orgID, planID, "")
	assert.NoError(t, err)
}

func TestServiceConnectKeysValidates(t *testing.T) {
	svc, store, _, _, orgID, _ := setupBillingService(t)
	ctx := context.Background()

	err := svc.ConnectKeys(ctx, orgID, &SetKeysRequest{StripeSecretKey: "   "})
	assert.Error(t, err)

	require.NoError(t, svc.ConnectKeys(ctx, orgID, &SetKeysRequest{StripeSecretKey: " sk_live_x ", WebhookSecret: "whsec_x"}))
	keys, err := store.GetKeys(ctx, orgID)
	require.NoError(t, err)
	assert.Equal(t, "sk_live_x", keys.StripeSecretKey)
	assert.Equal(t, "whsec_x", keys.WebhookSecret)
}

func TestServiceActivateEmitsEvent(t *testing.T) {
	svc, _, _, outbox, orgID, planID := setupBillingService(t)
	ctx := context.Background()

	sub, err := svc.Activate(ctx, orgID, planID, "cus_1", "sub_1")
	require.NoError(t, err)
	assert.Equal(t, StatusActive, sub.Status)

	require.Len(t, outbox.entries, 1)
	assert.Equal(t, events.TypeSubscriptionChanged, outbox.entries[0].eventType)
	payload, ok := outbox.entries[0].payload.(events.SubscriptionChangedV1)
	require.True(t, ok)
	assert.Equal(t, orgID, payload.OrgID)
	assert.Equal(t, planID, payload.PlanID)
	assert.Equal(t, StatusActive, payload.Status)
	assert.Equal(t, time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC), payload.OccurredAt)
}

func TestServiceSyncValidatesStatus(t *testing.T) {
	svc, _, _, outbox, orgID, planID := setupBillingService(t)
	ctx := context.Background()

	_, err := svc.Activate(ctx, orgID, planID, "cus_1", "sub_1")
	require.NoError(t, err)

	_, err = svc.Sync(ctx, "sub_1", "paused", nil)
	assert.Error(t, err, "unknown statuses are rejected before touching the store")

	periodEnd := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	sub, err := svc.Sync(ctx, "sub_1", StatusPastDue, &periodEnd)
	require.NoError(t, err)
	assert.Equal(t, StatusPastDue, sub.Status)
	require.NotNil(t, sub.PeriodEnd)
	assert.Equal(t, periodEnd, *sub.PeriodEnd)

	require.Len(t, outbox.entries, 2)
	assert.Equal(t, orgID, outbox.entries[1].orgID)
}
