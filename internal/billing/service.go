package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/praxishealth/praxis/internal/events"
	"github.com/praxishealth/praxis/pkg/logging"
)

type checkoutCreator interface {
	CreateSubscriptionCheckout(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
}

type outboxWriter interface {
	Insert(ctx context.Context, orgID, eventType string, payload any) (uuid.UUID, error)
}

// Service coordinates plans, subscriptions and the Stripe checkout flow.
type Service struct {
	store    Store
	checkout checkoutCreator
	outbox   outboxWriter
	logger   *logging.Logger

	now func() time.Time
}

// NewService wires the billing service.
func NewService(store Store, checkout checkoutCreator, outbox outboxWriter, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		checkout: checkout,
		outbox:   outbox,
		logger:   logger,
		now:      time.Now,
	}
}

// ListPlans returns the purchasable plans.
func (s *Service) ListPlans(ctx context.Context) ([]*Plan, error) {
	return s.store.ListPlans(ctx)
}

// CreatePlan provisions a plan. Reserved for platform operators.
func (s *Service) CreatePlan(ctx context.Context, req *CreatePlanRequest) (*Plan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.store.CreatePlan(ctx, req)
}

// GetSubscription returns the org's subscription.
func (s *Service) GetSubscription(ctx context.Context, orgID string) (*Subscription, error) {
	return s.store.GetSubscription(ctx, orgID)
}

// ConnectKeys stores the org's Stripe credentials.
func (s *Service) ConnectKeys(ctx context.Context, orgID string, req *SetKeysRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return s.store.SetKeys(ctx, orgID, req)
}

// Checkout creates a Stripe checkout session for the given plan using the
// org's own Stripe account and returns the redirect URL.
func (s *Service) Checkout(ctx context.Context, orgID, planID, customerEmail string) (*CheckoutSession, error) {
	plan, err := s.store.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	keys, err := s.store.GetKeys(ctx, orgID)
	if err != nil {
		return nil, err
	}
	session, err := s.checkout.CreateSubscriptionCheckout(ctx, CheckoutParams{
		SecretKey:     keys.StripeSecretKey,
		OrgID:         orgID,
		PlanID:        plan.ID,
		PriceID:       plan.StripePriceID,
		CustomerEmail: customerEmail,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("checkout session created", "org_id", orgID, "plan_id", planID, "session_id", session.ProviderID)
	return session, nil
}

// Activate records a completed checkout: the org now holds an active
// subscription tied to the Stripe customer and subscription ids.
func (s *Service) Activate(ctx context.Context, orgID, planID, customerID, stripeSubID string) (*Subscription, error) {
	sub, err := s.store.UpsertSubscription(ctx, &Subscription{
		OrgID:                orgID,
		PlanID:               planID,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: stripeSubID,
		Status:               StatusActive,
	})
	if err != nil {
		return nil, err
	}
	s.emitChanged(ctx, sub)
	return sub, nil
}

// Sync applies a status change reported by Stripe for a known subscription.
func (s *Service) Sync(ctx context.Context, stripeSubID, status string, periodEnd *time.Time) (*Subscription, error) {
	if !validSubscriptionStatus(status) {
		return nil, fmt.Errorf("billing: unknown subscription status %q", status)
	}
	sub, err := s.store.SyncStatus(ctx, stripeSubID, status, periodEnd)
	if err != nil {
		return nil, err
	}
	s.emitChanged(ctx, sub)
	return sub, nil
}

func (s *Service) emitChanged(ctx context.Context, sub *Subscription) {
	if s.outbox == nil {
		return
	}
	payload := events.SubscriptionChangedV1{
		EventID:        sub.ID + ":" + sub.Status,
		OrgID:          sub.OrgID,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		Status:         sub.Status,
		PeriodEnd:      sub.PeriodEnd,
		OccurredAt:     s.now().UTC(),
	}
	if _, err := s.outbox.Insert(ctx, sub.OrgID, events.TypeSubscriptionChanged, payload); err != nil {
		s.logger.Error("failed to enqueue subscription event", "error", err, "org_id", sub.OrgID)
	}
}
