package billing

import (
	"errors"
	"strings"
	"time"
)

// Subscription lifecycle states mirrored from Stripe.
const (
	StatusActive     = "active"
	StatusTrialing   = "trialing"
	StatusPastDue    = "past_due"
	StatusCanceled   = "canceled"
	StatusIncomplete = "incomplete"
)

var (
	ErrPlanNotFound         = errors.New("billing: plan not found")
	ErrSubscriptionNotFound = errors.New("billing: subscription not found")
	ErrKeysNotConfigured    = errors.New("billing: stripe keys not configured")
)

// Plan is a purchasable subscription tier.
type Plan struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	PriceCents    int       `json:"price_cents"`
	Interval      string    `json:"interval"`
	StripePriceID string    `json:"stripe_price_id"`
	MaxMembers    int       `json:"max_members"`
	MaxPatients   int       `json:"max_patients"`
	CreatedAt     time.Time `json:"created_at"`
}

// Subscription ties an organization to a plan and its Stripe state.
// At most one subscription row exists per organization.
type Subscription struct {
	ID                   string     `json:"id"`
	OrgID                string     `json:"org_id"`
	PlanID               string     `json:"plan_id"`
	StripeCustomerID     string     `json:"stripe_customer_id"`
	StripeSubscriptionID string     `json:"stripe_subscription_id"`
	Status               string     `json:"status"`
	PeriodEnd            *time.Time `json:"period_end,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// Active reports whether the organization currently has paid access.
func (s *Subscription) Active() bool {
	if s == nil {
		return false
	}
	return s.Status == StatusActive || s.Status == StatusTrialing
}

// OrgBillingKeys holds per-organization Stripe credentials. Each practice
// connects its own Stripe account and receives webhooks on its own endpoint.
type OrgBillingKeys struct {
	OrgID           string    `json:"org_id"`
	StripeSecretKey string    `json:"-"`
	WebhookSecret   string    `json:"-"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SetKeysRequest is the payload for connecting a Stripe account.
type SetKeysRequest struct {
	StripeSecretKey string `json:"stripe_secret_key"`
	WebhookSecret   string `json:"webhook_secret"`
}

func (r *SetKeysRequest) Validate() error {
	r.StripeSecretKey = strings.TrimSpace(r.StripeSecretKey)
	r.WebhookSecret = strings.TrimSpace(r.WebhookSecret)
	if r.StripeSecretKey == "" {
		return errors.New("billing: stripe secret key is required")
	}
	return nil
}

// CreatePlanRequest is the payload for provisioning a plan. Plans are
// managed by platform operators, not by practices.
type CreatePlanRequest struct {
	Name          string `json:"name"`
	PriceCents    int    `json:"price_cents"`
	Interval      string `json:"interval"`
	StripePriceID string `json:"stripe_price_id"`
	MaxMembers    int    `json:"max_members"`
	MaxPatients   int    `json:"max_patients"`
}

func (r *CreatePlanRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return errors.New("billing: plan name is required")
	}
	if r.PriceCents < 0 {
		return errors.New("billing: price must not be negative")
	}
	if r.Interval != "month" && r.Interval != "year" {
		return errors.New("billing: interval must be month or year")
	}
	return nil
}

func validSubscriptionStatus(s string) bool {
	switch s {
	case StatusActive, StatusTrialing, StatusPastDue, StatusCanceled, StatusIncomplete:
		return true
	}
	return false
}
