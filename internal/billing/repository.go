package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is the persistence surface for plans, subscriptions and keys.
type Store interface {
	ListPlans(ctx context.Context) ([]*Plan, error)
	GetPlan(ctx context.Context, planID string) (*Plan, error)
	CreatePlan(ctx context.Context, req *CreatePlanRequest) (*Plan, error)
	GetSubscription(ctx context.Context, orgID string) (*Subscription, error)
	UpsertSubscription(ctx context.Context, sub *Subscription) (*Subscription, error)
	SyncStatus(ctx context.Context, stripeSubscriptionID, status string, periodEnd *time.Time) (*Subscription, error)
	GetKeys(ctx context.Context, orgID string) (*OrgBillingKeys, error)
	SetKeys(ctx context.Context, orgID string, req *SetKeysRequest) error
}

// Repository is the pgx-backed Store.
type Repository struct {
	pool querier
}

// NewRepository creates a repository backed by pgx.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("billing: pgx pool required")
	}
	return &Repository{pool: pool}
}

func newRepositoryWithExec(exec querier) *Repository {
	if exec == nil {
		panic("billing: exec required")
	}
	return &Repository{pool: exec}
}

const planColumns = `id, name, price_cents, billing_interval, stripe_price_id, max_members, max_patients, created_at`

// ListPlans returns all plans, cheapest first.
func (r *Repository) ListPlans(ctx context.Context) ([]*Plan, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+planColumns+`
		FROM plans
		ORDER BY price_cents ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("billing: list plans: %w", err)
	}
	defer rows.Close()

	var plans []*Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("billing: iterate plans: %w", err)
	}
	return plans, nil
}

// GetPlan fetches a single plan by id.
func (r *Repository) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+planColumns+`
		FROM plans
		WHERE id = $1
	`, planID)
	p, err := scanPlan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	return p, nil
}

// CreatePlan inserts a new plan.
func (r *Repository) CreatePlan(ctx context.Context, req *CreatePlanRequest) (*Plan, error) {
	id := uuid.New()
	var createdAt time.Time
	err := r.pool.QueryRow(ctx, `
		INSERT INTO plans (id, name, price_cents, billing_interval, stripe_price_id, max_members, max_patients)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, id, req.Name, req.PriceCents, req.Interval, req.StripePriceID, req.MaxMembers, req.MaxPatients).Scan(&createdAt)
	if err != nil {
		return nil, fmt.Errorf("billing: insert plan: %w", err)
	}
	return &Plan{
		ID:            id.String(),
		Name:          req.Name,
		PriceCents:    req.PriceCents,
		Interval:      req.Interval,
		StripePriceID: req.StripePriceID,
		MaxMembers:    req.MaxMembers,
		MaxPatients:   req.MaxPatients,
		CreatedAt:     createdAt,
	}, nil
}

const subscriptionColumns = `id, org_id, plan_id, stripe_customer_id, stripe_subscription_id, status, period_end, created_at, updated_at`

// GetSubscription returns the organization's subscription, if any.
func (r *Repository) GetSubscription(ctx context.Context, orgID string) (*Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+subscriptionColumns+`
		FROM subscriptions
		WHERE org_id = $1
	`, orgID)
	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}
	return sub, nil
}

// UpsertSubscription creates the org's subscription row or replaces its
// plan and Stripe identifiers. One row per org is enforced by the schema.
func (r *Repository) UpsertSubscription(ctx context.Context, sub *Subscription) (*Subscription, error) {
	id := sub.ID
	if id == "" {
		id = uuid.New().String()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO subscriptions (id, org_id, plan_id, stripe_customer_id, stripe_subscription_id, status, period_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (org_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			stripe_customer_id = EXCLUDED.stripe_customer_id,
			stripe_subscription_id = EXCLUDED.stripe_subscription_id,
			status = EXCLUDED.status,
			period_end = EXCLUDED.period_end,
			updated_at = now()
		RETURNING `+subscriptionColumns+`
	`, id, sub.OrgID, sub.PlanID, sub.StripeCustomerID, sub.StripeSubscriptionID, sub.Status, sub.PeriodEnd)
	stored, err := scanSubscription(row)
	if err != nil {
		return nil, fmt.Errorf("billing: upsert subscription: %w", err)
	}
	return stored, nil
}

// SyncStatus updates status and period end for the subscription matching a
// Stripe subscription id. Used by webhook processing, where the org is
// identified by Stripe's identifier rather than ours.
func (r *Repository) SyncStatus(ctx context.Context, stripeSubscriptionID, status string, periodEnd *time.Time) (*Subscription, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE subscriptions
		SET status = $2, period_end = COALESCE($3, period_end), updated_at = now()
		WHERE stripe_subscription_id = $1
		RETURNING `+subscriptionColumns+`
	`, stripeSubscriptionID, status, periodEnd)
	sub, err := scanSubscription(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("billing: sync status: %w", err)
	}
	return sub, nil
}

// GetKeys loads the org's Stripe credentials.
func (r *Repository) GetKeys(ctx context.Context, orgID string) (*OrgBillingKeys, error) {
	var keys OrgBillingKeys
	err := r.pool.QueryRow(ctx, `
		SELECT org_id, stripe_secret_key, webhook_secret, updated_at
		FROM org_billing_keys
		WHERE org_id = $1
	`, orgID).Scan(&keys.OrgID, &keys.StripeSecretKey, &keys.WebhookSecret, &keys.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeysNotConfigured
		}
		return nil, fmt.Errorf("billing: get keys: %w", err)
	}
	return &keys, nil
}

// SetKeys stores or replaces the org's Stripe credentials.
func (r *Repository) SetKeys(ctx context.Context, orgID string, req *SetKeysRequest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO org_billing_keys (org_id, stripe_secret_key, webhook_secret)
		VALUES ($1, $2, $3)
		ON CONFLICT (org_id) DO UPDATE SET
			stripe_secret_key = EXCLUDED.stripe_secret_key,
			webhook_secret = EXCLUDED.webhook_secret,
			updated_at = now()
	`, orgID, req.StripeSecretKey, req.WebhookSecret)
	if err != nil {
		return fmt.Errorf("billing: set keys: %w", err)
	}
	return nil
}

func scanPlan(row pgx.Row) (*Plan, error) {
	var p Plan
	err := row.Scan(&p.ID, &p.Name, &p.PriceCents, &p.Interval, &p.StripePriceID, &p.MaxMembers, &p.MaxPatients, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("billing: scan plan: %w", err)
	}
	return &p, nil
}

func scanSubscription(row pgx.Row) (*Subscription, error) {
	var sub Subscription
	err := row.Scan(&sub.ID, &sub.OrgID, &sub.PlanID, &sub.StripeCustomerID, &sub.StripeSubscriptionID,
		&sub.Status, &sub.PeriodEnd, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("billing: scan subscription: %w", err)
	}
	return &sub, nil
}
