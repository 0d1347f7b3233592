package billing

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
)

func TestRepositoryListPlans(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	now := time.Now().UTC()
	mock.ExpectQuery(`SELECT id, name, price_cents, billing_interval`).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "name", "price_cents", "billing_interval", "stripe_price_id", "max_members", "max_patients", "created_at",
		}).
			AddRow("plan-1", "Starter", 4900, "month", "price_s", 3, 500, now).
			AddRow("plan-2", "Practice", 9900, "month", "price_p", 10, 5000, now))

	repo := newRepositoryWithExec(mock)
	plans, err := repo.ListPlans(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 2 {
		t.Fatalf("expected 2 plans, got %d", len(plans))
	}
	if plans[0].Name != "Starter" || plans[0].PriceCents != 4900 {
		t.Fatalf("unexpected first plan: %+v", plans[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryGetSubscriptionNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	orgID := uuid.New().String()
	mock.ExpectQuery(`SELECT id, org_id, plan_id`).
		WithArgs(orgID).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "org_id", "plan_id", "stripe_customer_id", "stripe_subscription_id", "status", "period_end", "created_at", "updated_at",
		}))

	repo := newRepositoryWithExec(mock)
	if _, err := repo.GetSubscription(context.Background(), orgID); err != ErrSubscriptionNotFound {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryUpsertSubscription(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	orgID := uuid.New().String()
	planID := uuid.New().String()
	now := time.Now().UTC()

	mock.ExpectQuery(`INSERT INTO subscriptions`).
		WithArgs(pgxmock.AnyArg(), orgID, planID, "cus_1", "sub_1", StatusActive, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "org_id", "plan_id", "stripe_customer_id", "stripe_subscription_id", "status", "period_end", "created_at", "updated_at",
		}).AddRow("sub-row", orgID, planID, "cus_1", "sub_1", StatusActive, nil, now, now))

	repo := newRepositoryWithExec(mock)
	sub, err := repo.UpsertSubscription(context.Background(), &Subscription{
		OrgID:                orgID,
		PlanID:               planID,
		StripeCustomerID:     "cus_1",
		StripeSubscriptionID: "sub_1",
		Status:               StatusActive,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sub.ID != "sub-row" || sub.Status != StatusActive {
		t.Fatalf("unexpected subscription: %+v", sub)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositorySyncStatusUnknownSubscription(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`UPDATE subscriptions`).
		WithArgs("sub_missing", StatusCanceled, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "org_id", "plan_id", "stripe_customer_id", "stripe_subscription_id", "status", "period_end", "created_at", "updated_at",
		}))

	repo := newRepositoryWithExec(mock)
	if _, err := repo.SyncStatus(context.Background(), "sub_missing", StatusCanceled, nil); err != ErrSubscriptionNotFound {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRepositoryKeysRoundTrip(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	defer mock.Close()

	orgID := uuid.New().String()

	mock.ExpectExec(`INSERT INTO org_billing_keys`).
		WithArgs(orgID, "sk_live_1", "whsec_1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT org_id, stripe_secret_key, webhook_secret`).
		WithArgs(orgID).
		WillReturnRows(pgxmock.NewRows([]string{"org_id", "stripe_secret_key", "webhook_secret", "updated_at"}).
			AddRow(orgID, "sk_live_1", "whsec_1", time.Now().UTC()))

	repo := newRepositoryWithExec(mock)
	if err := repo.SetKeys(context.Background(), orgID, &SetKeysRequest{StripeSecretKey: "sk_live_1", WebhookSecret: "whsec_1"}); err != nil {
		t.Fatalf("set keys: %v", err)
	}
	keys, err := repo.GetKeys(context.Background(), orgID)
	if err != nil {
		t.Fatalf("get keys: %v", err)
	}
	if keys.StripeSecretKey != "sk_live_1" || keys.WebhookSecret != "whsec_1" {
		t.Fatalf("unexpected keys: %+v", keys)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
