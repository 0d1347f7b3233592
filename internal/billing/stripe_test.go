package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStripeClient_CreateSubscriptionCheckout(t *testing.T) {
	var gotForm map[string][]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/v1/checkout/sessions" {
			t.Errorf("expected path /v1/checkout/sessions, got %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk_test_123" {
			t.Errorf("expected auth header, got %q", got)
		}
		if r.Header.Get("Stripe-Version") == "" {
			t.Errorf("expected Stripe-Version header")
		}
		if r.Header.Get("Content-Type") != "application/x-www-form-urlencoded" {
			t.Errorf("expected form-urlencoded content type, got %q", r.Header.Get("Content-Type"))
		}

		if err := r.ParseForm(); err != nil {
			t.Fatalf("failed to parse form: %v", err)
		}
		gotForm = r.PostForm

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":  "cs_test_abc123",
			"url": "https://checkout.stripe.com/pay/cs_test_abc123",
		})
	}))
	defer srv.Close()

	client := NewStripeClient("https://app.example.com/billing/success", "https://app.example.com/billing", nil).
		WithBaseURL(srv.URL).
		WithDryRun(false)

	session, err := client.CreateSubscriptionCheckout(context.Background(), CheckoutParams{
		SecretKey:     "sk_test_123",
		OrgID:         "org-1",
		PlanID:        "plan-1",
		PriceID:       "price_abc",
		CustomerEmail: "owner@example.com",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if session.URL != "https://checkout.stripe.com/pay/cs_test_abc123" {
		t.Fatalf("unexpected URL: %s", session.URL)
	}
	if session.ProviderID != "cs_test_abc123" {
		t.Fatalf("unexpected provider ID: %s", session.ProviderID)
	}

	if gotForm == nil {
		t.Fatal("expected form to be captured")
	}
	assertFormValue(t, gotForm, "mode", "subscription")
	assertFormValue(t, gotForm, "line_items[0][price]", "price_abc")
	assertFormValue(t, gotForm, "line_items[0][quantity]", "1")
	assertFormValue(t, gotForm, "success_url", "https://app.example.com/billing/success")
	assertFormValue(t, gotForm, "cancel_url", "https://app.example.com/billing")
	assertFormValue(t, gotForm, "customer_email", "owner@example.com")
	assertFormValue(t, gotForm, "metadata[org_id]", "org-1")
	assertFormValue(t, gotForm, "metadata[plan_id]", "plan-1")
	assertFormValue(t, gotForm, "subscription_data[metadata][org_id]", "org-1")
}

func TestStripeClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"expired key"}}`))
	}))
	defer srv.Close()

	client := NewStripeClient("", "", nil).WithBaseURL(srv.URL).WithDryRun(false)

	_, err := client.CreateSubscriptionCheckout(context.Background(), CheckoutParams{
		SecretKey: "sk_test_bad",
		OrgID:     "org-1",
		PlanID:    "plan-1",
		PriceID:   "price_abc",
	})
	if err == nil {
		t.Fatal("expected error for non-2xx response")
	}
	if !strings.Contains(err.Error(), "status 402") {
		t.Fatalf("expected status in error, got %v", err)
	}
}

func TestStripeClient_MissingCredentials(t *testing.T) {
	client := NewStripeClient("", "", nil).WithDryRun(false)

	_, err := client.CreateSubscriptionCheckout(context.Background(), CheckoutParams{
		OrgID:   "org-1",
		PlanID:  "plan-1",
		PriceID: "price_abc",
	})
	if err != ErrKeysNotConfigured {
		t.Fatalf("expected ErrKeysNotConfigured, got %v", err)
	}

	_, err = client.CreateSubscriptionCheckout(context.Background(), CheckoutParams{
		SecretKey: "sk_test_123",
		OrgID:     "org-1",
		PlanID:    "plan-1",
	})
	if err == nil {
		t.Fatal("expected error for plan without stripe price")
	}
}

func TestStripeClient_DryRun(t *testing.T) {
	client := NewStripeClient("", "", nil).WithDryRun(true)

	session, err := client.CreateSubscriptionCheckout(context.Background(), CheckoutParams{
		OrgID:  "org-1",
		PlanID: "plan-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(session.ProviderID, "cs_dryrun_") {
		t.Fatalf("expected dry run session id, got %s", session.ProviderID)
	}
	if !strings.Contains(session.URL, session.ProviderID) {
		t.Fatalf("expected URL to carry the fake id, got %s", session.URL)
	}
}

func assertFormValue(t *testing.T, form map[string][]string, key, want string) {
	t.Helper()
	vals, ok := form[key]
	if !ok || len(vals) == 0 {
		t.Errorf("missing form value %q", key)
		return
	}
	if vals[0] != want {
		t.Errorf("form value %q: got %q, want %q", key, vals[0], want)
	}
}
