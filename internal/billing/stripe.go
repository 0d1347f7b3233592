package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/praxishealth/praxis/pkg/logging"
)

var stripeTracer = otel.Tracer("praxis.internal.billing.stripe")

// CheckoutParams describes a subscription checkout session to create.
type CheckoutParams struct {
	SecretKey     string
	OrgID         string
	PlanID        string
	PriceID       string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the redirect handed back to the browser.
type CheckoutSession struct {
	ProviderID string `json:"provider_id"`
	URL        string `json:"url"`
}

// StripeClient creates Stripe Checkout Sessions for subscription purchase.
// It speaks the form-encoded Stripe API directly; the secret key is supplied
// per call because each practice connects its own Stripe account.
type StripeClient struct {
	successURL string
	cancelURL  string
	baseURL    string
	apiVersion string
	httpClient *http.Client
	logger     *logging.Logger
	dryRun     bool
	trialDays  int
}

// NewStripeClient creates a Stripe API client with default redirect URLs.
func NewStripeClient(successURL, cancelURL string, logger *logging.Logger) *StripeClient {
	if logger == nil {
		logger = logging.Default()
	}
	dryRun := strings.EqualFold(os.Getenv("STRIPE_DRY_RUN"), "true") || os.Getenv("STRIPE_DRY_RUN") == "1"
	return &StripeClient{
		successURL: successURL,
		cancelURL:  cancelURL,
		baseURL:    "https://api.stripe.com",
		apiVersion: "2024-12-18.acacia",
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
		dryRun:     dryRun,
	}
}

// WithBaseURL overrides the Stripe API base URL (for testing).
func (c *StripeClient) WithBaseURL(baseURL string) *StripeClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithDryRun enables dry-run mode (returns fake URLs without calling Stripe).
func (c *StripeClient) WithDryRun(enabled bool) *StripeClient {
	c.dryRun = enabled
	return c
}

// WithTrialDays sets a free trial period applied to every new subscription.
func (c *StripeClient) WithTrialDays(days int) *StripeClient {
	if days > 0 {
		c.trialDays = days
	}
	return c
}

// CreateSubscriptionCheckout opens a mode=subscription checkout session and
// returns the hosted URL to redirect the user to.
func (c *StripeClient) CreateSubscriptionCheckout(ctx context.Context, params CheckoutParams) (*CheckoutSession, error) {
	ctx, span := stripeTracer.Start(ctx, "stripe.create_checkout_session")
	defer span.End()
	span.SetAttributes(
		attribute.String("praxis.org_id", params.OrgID),
		attribute.String("praxis.plan_id", params.PlanID),
	)

	if c.dryRun {
		fakeID := "cs_dryrun_" + uuid.New().String()[:8]
		c.logger.Info("stripe dry run: skipping checkout session creation",
			"org_id", params.OrgID, "plan_id", params.PlanID)
		return &CheckoutSession{
			ProviderID: fakeID,
			URL:        fmt.Sprintf("https://checkout.stripe.com/dry-run/%s", fakeID),
		}, nil
	}

	if params.SecretKey == "" {
		return nil, ErrKeysNotConfigured
	}
	if params.PriceID == "" {
		return nil, fmt.Errorf("billing: plan %s has no stripe price", params.PlanID)
	}

	successURL := params.SuccessURL
	if successURL == "" {
		successURL = c.successURL
	}
	cancelURL := params.CancelURL
	if cancelURL == "" {
		cancelURL = c.cancelURL
	}

	form := url.Values{}
	form.Set("mode", "subscription")
	form.Set("line_items[0][price]", params.PriceID)
	form.Set("line_items[0][quantity]", "1")
	if successURL != "" {
		form.Set("success_url", successURL)
	}
	if cancelURL != "" {
		form.Set("cancel_url", cancelURL)
	}
	if params.CustomerEmail != "" {
		form.Set("customer_email", params.CustomerEmail)
	}

	// Metadata for webhook processing
	form.Set("metadata[org_id]", params.OrgID)
	form.Set("metadata[plan_id]", params.PlanID)
	form.Set("subscription_data[metadata][org_id]", params.OrgID)
	form.Set("subscription_data[metadata][plan_id]", params.PlanID)
	if c.trialDays > 0 {
		form.Set("subscription_data[trial_period_days]", strconv.Itoa(c.trialDays))
	}

	apiURL := c.baseURL + "/v1/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("billing: stripe request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+params.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Stripe-Version", c.apiVersion)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing: stripe http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("billing: stripe api status %d: %s", resp.StatusCode, string(body))
	}

	var parsed stripeCheckoutSession
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("billing: stripe decode: %w", err)
	}
	if parsed.URL == "" {
		return nil, fmt.Errorf("billing: stripe response missing checkout url")
	}

	return &CheckoutSession{ProviderID: parsed.ID, URL: parsed.URL}, nil
}

// stripeCheckoutSession is the subset of Stripe's Checkout Session we need.
type stripeCheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
