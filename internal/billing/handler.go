package billing

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/praxishealth/praxis/internal/tenancy"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Handler exposes plans and the org billing surface under /orgs/{orgID}.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the billing handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// ListPlans handles GET /billing/plans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	plans, err := h.service.ListPlans(r.Context())
	if err != nil {
		h.logger.Error("list plans failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if plans == nil {
		plans = []*Plan{}
	}
	writeJSON(w, http.StatusOK, plans)
}

// CreatePlan handles POST /admin/plans. Guarded by operator JWT auth at the
// router, not by practice sessions.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req CreatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	plan, err := h.service.CreatePlan(r.Context(), &req)
	if err != nil {
		if verr := req.Validate(); verr != nil {
			http.Error(w, verr.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("create plan failed", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, plan)
}

// GetSubscription handles GET /orgs/{orgID}/billing/subscription.
func (h *Handler) GetSubscription(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())

	sub, err := h.service.GetSubscription(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			http.Error(w, "no subscription", http.StatusNotFound)
			return
		}
		h.logger.Error("get subscription failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// ConnectKeys handles PUT /orgs/{orgID}/billing/keys. Owner or admin only.
func (h *Handler) ConnectKeys(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	orgID, _ := tenancy.OrgIDFromContext(r.Context())

	var req SetKeysRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.service.ConnectKeys(r.Context(), orgID, &req); err != nil {
		if req.StripeSecretKey == "" {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		h.logger.Error("connect billing keys failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type checkoutRequest struct {
	PlanID string `json:"plan_id"`
}

// Checkout handles POST /orgs/{orgID}/billing/checkout. Owner or admin only.
// Returns the Stripe hosted checkout URL to redirect the browser to.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	orgID, _ := tenancy.OrgIDFromContext(r.Context())

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.PlanID == "" {
		http.Error(w, "plan_id is required", http.StatusBadRequest)
		return
	}

	session, err := h.service.Checkout(r.Context(), orgID, req.PlanID, "")
	if err != nil {
		switch {
		case errors.Is(err, ErrPlanNotFound):
			http.Error(w, "plan not found", http.StatusNotFound)
		case errors.Is(err, ErrKeysNotConfigured):
			http.Error(w, "stripe is not connected for this organization", http.StatusConflict)
		default:
			h.logger.Error("checkout failed", "org_id", orgID, "plan_id", req.PlanID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusCreated, session)
}

func (h *Handler) requireManager(w http.ResponseWriter, r *http.Request) bool {
	role, ok := tenancy.RoleFromContext(r.Context())
	if !ok || !tenancy.CanManage(role) {
		http.Error(w, "insufficient role", http.StatusForbidden)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
