package compliance

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/praxishealth/praxis/internal/tenancy"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Handler exposes the org audit log to owners and admins.
type Handler struct {
	trail  *Trail
	logger *logging.Logger
}

// NewHandler creates the audit log handler.
func NewHandler(trail *Trail, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{trail: trail, logger: logger}
}

// List handles GET /orgs/{orgID}/audit.
// Query params: user_id, action, from, to (RFC 3339), limit, offset.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	role, ok := tenancy.RoleFromContext(r.Context())
	if !ok || !tenancy.CanManage(role) {
		http.Error(w, "insufficient role", http.StatusForbidden)
		return
	}
	orgID, _ := tenancy.OrgIDFromContext(r.Context())

	filter := AuditFilter{
		OrgID:  orgID,
		UserID: r.URL.Query().Get("user_id"),
		Action: AuditAction(r.URL.Query().Get("action")),
		Limit:  100,
	}
	if v := r.URL.Query().Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid from timestamp", http.StatusBadRequest)
			return
		}
		filter.From = ts
	}
	if v := r.URL.Query().Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			http.Error(w, "invalid to timestamp", http.StatusBadRequest)
			return
		}
		filter.To = ts
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			filter.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			filter.Offset = n
		}
	}

	events, err := h.trail.Query(r.Context(), filter)
	if err != nil {
		h.logger.Error("audit query failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if events == nil {
		events = []AuditEvent{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(events)
}
