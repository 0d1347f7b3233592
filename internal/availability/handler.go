package availability

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/praxishealth/praxis/internal/appointmenttypes"
	"github.com/praxishealth/praxis/internal/organizations"
	"github.com/praxishealth/praxis/internal/tenancy"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Handler exposes schedule management and slot queries under
// /orgs/{orgID}.
type Handler struct {
	service *Service
	logger  *logging.Logger

	// SlotQueries is incremented per slot computation when set.
	SlotQueries interface{ Inc() }
}

// NewHandler creates the availability handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type scheduleRequest struct {
	Windows []LocalWindow `json:"windows"`
}

// SetSchedule handles PUT /orgs/{orgID}/availability. Owner or admin only.
func (h *Handler) SetSchedule(w http.ResponseWriter, r *http.Request) {
	role, ok := tenancy.RoleFromContext(r.Context())
	if !ok || !tenancy.CanManage(role) {
		http.Error(w, "insufficient role", http.StatusForbidden)
		return
	}
	orgID, _ := tenancy.OrgIDFromContext(r.Context())

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	local, err := h.service.SetSchedule(r.Context(), orgID, req.Windows)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidClock), errors.Is(err, ErrEmptyWindow),
			errors.Is(err, ErrBadWeekday), errors.Is(err, ErrDuplicateDay):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, organizations.ErrOrgNotFound):
			http.Error(w, "organization not found", http.StatusNotFound)
		default:
			h.logger.Error("set schedule failed", "org_id", orgID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, scheduleRequest{Windows: local})
}

// GetSchedule handles GET /orgs/{orgID}/availability.
func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())

	local, err := h.service.GetSchedule(r.Context(), orgID)
	if err != nil {
		if errors.Is(err, organizations.ErrOrgNotFound) {
			http.Error(w, "organization not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get schedule failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if local == nil {
		local = []LocalWindow{}
	}
	writeJSON(w, http.StatusOK, scheduleRequest{Windows: local})
}

// Slots handles GET /orgs/{orgID}/availability/slots?date=YYYY-MM-DD&type_id=...
func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	date := r.URL.Query().Get("date")
	typeID := r.URL.Query().Get("type_id")
	if date == "" || typeID == "" {
		http.Error(w, "date and type_id are required", http.StatusBadRequest)
		return
	}

	if h.SlotQueries != nil {
		h.SlotQueries.Inc()
	}

	slots, err := h.service.Slots(r.Context(), orgID, date, typeID)
	if err != nil {
		switch {
		case errors.Is(err, appointmenttypes.ErrTypeNotFound):
			http.Error(w, "appointment type not found", http.StatusNotFound)
		case errors.Is(err, organizations.ErrOrgNotFound):
			http.Error(w, "organization not found", http.StatusNotFound)
		case errors.Is(err, ErrNoSchedule):
			http.Error(w, "no availability configured", http.StatusUnprocessableEntity)
		default:
			h.logger.Error("slot query failed", "org_id", orgID, "date", date, "error", err)
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": date, "slots": slots})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
