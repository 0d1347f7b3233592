package appointmenttypes

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/praxishealth/praxis/internal/tenancy"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Handler exposes appointment type CRUD under /orgs/{orgID}.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates the appointment types handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Create handles POST /orgs/{orgID}/appointment-types. Owner or admin only.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	orgID, _ := tenancy.OrgIDFromContext(r.Context())

	var req CreateTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.store.Create(r.Context(), orgID, &req)
	if err != nil {
		h.logger.Error("create appointment type failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// Get handles GET /orgs/{orgID}/appointment-types/{typeID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	typeID := chi.URLParam(r, "typeID")

	t, err := h.store.Get(r.Context(), orgID, typeID)
	if err != nil {
		if errors.Is(err, ErrTypeNotFound) {
			http.Error(w, "appointment type not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get appointment type failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update handles PATCH /orgs/{orgID}/appointment-types/{typeID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	typeID := chi.URLParam(r, "typeID")

	var req UpdateTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.store.Update(r.Context(), orgID, typeID, &req)
	if err != nil {
		if errors.Is(err, ErrTypeNotFound) {
			http.Error(w, "appointment type not found", http.StatusNotFound)
			return
		}
		h.logger.Error("update appointment type failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /orgs/{orgID}/appointment-types/{typeID}.
// Types with future appointments cannot be deleted.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.requireManager(w, r) {
		return
	}
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	typeID := chi.URLParam(r, "typeID")

	if err := h.store.Delete(r.Context(), orgID, typeID, time.Now()); err != nil {
		switch {
		case errors.Is(err, ErrTypeNotFound):
			http.Error(w, "appointment type not found", http.StatusNotFound)
		case errors.Is(err, ErrTypeInUse):
			http.Error(w, "type still has future appointments", http.StatusConflict)
		default:
			h.logger.Error("delete appointment type failed", "org_id", orgID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /orgs/{orgID}/appointment-types.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())

	types, err := h.store.List(r.Context(), orgID)
	if err != nil {
		h.logger.Error("list appointment types failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if types == nil {
		types = []*AppointmentType{}
	}
	writeJSON(w, http.StatusOK, types)
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
