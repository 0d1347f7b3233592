package prescriptions

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/praxishealth/praxis/internal/patients"
	"github.com/praxishealth/praxis/internal/tenancy"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Handler exposes prescriptions under /orgs/{orgID}.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the prescriptions handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Create handles POST /orgs/{orgID}/prescriptions. The signed-in
// member is recorded as the prescriber.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	userID, ok := tenancy.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	var req CreatePrescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.service.Create(r.Context(), orgID, userID, &req)
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// Get handles GET /orgs/{orgID}/prescriptions/{prescriptionID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	id := chi.URLParam(r, "prescriptionID")

	p, err := h.service.Get(r.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			http.Error(w, "prescription not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get prescription failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// ListByPatient handles GET /orgs/{orgID}/patients/{patientID}/prescriptions.
func (h *Handler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	patientID := chi.URLParam(r, "patientID")

	out, err := h.service.ListByPatient(r.Context(), orgID, patientID)
	if err != nil {
		if errors.Is(err, patients.ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		h.logger.Error("list prescriptions failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if out == nil {
		out = []*Prescription{}
	}
	writeJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /orgs/{orgID}/prescriptions/{prescriptionID}.
// Owner or admin only.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	role, ok := tenancy.RoleFromContext(r.Context())
	if !ok || !tenancy.CanManage(role) {
		http.Error(w, "insufficient role", http.StatusForbidden)
		return
	}
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	id := chi.URLParam(r, "prescriptionID")

	if err := h.service.Delete(r.Context(), orgID, id); err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			http.Error(w, "prescription not found", http.StatusNotFound)
			return
		}
		h.logger.Error("delete prescription failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Print handles GET /orgs/{orgID}/prescriptions/{prescriptionID}/print.
func (h *Handler) Print(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	id := chi.URLParam(r, "prescriptionID")

	payload, err := h.service.Print(r.Context(), orgID, id)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			http.Error(w, "prescription not found", http.StatusNotFound)
			return
		}
		h.logger.Error("print prescription failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
