package patients

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/praxishealth/praxis/internal/tenancy"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Handler exposes the patient HTTP surface. All routes are mounted
// under /orgs/{orgID} with the membership middleware in front.
type Handler struct {
	store  Store
	logger *logging.Logger
}

// NewHandler creates the patients handler.
func NewHandler(store Store, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// Create handles POST /orgs/{orgID}/patients.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tenancy.OrgIDFromContext(r.Context())
	if !ok {
		http.Error(w, "organization scope required", http.StatusForbidden)
		return
	}

	var req CreatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	patient, err := h.store.Create(r.Context(), orgID, &req)
	if err != nil {
		h.logger.Error("create patient failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, patient)
}

// Get handles GET /orgs/{orgID}/patients/{patientID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	patientID := chi.URLParam(r, "patientID")

	patient, err := h.store.Get(r.Context(), orgID, patientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get patient failed", "org_id", orgID, "patient_id", patientID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

// Update handles PATCH /orgs/{orgID}/patients/{patientID}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	patientID := chi.URLParam(r, "patientID")

	var req UpdatePatientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	patient, err := h.store.Update(r.Context(), orgID, patientID, &req)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		h.logger.Error("update patient failed", "org_id", orgID, "patient_id", patientID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

// Delete handles DELETE /orgs/{orgID}/patients/{patientID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	patientID := chi.URLParam(r, "patientID")

	if err := h.store.Delete(r.Context(), orgID, patientID); err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			http.Error(w, "patient not found", http.StatusNotFound)
			return
		}
		h.logger.Error("delete patient failed", "org_id", orgID, "patient_id", patientID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /orgs/{orgID}/patients?search=&limit=&offset=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())

	params := ListParams{Search: r.URL.Query().Get("search")}
	if v := r.URL.Query().Get("limit"); v != "" {
		params.Limit, _ = strconv.Atoi(v)
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		params.Offset, _ = strconv.Atoi(v)
	}

	patients, err := h.store.List(r.Context(), orgID, params)
	if err != nil {
		h.logger.Error("list patients failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if patients == nil {
		patients = []*Patient{}
	}
	writeJSON(w, http.StatusOK, patients)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
