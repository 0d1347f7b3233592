package appointments

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/praxishealth/praxis/internal/appointmenttypes"
	"github.com/praxishealth/praxis/internal/patients"
	"github.com/praxishealth/praxis/internal/tenancy"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Handler exposes booking under /orgs/{orgID}/appointments.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates the appointments handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Book handles POST /orgs/{orgID}/appointments.
func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())

	var req BookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.service.Book(r.Context(), orgID, &req)
	if err != nil {
		switch {
		case errors.Is(err, ErrSlotConflict):
			http.Error(w, "time overlaps an existing appointment", http.StatusConflict)
		case errors.Is(err, patients.ErrPatientNotFound):
			http.Error(w, "patient not found", http.StatusNotFound)
		case errors.Is(err, appointmenttypes.ErrTypeNotFound):
			http.Error(w, "appointment type not found", http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
		return
	}
	writeJSON(w, http.StatusCreated, appt)
}

// Get handles GET /orgs/{orgID}/appointments/{apptID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	apptID := chi.URLParam(r, "apptID")

	appt, err := h.service.Get(r.Context(), orgID, apptID)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get appointment failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// List handles GET /orgs/{orgID}/appointments?from=&to=&patient_id=.
// from/to take RFC 3339 timestamps or YYYY-MM-DD dates.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())

	params := ListParams{PatientID: r.URL.Query().Get("patient_id")}
	var err error
	if v := r.URL.Query().Get("from"); v != "" {
		if params.From, err = parseWhen(v); err != nil {
			http.Error(w, "invalid from parameter", http.StatusBadRequest)
			return
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if params.To, err = parseWhen(v); err != nil {
			http.Error(w, "invalid to parameter", http.StatusBadRequest)
			return
		}
	}

	appts, err := h.service.List(r.Context(), orgID, params)
	if err != nil {
		h.logger.Error("list appointments failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if appts == nil {
		appts = []*Appointment{}
	}
	writeJSON(w, http.StatusOK, appts)
}

type statusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus handles PATCH /orgs/{orgID}/appointments/{apptID}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	apptID := chi.URLParam(r, "apptID")

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.service.UpdateStatus(r.Context(), orgID, apptID, req.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrAppointmentNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrBadStatus):
			http.Error(w, "unknown status", http.StatusBadRequest)
		default:
			h.logger.Error("update status failed", "org_id", orgID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Reschedule handles PATCH /orgs/{orgID}/appointments/{apptID}.
func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	apptID := chi.URLParam(r, "apptID")

	var req RescheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	appt, err := h.service.Reschedule(r.Context(), orgID, apptID, req.StartsAt)
	if err != nil {
		switch {
		case errors.Is(err, ErrAppointmentNotFound):
			http.Error(w, "appointment not found", http.StatusNotFound)
		case errors.Is(err, ErrSlotConflict):
			http.Error(w, "time overlaps an existing appointment", http.StatusConflict)
		case errors.Is(err, ErrPastStart):
			http.Error(w, "start must be in the future", http.StatusBadRequest)
		default:
			h.logger.Error("reschedule failed", "org_id", orgID, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

// Delete handles DELETE /orgs/{orgID}/appointments/{apptID}. Owner or
// admin only; regular members cancel instead.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	role, ok := tenancy.RoleFromContext(r.Context())
	if !ok || !tenancy.CanManage(role) {
		http.Error(w, "insufficient role", http.StatusForbidden)
		return
	}
	orgID, _ := tenancy.OrgIDFromContext(r.Context())
	apptID := chi.URLParam(r, "apptID")

	if err := h.service.Delete(r.Context(), orgID, apptID); err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			http.Error(w, "appointment not found", http.StatusNotFound)
			return
		}
		h.logger.Error("delete appointment failed", "org_id", orgID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseWhen(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
