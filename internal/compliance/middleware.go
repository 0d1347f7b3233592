package compliance

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/praxishealth/praxis/internal/tenancy"
	"github.com/praxishealth/praxis/pkg/logging"
)

// Recorder accepts audit events. *Trail satisfies it.
type Recorder interface {
	Record(ctx context.Context, event AuditEvent) error
}

type auditStatusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *auditStatusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Hijack passes websocket upgrades through to the underlying connection.
func (r *auditStatusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("compliance: response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

func (r *auditStatusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Middleware records successful access to patient records and
// prescriptions. Mounted inside the org-scoped router so the tenancy
// context carries org and user. A failed write never fails the request.
func Middleware(rec Recorder, logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sr := &auditStatusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			if sr.status >= http.StatusBadRequest {
				return
			}

			action, resourceID := classify(r)
			if action == "" {
				return
			}
			orgID, _ := tenancy.OrgIDFromContext(r.Context())
			userID, _ := tenancy.UserIDFromContext(r.Context())
			if orgID == "" || userID == "" {
				return
			}

			event := AuditEvent{
				OrgID:      orgID,
				UserID:     userID,
				Action:     action,
				ResourceID: resourceID,
			}
			if err := rec.Record(r.Context(), event); err != nil {
				logger.Error("audit record failed", "action", action, "org_id", orgID, "error", err)
			}
		})
	}
}

// classify maps the matched route onto an audit action. List endpoints
// and non-clinical routes are not audited.
func classify(r *http.Request) (AuditAction, string) {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return "", ""
	}
	pattern := rctx.RoutePattern()

	switch {
	case strings.HasSuffix(pattern, "/patients") && r.Method == http.MethodPost:
		return ActionPatientCreated, ""
	case strings.HasSuffix(pattern, "/patients/{patientID}"):
		id := chi.URLParam(r, "patientID")
		switch r.Method {
		case http.MethodGet:
			return ActionPatientViewed, id
		case http.MethodPatch:
			return ActionPatientUpdated, id
		case http.MethodDelete:
			return ActionPatientDeleted, id
		}
	case strings.HasSuffix(pattern, "/prescriptions") && r.Method == http.MethodPost:
		return ActionPrescriptionIssued, ""
	case strings.HasSuffix(pattern, "/prescriptions/{prescriptionID}"):
		id := chi.URLParam(r, "prescriptionID")
		switch r.Method {
		case http.MethodGet:
			return ActionPrescriptionViewed, id
		case http.MethodDelete:
			return ActionPrescriptionDeleted, id
		}
	case strings.HasSuffix(pattern, "/prescriptions/{prescriptionID}/print") && r.Method == http.MethodGet:
		return ActionPrescriptionPrinted, chi.URLParam(r, "prescriptionID")
	}
	return "", ""
}
