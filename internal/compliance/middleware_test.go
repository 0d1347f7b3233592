package compliance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/praxishealth/praxis/internal/tenancy"
)

type stubRecorder struct {
	events []AuditEvent
}

func (s *stubRecorder) Record(_ context.Context, event AuditEvent) error {
	s.events = append(s.events, event)
	return nil
}

func auditTestRouter(rec Recorder) chi.Router {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := tenancy.WithOrgID(req.Context(), "org-1")
			ctx = tenancy.WithUserID(ctx, "user-1")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Use(Middleware(rec, nil))

	ok := func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) }
	r.Get("/orgs/{orgID}/patients", ok)
	r.Get("/orgs/{orgID}/patients/{patientID}", ok)
	r.Delete("/orgs/{orgID}/patients/{patientID}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/orgs/{orgID}/prescriptions/{prescriptionID}/print", ok)
	r.Patch("/orgs/{orgID}/patients/{patientID}", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	})
	return r
}

func TestMiddlewareRecordsPatientAccess(t *testing.T) {
	rec := &stubRecorder{}
	router := auditTestRouter(rec)

	req := httptest.NewRequest(http.MethodGet, "/orgs/org-1/patients/pat-9", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	if len(rec.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(rec.events))
	}
	evt := rec.events[0]
	if evt.Action != ActionPatientViewed || evt.ResourceID != "pat-9" {
		t.Fatalf("unexpected event %+v", evt)
	}
	if evt.OrgID != "org-1" || evt.UserID != "user-1" {
		t.Fatalf("missing tenancy on event %+v", evt)
	}
}

func TestMiddlewareSkipsListsAndFailures(t *testing.T) {
	rec := &stubRecorder{}
	router := auditTestRouter(rec)

	// List endpoints are not audited.
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orgs/org-1/patients", nil))
	// Failed requests are not audited.
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPatch, "/orgs/org-1/patients/pat-9", nil))

	if len(rec.events) != 0 {
		t.Fatalf("expected no events, got %d", len(rec.events))
	}
}

func TestMiddlewareRecordsPrintAndDelete(t *testing.T) {
	rec := &stubRecorder{}
	router := auditTestRouter(rec)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orgs/org-1/prescriptions/rx-3/print", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/orgs/org-1/patients/pat-2", nil))

	if len(rec.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(rec.events))
	}
	if rec.events[0].Action != ActionPrescriptionPrinted || rec.events[0].ResourceID != "rx-3" {
		t.Fatalf("unexpected first event %+v", rec.events[0])
	}
	if rec.events[1].Action != ActionPatientDeleted || rec.events[1].ResourceID != "pat-2" {
		t.Fatalf("unexpected second event %+v", rec.events[1])
	}
}
