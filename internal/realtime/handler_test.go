package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/praxishealth/praxis/internal/compliance"
	httpmiddleware "github.com/praxishealth/praxis/internal/http/middleware"
	"github.com/praxishealth/praxis/internal/tenancy"
)

func TestStreamDeliversFrames(t *testing.T) {
	hub := NewHub(nil)
	handler := NewHandler(hub, nil)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := tenancy.WithOrgID(r.Context(), "org-stream")
		handler.Stream(w, r.WithContext(ctx))
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/orgs/org-stream/calendar/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// The subscription registers during the upgrade handshake; wait for it.
	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("org-stream") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast("org-stream", []byte(`{"type":"appointment.booked.v1"}`))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(frame) != `{"type":"appointment.booked.v1"}` {
		t.Fatalf("unexpected frame: %s", frame)
	}
}

type noopObserver struct{}

func (noopObserver) ObserveRequest(route, method string, status int) {}

type noopRecorder struct{}

func (noopRecorder) Record(_ context.Context, _ compliance.AuditEvent) error { return nil }

// The upgrade must survive every response-wrapping middleware the API
// mounts in front of the stream route.
func TestStreamUpgradesThroughMiddlewareChain(t *testing.T) {
	hub := NewHub(nil)
	handler := NewHandler(hub, nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := tenancy.WithOrgID(req.Context(), "org-stream")
			ctx = tenancy.WithUserID(ctx, "user-1")
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Use(httpmiddleware.RequestLogger(nil))
	r.Use(httpmiddleware.Metrics(noopObserver{}))
	r.Use(compliance.Middleware(noopRecorder{}, nil))
	r.Get("/orgs/{orgID}/calendar/stream", handler.Stream)

	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/orgs/org-stream/calendar/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial through middleware failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("org-stream") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscriber never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Broadcast("org-stream", []byte(`{"type":"appointment.canceled.v1"}`))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(frame) != `{"type":"appointment.canceled.v1"}` {
		t.Fatalf("unexpected frame: %s", frame)
	}
}

func TestStreamRequiresOrgScope(t *testing.T) {
	handler := NewHandler(NewHub(nil), nil)

	req := httptest.NewRequest(http.MethodGet, "/orgs/org-1/calendar/stream", nil)
	rr := httptest.NewRecorder()
	handler.Stream(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without org scope, got %d", rr.Code)
	}
}
