package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestAPIMetricsObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewAPIMetrics(reg)

	m.ObserveRequest("/orgs/{orgID}/appointments", "POST", 201)
	m.ObserveRequest("/orgs/{orgID}/appointments", "POST", 201)
	m.ObserveRequest("/orgs/{orgID}/appointments", "POST", 409)
	m.AppointmentsBooked().Inc()
	m.SlotQueries().Inc()
	m.StripeWebhooks().Observe("checkout.session.completed", "ok")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}

	byName := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		byName[mf.GetName()] = mf
	}

	http := byName["praxis_http_requests_total"]
	if http == nil {
		t.Fatal("http requests metric not registered")
	}
	var created float64
	for _, metric := range http.GetMetric() {
		for _, label := range metric.GetLabel() {
			if label.GetName() == "status" && label.GetValue() == "201" {
				created = metric.GetCounter().GetValue()
			}
		}
	}
	if created != 2 {
		t.Fatalf("expected 2 created requests, got %v", created)
	}

	booked := byName["praxis_appointments_booked_total"]
	if booked == nil || booked.GetMetric()[0].GetCounter().GetValue() != 1 {
		t.Fatalf("unexpected booked counter: %v", booked)
	}

	webhooks := byName["praxis_stripe_webhook_total"]
	if webhooks == nil || len(webhooks.GetMetric()) != 1 {
		t.Fatalf("unexpected webhook metric: %v", webhooks)
	}
}

func TestAPIMetricsNilSafe(t *testing.T) {
	var m *APIMetrics
	m.ObserveRequest("/health", "GET", 200)
	m.StripeWebhooks().Observe("event", "ok")
	if m.AppointmentsBooked() != nil || m.SlotQueries() != nil {
		t.Fatal("nil metrics must yield nil counters")
	}
}
