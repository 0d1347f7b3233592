package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// APIMetrics exposes counters for the HTTP surface and the booking flow.
type APIMetrics struct {
	httpRequests       *prometheus.CounterVec
	appointmentsBooked prometheus.Counter
	slotQueries        prometheus.Counter
	stripeWebhooks     *prometheus.CounterVec
}

func NewAPIMetrics(reg prometheus.Registerer) *APIMetrics {
	m := &APIMetrics{
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		appointmentsBooked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "appointments_booked_total",
			Help:      "Total appointments booked",
		}),
		slotQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "slot_queries_total",
			Help:      "Total availability slot computations",
		}),
		stripeWebhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "praxis",
			Name:      "stripe_webhook_total",
			Help:      "Total Stripe webhook deliveries by event type and outcome",
		}, []string{"event_type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.httpRequests, m.appointmentsBooked, m.slotQueries, m.stripeWebhooks)
	return m
}

// ObserveRequest counts one served HTTP request.
func (m *APIMetrics) ObserveRequest(route, method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
}

// AppointmentsBooked returns the counter bumped per successful booking.
func (m *APIMetrics) AppointmentsBooked() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.appointmentsBooked
}

// SlotQueries returns the counter bumped per slot computation.
func (m *APIMetrics) SlotQueries() prometheus.Counter {
	if m == nil {
		return nil
	}
	return m.slotQueries
}

// StripeWebhooks returns an observer for webhook deliveries.
func (m *APIMetrics) StripeWebhooks() *StripeWebhookCounter {
	if m == nil {
		return nil
	}
	return &StripeWebhookCounter{vec: m.stripeWebhooks}
}

// StripeWebhookCounter counts webhook deliveries by type and outcome.
type StripeWebhookCounter struct {
	vec *prometheus.CounterVec
}

func (c *StripeWebhookCounter) Observe(eventType, status string) {
	if c == nil {
		return
	}
	c.vec.WithLabelValues(eventType, status).Inc()
}
