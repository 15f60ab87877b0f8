package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enrollment outcomes
const (
	OutcomeEnrolled   = "enrolled"
	OutcomeWaitlisted = "waitlisted"
	OutcomeRejected   = "rejected"
)

// Metrics holds the application collectors
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
	EnrollmentOutcomes *prometheus.CounterVec
	WaitlistPromotions prometheus.Counter
	PaymentsRecorded   prometheus.Counter
	InvoicesGenerated  prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "universys",
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "universys",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		EnrollmentOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "universys",
			Name:      "enrollment_attempts_total",
			Help:      "Enrollment attempts by outcome.",
		}, []string{"outcome"}),
		WaitlistPromotions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "universys",
			Name:      "waitlist_promotions_total",
			Help:      "Students promoted from a waitlist into a seat.",
		}),
		PaymentsRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "universys",
			Name:      "payments_recorded_total",
			Help:      "Payments recorded against invoices.",
		}),
		InvoicesGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "universys",
			Name:      "invoices_generated_total",
			Help:      "Term invoices generated.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequests,
		m.HTTPDuration,
		m.EnrollmentOutcomes,
		m.WaitlistPromotions,
		m.PaymentsRecorded,
		m.InvoicesGenerated,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Enrollment counts one enrollment attempt.
func (m *Metrics) Enrollment(outcome string) {
	if m == nil {
		return
	}
	m.EnrollmentOutcomes.WithLabelValues(outcome).Inc()
}

// Promotions counts waitlist promotions.
func (m *Metrics) Promotions(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.WaitlistPromotions.Add(float64(n))
}

// Payment counts one recorded payment.
func (m *Metrics) Payment() {
	if m == nil {
		return
	}
	m.PaymentsRecorded.Inc()
}

// Invoice counts one generated invoice.
func (m *Metrics) Invoice() {
	if m == nil {
		return
	}
	m.InvoicesGenerated.Inc()
}
