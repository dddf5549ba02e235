package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the reporting core.
type Metrics struct {
	// Aggregation requests by form
	AggregateRequests *prometheus.CounterVec

	// Aggregation latency by form
	AggregateLatency *prometheus.HistogramVec

	// Validation findings emitted, by form
	ValidationErrors *prometheus.CounterVec

	// Report form saves by resulting status
	ReportSaves *prometheus.CounterVec

	// Scope violations rejected
	ScopeViolations prometheus.Counter
}

// New registers all reporting metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		AggregateRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "korgan_reports_aggregate_requests_total",
			Help: "Total report aggregation requests by form",
		}, []string{"form"}),

		AggregateLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "korgan_reports_aggregate_duration_seconds",
			Help:    "Duration of report aggregation by form",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"form"}),

		ValidationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "korgan_reports_validation_errors_total",
			Help: "Total validation findings emitted by form",
		}, []string{"form"}),

		ReportSaves: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "korgan_reports_saves_total",
			Help: "Total report form saves by resulting status",
		}, []string{"status"}),

		ScopeViolations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "korgan_orgscope_violations_total",
			Help: "Total requests rejected for reaching outside the caller's org scope",
		}),
	}
}

// ObserveAggregate records one aggregation call and its duration.
func (m *Metrics) ObserveAggregate(form string, d time.Duration) {
	if m != nil {
		m.AggregateRequests.WithLabelValues(form).Inc()
		m.AggregateLatency.WithLabelValues(form).Observe(d.Seconds())
	}
}

// AddValidationErrors records validation findings for a form.
func (m *Metrics) AddValidationErrors(form string, n int) {
	if m != nil && n > 0 {
		m.ValidationErrors.WithLabelValues(form).Add(float64(n))
	}
}

// IncrementSave records a report form save.
func (m *Metrics) IncrementSave(status string) {
	if m != nil {
		m.ReportSaves.WithLabelValues(status).Inc()
	}
}

// IncrementScopeViolation records a rejected out-of-scope request.
func (m *Metrics) IncrementScopeViolation() {
	if m != nil {
		m.ScopeViolations.Inc()
	}
}
