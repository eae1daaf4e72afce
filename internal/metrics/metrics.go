// Package metrics owns the in-process Prometheus collectors for SLO tracking.
// The recorder appends observations here and the Prometheus server scrapes
// them back out; windowed aggregation happens in the TSDB, not in process.
package metrics

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sloscope/internal/slo"
)

// Metrics is an explicitly owned collector set. Injecting it instead of
// relying on package-level state keeps reset semantics clear in tests.
type Metrics struct {
	latency         *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	compliance      *prometheus.GaugeVec
	budgetRemaining *prometheus.GaugeVec
	info            *prometheus.GaugeVec
}

// New registers the SLO collectors on the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "slo_request_latency_seconds",
			Help:    "Request latency for SLO tracking",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.2, 0.3, 0.5, 1, 2.5, 5, 10},
		}, []string{"endpoint", "slo"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "slo_errors_total",
			Help: "Total number of errors for SLO tracking",
		}, []string{"endpoint", "slo"}),
		compliance: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "slo_compliance_ratio",
			Help: "Compliance with SLO targets",
		}, []string{"endpoint", "slo", "window"}),
		budgetRemaining: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "slo_error_budget_remaining",
			Help: "Remaining error budget for the SLO",
		}, []string{"slo", "window"}),
		info: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "slo_info",
			Help: "Information about defined SLOs",
		}, []string{"name", "description", "target", "latency_target_ms", "error_budget", "windows"}),
	}
}

// ObserveLatency records one request latency sample in seconds.
func (m *Metrics) ObserveLatency(endpoint, sloName string, seconds float64) {
	m.latency.WithLabelValues(endpoint, sloName).Observe(seconds)
}

// IncrementError counts one failed request.
func (m *Metrics) IncrementError(endpoint, sloName string) {
	m.errors.WithLabelValues(endpoint, sloName).Inc()
}

// SetCompliance sets the compliance ratio gauge for one endpoint/window pair.
func (m *Metrics) SetCompliance(endpoint, sloName, window string, ratio float64) {
	m.compliance.WithLabelValues(endpoint, sloName, window).Set(ratio)
}

// SetBudgetRemaining sets the remaining error budget gauge.
func (m *Metrics) SetBudgetRemaining(sloName, window string, remaining float64) {
	m.budgetRemaining.WithLabelValues(sloName, window).Set(remaining)
}

// InitInfo exports the catalog definitions as an info-style metric, one
// constant series per objective.
func (m *Metrics) InitInfo(catalog *slo.Catalog) {
	for _, name := range catalog.Names() {
		def, err := catalog.Lookup(name)
		if err != nil {
			continue
		}
		m.info.WithLabelValues(
			def.Name,
			def.Description,
			fmt.Sprintf("%g", def.Target),
			fmt.Sprintf("%g", float64(def.LatencyTarget.Milliseconds())),
			fmt.Sprintf("%g", def.ErrorBudget),
			strings.Join(def.Windows, ","),
		).Set(1)
	}
}
