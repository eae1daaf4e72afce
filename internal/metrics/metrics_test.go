package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sloscope/internal/config"
	"sloscope/internal/slo"
)

func TestObserveLatencyAndErrors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveLatency("health_check", "api_health", 0.05)
	m.ObserveLatency("health_check", "api_health", 0.30)
	m.IncrementError("health_check", "api_health")

	assert.Equal(t, 1, testutil.CollectAndCount(m.latency))
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("health_check", "api_health")), 1e-9)
}

func TestGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.SetCompliance("health_check", "api_health", "5m", 0.93)
	m.SetBudgetRemaining("api_health", "5m", 0.6)

	assert.InDelta(t, 0.93, testutil.ToFloat64(m.compliance.WithLabelValues("health_check", "api_health", "5m")), 1e-9)
	assert.InDelta(t, 0.6, testutil.ToFloat64(m.budgetRemaining.WithLabelValues("api_health", "5m")), 1e-9)

	// Gauge writes are idempotent: repeating the evaluation sets the same value.
	m.SetCompliance("health_check", "api_health", "5m", 0.93)
	assert.InDelta(t, 0.93, testutil.ToFloat64(m.compliance.WithLabelValues("health_check", "api_health", "5m")), 1e-9)
}

func TestInitInfo(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	catalog, err := slo.NewCatalog(config.DefaultSLOs())
	require.NoError(t, err)

	m.InitInfo(catalog)
	assert.Equal(t, 3, testutil.CollectAndCount(m.info))
}
