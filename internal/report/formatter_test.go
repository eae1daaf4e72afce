package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sloscope/internal/slo"
	"sloscope/internal/trace"
)

func sampleAnalysis() trace.Analysis {
	return trace.Analysis{
		TraceID:       "trace-42",
		SpanCount:     3,
		TotalDuration: 250 * time.Millisecond,
		Services:      []string{"api", "db"},
		ServiceDurations: map[string]time.Duration{
			"api": 250 * time.Millisecond,
			"db":  120 * time.Millisecond,
		},
		CriticalPath: []trace.PathSegment{
			{Service: "api", Operation: "handle_request", Duration: 250 * time.Millisecond, Start: 0, End: 250_000},
		},
		Errors: []trace.ErrorSpan{
			{Service: "db", Operation: "insert", Duration: 30 * time.Millisecond},
		},
		LongOperations: []trace.LongOperation{
			{Service: "api", Operation: "handle_request", Duration: 250 * time.Millisecond},
			{Service: "db", Operation: "query", Duration: 120 * time.Millisecond},
		},
	}
}

func TestNewTraceReportAssignsIdentity(t *testing.T) {
	r := NewTraceReport(sampleAnalysis())

	assert.NotEmpty(t, r.ID)
	assert.False(t, r.GeneratedAt.IsZero())
	assert.Equal(t, "trace-42", r.Analysis.TraceID)

	other := NewTraceReport(sampleAnalysis())
	assert.NotEqual(t, r.ID, other.ID)
}

func TestFormatTraceSummary(t *testing.T) {
	out := FormatTraceSummary(sampleAnalysis())

	assert.Contains(t, out, "Trace ID: trace-42")
	assert.Contains(t, out, "Duration: 250.00 ms")
	assert.Contains(t, out, "Spans: 3")
	assert.Contains(t, out, "Services: api, db")
	assert.Contains(t, out, "api: 250.00 ms (100.0%)")
	assert.Contains(t, out, "db - insert (30.00 ms)")
	assert.Contains(t, out, "1. api - handle_request: 250.00 ms")

	// Largest contributor listed first.
	assert.Less(t, strings.Index(out, "api: 250.00"), strings.Index(out, "db: 120.00"))
}

func TestFormatTraceSummaryEmptyTrace(t *testing.T) {
	out := FormatTraceSummary(trace.Analysis{TraceID: "empty"})
	assert.Contains(t, out, "Trace ID: empty")
	assert.Contains(t, out, "Duration: 0.00 ms")
	assert.NotContains(t, out, "Errors:")
}

func TestFormatSLOStatus(t *testing.T) {
	status := &SLOStatus{
		Name:            "api_health",
		Description:     "API Health endpoint latency",
		Target:          0.95,
		LatencyTargetMs: 100,
		Compliance: map[string]*slo.ComplianceResult{
			"1h": {SLO: "api_health", Window: "1h", ComplianceRatio: 0.99, BudgetRemaining: 1.0, Band: slo.BandHealthy},
			"5m": {SLO: "api_health", Window: "5m", ComplianceRatio: 0.93, BudgetRemaining: 0.6, Band: slo.BandHealthy},
		},
		ErrorRates:  map[string]float64{"5m": 0.012},
		Percentiles: map[string]float64{"p99": 0.085},
	}

	out := FormatSLOStatus(status)

	assert.Contains(t, out, "SLO: api_health - API Health endpoint latency")
	assert.Contains(t, out, "Target: 95.0% of requests under 100ms")
	assert.Contains(t, out, "Compliance (5m): 93.00% (Target: 95.0%)")
	assert.Contains(t, out, "Error Budget (5m): 60.00% remaining [healthy]")
	assert.Contains(t, out, "Error Rate (5m): 1.20%")
	assert.Contains(t, out, "Latency p99: 85.00ms")

	// Windows come out shortest first.
	require.Less(t, strings.Index(out, "Compliance (5m)"), strings.Index(out, "Compliance (1h)"))
}
