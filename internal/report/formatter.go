// Package report renders evaluator and analyzer output into summary
// structures and plain-text reports.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"sloscope/internal/slo"
	"sloscope/internal/trace"
)

// TraceReport wraps one trace analysis with a report identity.
type TraceReport struct {
	ID          string         `json:"id"`
	GeneratedAt time.Time      `json:"generated_at"`
	Analysis    trace.Analysis `json:"analysis"`
}

// SLOStatus is the evaluated state of one objective across its windows.
type SLOStatus struct {
	Name            string                           `json:"name"`
	Description     string                           `json:"description"`
	Target          float64                          `json:"target"`
	LatencyTargetMs float64                          `json:"latency_target_ms"`
	Compliance      map[string]*slo.ComplianceResult `json:"compliance"`
	ErrorRates      map[string]float64               `json:"error_rates,omitempty"`
	Percentiles     map[string]float64               `json:"latency_percentiles,omitempty"`
}

// StatusReport is the full catalog status at one point in time.
type StatusReport struct {
	ID          string       `json:"id"`
	GeneratedAt time.Time    `json:"generated_at"`
	SLOs        []*SLOStatus `json:"slos"`
}

// NewTraceReport assigns identity to an analysis.
func NewTraceReport(a trace.Analysis) *TraceReport {
	return &TraceReport{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		Analysis:    a,
	}
}

// NewStatusReport assigns identity to a set of SLO statuses.
func NewStatusReport(slos []*SLOStatus) *StatusReport {
	return &StatusReport{
		ID:          uuid.New().String(),
		GeneratedAt: time.Now().UTC(),
		SLOs:        slos,
	}
}

// FormatTraceSummary renders a plain-text summary of one trace analysis:
// header, per-service time contribution, errors, top long operations and the
// critical path.
func FormatTraceSummary(a trace.Analysis) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Trace ID: %s\n", a.TraceID)
	fmt.Fprintf(&b, "Duration: %.2f ms\n", toMillis(a.TotalDuration))
	fmt.Fprintf(&b, "Spans: %d\n", a.SpanCount)
	fmt.Fprintf(&b, "Services: %s\n", strings.Join(a.Services, ", "))

	b.WriteString("\nService Time Contribution:\n")
	totalMs := toMillis(a.TotalDuration)
	for _, svc := range servicesByDuration(a.ServiceDurations) {
		durMs := toMillis(a.ServiceDurations[svc])
		pct := 0.0
		if totalMs > 0 {
			pct = durMs / totalMs * 100
		}
		fmt.Fprintf(&b, "  %s: %.2f ms (%.1f%%)\n", svc, durMs, pct)
	}

	if len(a.Errors) > 0 {
		b.WriteString("\nErrors:\n")
		for _, e := range a.Errors {
			fmt.Fprintf(&b, "  %s - %s (%.2f ms)\n", e.Service, e.Operation, toMillis(e.Duration))
		}
	}

	b.WriteString("\nLong Operations (>100ms):\n")
	for i, op := range a.LongOperations {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "  %s - %s: %.2f ms\n", op.Service, op.Operation, toMillis(op.Duration))
	}

	b.WriteString("\nCritical Path:\n")
	for i, seg := range a.CriticalPath {
		fmt.Fprintf(&b, "  %d. %s - %s: %.2f ms\n", i+1, seg.Service, seg.Operation, toMillis(seg.Duration))
	}

	return b.String()
}

// FormatSLOStatus renders a plain-text summary of one objective's status.
func FormatSLOStatus(s *SLOStatus) string {
	var b strings.Builder

	fmt.Fprintf(&b, "SLO: %s - %s\n", s.Name, s.Description)
	fmt.Fprintf(&b, "Target: %.1f%% of requests under %.0fms\n", s.Target*100, s.LatencyTargetMs)

	for _, window := range sortedWindows(s.Compliance) {
		r := s.Compliance[window]
		fmt.Fprintf(&b, "Compliance (%s): %.2f%% (Target: %.1f%%)\n",
			window, r.ComplianceRatio*100, s.Target*100)
	}
	for _, window := range sortedWindows(s.Compliance) {
		r := s.Compliance[window]
		fmt.Fprintf(&b, "Error Budget (%s): %.2f%% remaining [%s]\n",
			window, r.BudgetRemaining*100, r.Band)
	}

	for _, window := range sortedWindows(s.Compliance) {
		if rate, ok := s.ErrorRates[window]; ok {
			fmt.Fprintf(&b, "Error Rate (%s): %.2f%%\n", window, rate*100)
		}
	}

	for _, p := range []string{"p50", "p90", "p95", "p99"} {
		if v, ok := s.Percentiles[p]; ok {
			fmt.Fprintf(&b, "Latency %s: %.2fms\n", p, v*1000)
		}
	}

	return b.String()
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func servicesByDuration(durations map[string]time.Duration) []string {
	services := make([]string, 0, len(durations))
	for svc := range durations {
		services = append(services, svc)
	}
	sort.SliceStable(services, func(i, j int) bool {
		if durations[services[i]] != durations[services[j]] {
			return durations[services[i]] > durations[services[j]]
		}
		return services[i] < services[j]
	})
	return services
}

func sortedWindows(compliance map[string]*slo.ComplianceResult) []string {
	windows := make([]string, 0, len(compliance))
	for w := range compliance {
		windows = append(windows, w)
	}
	sort.SliceStable(windows, func(i, j int) bool {
		di, _ := time.ParseDuration(windows[i])
		dj, _ := time.ParseDuration(windows[j])
		return di < dj
	})
	return windows
}
