// Package orchestrator coordinates the evaluator, the trace backend and the
// report archive into the service-level operations the surfaces expose.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sloscope/internal/clients/jaeger"
	"sloscope/internal/clients/prometheus"
	"sloscope/internal/config"
	"sloscope/internal/db"
	"sloscope/internal/narrator"
	"sloscope/internal/output"
	"sloscope/internal/report"
	"sloscope/internal/slo"
	"sloscope/internal/trace"
)

// TraceStore is the trace backend boundary consumed by the orchestrator.
type TraceStore interface {
	Search(ctx context.Context, q jaeger.Query) ([]trace.Trace, error)
	GetTrace(ctx context.Context, traceID string) (*trace.Trace, error)
}

// Archive persists derived reports and serves them back. Nil-able: archiving
// is best effort and the read side reports ErrArchiveDisabled when absent.
type Archive interface {
	SaveTraceReport(r *report.TraceReport) error
	GetTraceReport(id string) (*report.TraceReport, error)
	SaveComplianceResult(r *slo.ComplianceResult, evaluatedAt time.Time) error
	RecentSnapshots(sloName, window string, limit int) ([]slo.ComplianceResult, error)
}

// ErrArchiveDisabled is returned by archive reads when no archive is configured.
var ErrArchiveDisabled = errors.New("report archive not enabled")

// Notifier receives budget-breach events. narrative may be empty when no
// narrator is configured or narration failed.
type Notifier interface {
	SendBreach(result *slo.ComplianceResult, narrative string) error
}

// TraceQuery is the external filter shape for multi-trace inspection.
type TraceQuery struct {
	Service   string
	Operation string
	Tags      map[string]string
	Since     time.Duration
	Limit     int
	Sort      trace.SortField
	Top       int
}

// Orchestrator wires the core components together.
type Orchestrator struct {
	catalog   *slo.Catalog
	evaluator *slo.Evaluator
	prom      *prometheus.Client
	traces    TraceStore
	archive   Archive
	notifier  Notifier
	narrator  *narrator.Narrator
	cfg       *config.Config
}

// New creates a new orchestrator. archive, notifier and narrator may be nil.
func New(catalog *slo.Catalog, evaluator *slo.Evaluator, prom *prometheus.Client, traces TraceStore, archive Archive, notifier Notifier, nar *narrator.Narrator, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		catalog:   catalog,
		evaluator: evaluator,
		prom:      prom,
		traces:    traces,
		archive:   archive,
		notifier:  notifier,
		narrator:  nar,
		cfg:       cfg,
	}
}

// Evaluate runs a single objective/window evaluation, archiving the snapshot
// and raising a breach notification when the budget goes critical.
func (o *Orchestrator) Evaluate(ctx context.Context, sloName, window string) (*slo.ComplianceResult, error) {
	result, err := o.evaluator.Evaluate(ctx, sloName, window)
	if err != nil {
		return nil, err
	}

	o.archiveResult(result)
	o.notifyIfCritical(result)

	return result, nil
}

// SLOStatus evaluates one objective across all of its windows and attaches
// latency percentiles.
func (o *Orchestrator) SLOStatus(ctx context.Context, sloName string) (*report.SLOStatus, error) {
	def, err := o.catalog.Lookup(sloName)
	if err != nil {
		return nil, err
	}

	status := &report.SLOStatus{
		Name:            def.Name,
		Description:     def.Description,
		Target:          def.Target,
		LatencyTargetMs: float64(def.LatencyTarget.Milliseconds()),
		Compliance:      make(map[string]*slo.ComplianceResult, len(def.Windows)),
		ErrorRates:      make(map[string]float64, len(def.Windows)),
		Percentiles:     make(map[string]float64),
	}

	for _, window := range def.Windows {
		result, err := o.Evaluate(ctx, sloName, window)
		if err != nil {
			log.Printf("Failed to evaluate %s over %s: %v", sloName, window, err)
			continue
		}
		status.Compliance[window] = result

		rate, err := o.prom.QueryErrorRate(ctx, sloName, window)
		if err != nil {
			log.Printf("Failed to query error rate for %s over %s: %v", sloName, window, err)
			continue
		}
		status.ErrorRates[window] = rate
	}

	for _, q := range []struct {
		label string
		value float64
	}{
		{"p50", 0.5}, {"p90", 0.9}, {"p95", 0.95}, {"p99", 0.99},
	} {
		v, err := o.prom.QueryLatencyPercentile(ctx, sloName, q.value)
		if err != nil {
			log.Printf("Failed to query %s latency for %s: %v", q.label, sloName, err)
			continue
		}
		if v > 0 {
			status.Percentiles[q.label] = v
		}
	}

	return status, nil
}

// FullStatus evaluates every objective in the catalog concurrently and
// collects the results into one report.
func (o *Orchestrator) FullStatus(ctx context.Context) (*report.StatusReport, error) {
	names := o.catalog.Names()

	type result struct {
		index  int
		status *report.SLOStatus
		err    error
	}

	resultCh := make(chan result, len(names))
	for i, name := range names {
		go func(i int, name string) {
			status, err := o.SLOStatus(ctx, name)
			resultCh <- result{index: i, status: status, err: err}
		}(i, name)
	}

	statuses := make([]*report.SLOStatus, len(names))
	var aggregatedErr error
	for range names {
		r := <-resultCh
		if r.err != nil {
			log.Printf("Error evaluating slo: %v", r.err)
			aggregatedErr = r.err
			continue
		}
		statuses[r.index] = r.status
	}

	// Drop slots that failed, keeping catalog order for the rest.
	collected := make([]*report.SLOStatus, 0, len(statuses))
	for _, s := range statuses {
		if s != nil {
			collected = append(collected, s)
		}
	}

	if len(collected) == 0 && aggregatedErr != nil {
		return nil, aggregatedErr
	}
	return report.NewStatusReport(collected), nil
}

// InspectTrace fetches one trace, analyzes it and archives the report.
func (o *Orchestrator) InspectTrace(ctx context.Context, traceID string) (*report.TraceReport, error) {
	t, err := o.traces.GetTrace(ctx, traceID)
	if err != nil {
		if errors.Is(err, jaeger.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("fetching trace %s: %w", traceID, err)
	}

	r := report.NewTraceReport(trace.Analyze(*t))

	if o.archive != nil {
		if err := o.archive.SaveTraceReport(r); err != nil {
			log.Printf("Failed to archive trace report %s: %v", r.ID, err)
		}
	}

	return r, nil
}

// InspectTraces searches the trace backend, analyzes every hit and returns
// the analyses sorted by the requested field.
func (o *Orchestrator) InspectTraces(ctx context.Context, q TraceQuery) ([]trace.Analysis, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = o.cfg.Jaeger.SearchLimit
	}
	since := q.Since
	if since <= 0 {
		since = o.cfg.Jaeger.GetLookbackDuration()
	}

	traces, err := o.traces.Search(ctx, jaeger.Query{
		Service:   q.Service,
		Operation: q.Operation,
		Tags:      q.Tags,
		Since:     since,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("searching traces: %w", err)
	}

	analyses := make([]trace.Analysis, 0, len(traces))
	for _, t := range traces {
		analyses = append(analyses, trace.Analyze(t))
	}

	trace.SortAnalyses(analyses, q.Sort)

	if q.Top > 0 && q.Top < len(analyses) {
		analyses = analyses[:q.Top]
	}
	return analyses, nil
}

// ArchivedReport loads a previously archived trace report by its report ID.
func (o *Orchestrator) ArchivedReport(id string) (*report.TraceReport, error) {
	if o.archive == nil {
		return nil, ErrArchiveDisabled
	}
	return o.archive.GetTraceReport(id)
}

// SnapshotHistory returns recent compliance snapshots for one objective and
// window, newest first.
func (o *Orchestrator) SnapshotHistory(sloName, window string, limit int) ([]slo.ComplianceResult, error) {
	if o.archive == nil {
		return nil, ErrArchiveDisabled
	}

	def, err := o.catalog.Lookup(sloName)
	if err != nil {
		return nil, err
	}
	if !def.HasWindow(window) {
		return nil, fmt.Errorf("%w: %q not in windows for slo %s", slo.ErrInvalidWindow, window, sloName)
	}

	if limit <= 0 {
		limit = 50
	}
	return o.archive.RecentSnapshots(sloName, window, limit)
}

func (o *Orchestrator) archiveResult(result *slo.ComplianceResult) {
	if o.archive == nil {
		return
	}
	if err := o.archive.SaveComplianceResult(result, time.Now().UTC()); err != nil {
		log.Printf("Failed to archive compliance snapshot for %s/%s: %v", result.SLO, result.Window, err)
	}
}

func (o *Orchestrator) notifyIfCritical(result *slo.ComplianceResult) {
	if o.notifier == nil || result.Band != slo.BandCritical {
		return
	}

	narrative := ""
	if o.narrator != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		text, err := o.narrator.NarrateBreach(ctx, result)
		if err != nil {
			log.Printf("Failed to narrate breach for %s/%s: %v", result.SLO, result.Window, err)
		} else {
			narrative = text
		}
	}

	if err := o.notifier.SendBreach(result, narrative); err != nil {
		log.Printf("Failed to send breach notification for %s/%s: %v", result.SLO, result.Window, err)
	}
}

// compile-time interface checks against the concrete collaborators
var (
	_ TraceStore = (*jaeger.Client)(nil)
	_ Archive    = (*db.DB)(nil)
	_ Notifier   = (*output.SlackSender)(nil)
)
