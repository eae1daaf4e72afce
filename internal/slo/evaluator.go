package slo

import (
	"context"
	"fmt"
	"log/slog"
)

// HealthBand classifies how much error budget an objective has left.
type HealthBand string

const (
	BandHealthy  HealthBand = "healthy"
	BandWarn     HealthBand = "warn"
	BandCritical HealthBand = "critical"
)

// BandFor maps a remaining-budget fraction onto a health band. Exactly 0.5
// is warn and exactly 0.2 is critical.
func BandFor(budgetRemaining float64) HealthBand {
	switch {
	case budgetRemaining > 0.5:
		return BandHealthy
	case budgetRemaining > 0.2:
		return BandWarn
	default:
		return BandCritical
	}
}

// Aggregate is the windowed hit/total count read back from the metrics store.
// A hit is an observation whose latency was at or under the objective's
// latency target.
type Aggregate struct {
	Hits  float64
	Total float64
}

// AggregateReader is the read side of the metrics store. The read may block
// on network I/O; callers impose their own timeout via ctx.
type AggregateReader interface {
	QueryAggregate(ctx context.Context, def *Definition, window string) (Aggregate, error)
}

// GaugeWriter receives the derived compliance and budget values. Writes are
// idempotent: re-evaluating the same aggregates sets the same gauge values.
type GaugeWriter interface {
	SetCompliance(endpoint, slo, window string, ratio float64)
	SetBudgetRemaining(slo, window string, remaining float64)
}

// ComplianceResult is the outcome of evaluating one objective over one window.
type ComplianceResult struct {
	SLO             string     `json:"slo"`
	Window          string     `json:"window"`
	Endpoints       []string   `json:"endpoints"`
	ComplianceRatio float64    `json:"compliance_ratio"`
	BudgetRemaining float64    `json:"budget_remaining"`
	Band            HealthBand `json:"band"`
}

// MeetingTarget reports whether the compliance ratio is at or above the
// objective's target.
func (r *ComplianceResult) MeetingTarget(def *Definition) bool {
	return r.ComplianceRatio >= def.Target
}

// Evaluator derives compliance ratios and remaining error budget from
// windowed aggregates. The read-derive-write sequence is not transactional;
// observations arriving mid-evaluation are picked up by the next pass.
type Evaluator struct {
	catalog *Catalog
	reader  AggregateReader
	gauges  GaugeWriter
	logger  *slog.Logger
}

// NewEvaluator creates an Evaluator. gauges may be nil when the caller only
// wants the derived result without emitting it.
func NewEvaluator(catalog *Catalog, reader AggregateReader, gauges GaugeWriter, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		catalog: catalog,
		reader:  reader,
		gauges:  gauges,
		logger:  logger,
	}
}

// Evaluate computes the compliance result for one objective and window and
// emits the compliance and budget gauges.
//
// Policy: a window with no traffic (total == 0) counts as fully compliant.
func (e *Evaluator) Evaluate(ctx context.Context, sloName, window string) (*ComplianceResult, error) {
	def, err := e.catalog.Lookup(sloName)
	if err != nil {
		return nil, err
	}
	if !def.HasWindow(window) {
		return nil, fmt.Errorf("%w: %q not in windows for slo %s", ErrInvalidWindow, window, sloName)
	}

	agg, err := e.reader.QueryAggregate(ctx, def, window)
	if err != nil {
		return nil, fmt.Errorf("querying aggregate for slo %s window %s: %w", sloName, window, err)
	}

	ratio := 1.0
	if agg.Total > 0 {
		ratio = agg.Hits / agg.Total
	}

	remaining := budgetRemaining(ratio, def.Target, def.ErrorBudget)

	result := &ComplianceResult{
		SLO:             sloName,
		Window:          window,
		Endpoints:       def.Endpoints,
		ComplianceRatio: ratio,
		BudgetRemaining: remaining,
		Band:            BandFor(remaining),
	}

	if e.gauges != nil {
		for _, endpoint := range def.Endpoints {
			e.gauges.SetCompliance(endpoint, sloName, window, ratio)
		}
		e.gauges.SetBudgetRemaining(sloName, window, remaining)
	}

	if remaining < 0.2 {
		e.logger.Warn("slo error budget critically low",
			"slo", sloName, "window", window, "budget_remaining", remaining)
	} else if remaining < 0.5 {
		e.logger.Info("slo error budget below 50%",
			"slo", sloName, "window", window, "budget_remaining", remaining)
	}

	return result, nil
}

// budgetRemaining converts a compliance shortfall into the remaining fraction
// of error budget. A ratio at or above target leaves the full budget. A
// shortfall consumes budget proportionally: with target 0.95 and budget 0.05,
// a 0.93 ratio has used (0.95-0.93)/0.05 = 40% of the budget.
func budgetRemaining(ratio, target, budget float64) float64 {
	if ratio >= target {
		return 1.0
	}
	used := (target - ratio) / budget
	if used > 1 {
		used = 1
	}
	if used < 0 {
		used = 0
	}
	remaining := 1 - used
	// (target-ratio)/budget carries float residue when the budget is exactly
	// exhausted ((0.95-0.90)/0.05 is 0.9999999999999987); snap it to zero.
	if remaining < 1e-9 {
		return 0
	}
	return remaining
}
