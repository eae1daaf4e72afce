package slo

import (
	"fmt"
	"log/slog"
	"time"
)

// Observation is a single request's measurement. It is consumed immediately by
// the recorder and never retained; durability belongs to the metrics sink.
type Observation struct {
	Endpoint  string        `json:"endpoint"`
	SLO       string        `json:"slo"`
	Latency   time.Duration `json:"latency"`
	Err       bool          `json:"error"`
	Timestamp time.Time     `json:"timestamp"`
}

// ObservationSink is the write side of the metrics store. Implementations
// must be safe for concurrent use; the recorder only appends to monotonic
// counters and histograms and holds no locks of its own.
type ObservationSink interface {
	ObserveLatency(endpoint, slo string, seconds float64)
	IncrementError(endpoint, slo string)
}

// Recorder filters observations through the catalog and appends matches to
// the metrics sink.
type Recorder struct {
	catalog *Catalog
	sink    ObservationSink
	logger  *slog.Logger
}

// NewRecorder creates a Recorder bound to the given catalog and sink.
func NewRecorder(catalog *Catalog, sink ObservationSink, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		catalog: catalog,
		sink:    sink,
		logger:  logger,
	}
}

// Record writes one observation into the sink. Observations for objectives
// not in the catalog, or for endpoints not wired to the objective, are
// dropped silently so that half-configured objectives do not pollute metrics.
func (r *Recorder) Record(o Observation) error {
	if o.Latency < 0 {
		return fmt.Errorf("%w: negative latency %v", ErrInvalidObservation, o.Latency)
	}

	def, err := r.catalog.Lookup(o.SLO)
	if err != nil {
		r.logger.Debug("dropping observation for unknown slo", "slo", o.SLO, "endpoint", o.Endpoint)
		return nil
	}

	if !def.HasEndpoint(o.Endpoint) {
		r.logger.Debug("endpoint not covered by slo, dropping observation",
			"slo", o.SLO, "endpoint", o.Endpoint)
		return nil
	}

	r.sink.ObserveLatency(o.Endpoint, o.SLO, o.Latency.Seconds())
	if o.Err {
		r.sink.IncrementError(o.Endpoint, o.SLO)
	}

	r.logger.Debug("recorded slo observation",
		"slo", o.SLO,
		"endpoint", o.Endpoint,
		"latency", o.Latency,
		"within_target", o.Latency <= def.LatencyTarget,
	)
	return nil
}
