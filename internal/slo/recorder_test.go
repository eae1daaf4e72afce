package slo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sloscope/internal/config"
)

type fakeSink struct {
	latencies []float64
	errors    int
}

func (f *fakeSink) ObserveLatency(endpoint, slo string, seconds float64) {
	f.latencies = append(f.latencies, seconds)
}

func (f *fakeSink) IncrementError(endpoint, slo string) {
	f.errors++
}

func newTestRecorder(t *testing.T) (*Recorder, *fakeSink) {
	t.Helper()
	catalog, err := NewCatalog([]config.SLOConfig{validSLOConfig()})
	require.NoError(t, err)
	sink := &fakeSink{}
	return NewRecorder(catalog, sink, nil), sink
}

func TestRecorderRecordsMatchingObservation(t *testing.T) {
	recorder, sink := newTestRecorder(t)

	err := recorder.Record(Observation{
		Endpoint: "health_check",
		SLO:      "api_health",
		Latency:  80 * time.Millisecond,
	})
	require.NoError(t, err)
	require.Len(t, sink.latencies, 1)
	assert.InDelta(t, 0.08, sink.latencies[0], 1e-9)
	assert.Equal(t, 0, sink.errors)
}

func TestRecorderCountsErrors(t *testing.T) {
	recorder, sink := newTestRecorder(t)

	err := recorder.Record(Observation{
		Endpoint: "health_check",
		SLO:      "api_health",
		Latency:  250 * time.Millisecond,
		Err:      true,
	})
	require.NoError(t, err)
	assert.Len(t, sink.latencies, 1)
	assert.Equal(t, 1, sink.errors)
}

func TestRecorderDropsUnknownSLO(t *testing.T) {
	recorder, sink := newTestRecorder(t)

	// Unknown objectives are a normal configuration state, not an error.
	err := recorder.Record(Observation{
		Endpoint: "health_check",
		SLO:      "not_configured",
		Latency:  10 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Empty(t, sink.latencies)
	assert.Equal(t, 0, sink.errors)
}

func TestRecorderDropsUncoveredEndpoint(t *testing.T) {
	recorder, sink := newTestRecorder(t)

	err := recorder.Record(Observation{
		Endpoint: "create_user",
		SLO:      "api_health",
		Latency:  10 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Empty(t, sink.latencies)
}

func TestRecorderRejectsNegativeLatency(t *testing.T) {
	recorder, sink := newTestRecorder(t)

	err := recorder.Record(Observation{
		Endpoint: "health_check",
		SLO:      "api_health",
		Latency:  -1 * time.Millisecond,
	})
	assert.ErrorIs(t, err, ErrInvalidObservation)
	assert.Empty(t, sink.latencies)
}

func TestRecorderZeroLatencyIsValid(t *testing.T) {
	recorder, sink := newTestRecorder(t)

	err := recorder.Record(Observation{
		Endpoint: "health_check",
		SLO:      "api_health",
		Latency:  0,
	})
	require.NoError(t, err)
	assert.Len(t, sink.latencies, 1)
}
