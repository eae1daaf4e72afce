package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sloscope/internal/clients/jaeger"
	"sloscope/internal/clients/prometheus"
	"sloscope/internal/config"
	"sloscope/internal/metrics"
	"sloscope/internal/orchestrator"
	"sloscope/internal/slo"
)

// newPromBackend mocks the Prometheus query API with fixed hit/total counts.
func newPromBackend(t *testing.T, hits, total float64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		value := fmt.Sprintf("%g", total)
		switch {
		// Percentile queries also contain "_bucket"; match them first.
		case strings.Contains(query, "histogram_quantile"):
			value = "0.085"
		case strings.Contains(query, "_bucket"):
			value = fmt.Sprintf("%g", hits)
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{
			"status": "success",
			"data": {
				"resultType": "vector",
				"result": [{"metric": {}, "value": [1234567890, "%s"]}]
			}
		}`, value)
	}))
}

// newJaegerBackend mocks the Jaeger query API with one known trace.
func newJaegerBackend(t *testing.T) *httptest.Server {
	t.Helper()
	traceBody := `{
		"data": [{
			"traceID": "trace-abc",
			"spans": [
				{"spanID": "s1", "operationName": "read_users", "processID": "p1", "startTime": 0, "duration": 150000,
				 "tags": [{"key": "error", "type": "string", "value": "true"}]}
			],
			"processes": {"p1": {"serviceName": "api"}}
		}]
	}`

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/api/traces/trace-abc":
			io.WriteString(w, traceBody)
		case strings.HasPrefix(r.URL.Path, "/api/traces/"):
			io.WriteString(w, `{"data": []}`)
		case r.URL.Path == "/api/traces":
			io.WriteString(w, traceBody)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	promBackend := newPromBackend(t, 930, 1000)
	t.Cleanup(promBackend.Close)
	jaegerBackend := newJaegerBackend(t)
	t.Cleanup(jaegerBackend.Close)

	cfg := &config.Config{
		Jaeger: config.JaegerConfig{URL: jaegerBackend.URL, SearchLimit: 20, Lookback: "24h"},
		SLOs:   config.DefaultSLOs(),
	}

	catalog, err := slo.NewCatalog(cfg.SLOs)
	require.NoError(t, err)

	registry := promclient.NewRegistry()
	m := metrics.New(registry)
	m.InitInfo(catalog)

	recorder := slo.NewRecorder(catalog, m, nil)
	promClient := prometheus.NewClient(promBackend.URL, 10*time.Second)
	jaegerClient := jaeger.NewClient(jaegerBackend.URL, 10*time.Second, nil)
	evaluator := slo.NewEvaluator(catalog, promClient, m, nil)
	orch := orchestrator.New(catalog, evaluator, promClient, jaegerClient, nil, nil, nil, cfg)

	handler := NewHandler(cfg, recorder, orch, nil, registry)
	server := httptest.NewServer(SetupRouter(handler))
	t.Cleanup(server.Close)
	return server
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestHandleObservations(t *testing.T) {
	server := newTestServer(t)

	payload := `[
		{"endpoint": "health_check", "slo": "api_health", "latency_seconds": 0.05, "error": false},
		{"endpoint": "read_users", "slo": "data_access", "latency_seconds": 0.3, "error": true}
	]`
	resp, err := http.Post(server.URL+"/observations", "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "accepted", body["status"])
	assert.Equal(t, float64(2), body["received"])
}

func TestHandleObservationsRejectsBadPayloads(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name    string
		payload string
	}{
		{"invalid json", `{not json`},
		{"empty batch", `[]`},
		{"negative latency", `[{"endpoint": "health_check", "slo": "api_health", "latency_seconds": -0.5}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(server.URL+"/observations", "application/json", bytes.NewBufferString(tt.payload))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestHandleSLOStatusSingleWindow(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/slo/api_health/status?window=5m")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result slo.ComplianceResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	assert.Equal(t, "api_health", result.SLO)
	assert.Equal(t, "5m", result.Window)
	assert.InDelta(t, 0.93, result.ComplianceRatio, 1e-9)
	assert.InDelta(t, 0.6, result.BudgetRemaining, 1e-9)
	assert.Equal(t, slo.BandHealthy, result.Band)
}

func TestHandleSLOStatusAllWindows(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/slo/api_health/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		Name       string                           `json:"name"`
		Compliance map[string]*slo.ComplianceResult `json:"compliance"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "api_health", status.Name)
	assert.Len(t, status.Compliance, 3)
}

func TestHandleSLOStatusErrors(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		expected int
	}{
		{"unknown slo", "/slo/no_such_slo/status", http.StatusNotFound},
		{"unknown slo with window", "/slo/no_such_slo/status?window=5m", http.StatusNotFound},
		{"invalid window", "/slo/api_health/status?window=7d", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.expected, resp.StatusCode)
		})
	}
}

func TestHandleFullStatus(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/slo/status")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status struct {
		ID   string `json:"id"`
		SLOs []struct {
			Name string `json:"name"`
		} `json:"slos"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.NotEmpty(t, status.ID)
	require.Len(t, status.SLOs, 3)
	assert.Equal(t, "api_health", status.SLOs[0].Name)
}

func TestHandleTraceAnalysis(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/traces/trace-abc/analysis")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var report struct {
		ID       string `json:"id"`
		Analysis struct {
			TraceID   string   `json:"trace_id"`
			SpanCount int      `json:"span_count"`
			Services  []string `json:"services"`
		} `json:"analysis"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.NotEmpty(t, report.ID)
	assert.Equal(t, "trace-abc", report.Analysis.TraceID)
	assert.Equal(t, 1, report.Analysis.SpanCount)
	assert.Equal(t, []string{"api"}, report.Analysis.Services)
}

func TestHandleTraceAnalysisNotFound(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/traces/missing/analysis")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestArchiveEndpointsDisabled(t *testing.T) {
	// The test server runs without a report archive.
	server := newTestServer(t)

	for _, path := range []string{
		"/slo/api_health/history?window=5m",
		"/reports/some-report-id",
	} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusNotImplemented, resp.StatusCode, path)
	}
}

func TestHandleSLOHistoryRequiresWindow(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/slo/api_health/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleTraceNarrativeDisabled(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/traces/trace-abc/narrative")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestHandleTraceSearch(t *testing.T) {
	server := newTestServer(t)

	resp, err := http.Get(server.URL + "/traces/analysis?service=api&sort=duration&top=1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count    int `json:"count"`
		Analyses []struct {
			TraceID string `json:"trace_id"`
		} `json:"analyses"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Analyses, 1)
	assert.Equal(t, "trace-abc", body.Analyses[0].TraceID)
}

func TestHandleTraceSearchBadFilters(t *testing.T) {
	server := newTestServer(t)

	tests := []struct {
		name string
		path string
	}{
		{"malformed tag", "/traces/analysis?tag=error"},
		{"malformed since", "/traces/analysis?since=yesterday"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(server.URL + tt.path)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(t)

	// Record an observation so the scrape has series to show.
	payload := `[{"endpoint": "health_check", "slo": "api_health", "latency_seconds": 0.05}]`
	resp, err := http.Post(server.URL+"/observations", "application/json", bytes.NewBufferString(payload))
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "slo_request_latency_seconds")
	assert.Contains(t, string(body), "slo_info")
}
