package server

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sloscope/internal/clients/jaeger"
	"sloscope/internal/config"
	"sloscope/internal/narrator"
	"sloscope/internal/orchestrator"
	"sloscope/internal/slo"
	"sloscope/internal/trace"
)

// Handler holds the server dependencies
type Handler struct {
	cfg          *config.Config
	recorder     *slo.Recorder
	orchestrator *orchestrator.Orchestrator
	narrator     *narrator.Narrator
	registry     *prometheus.Registry
}

// NewHandler creates a new handler. narrator may be nil when disabled.
func NewHandler(cfg *config.Config, recorder *slo.Recorder, orch *orchestrator.Orchestrator, nar *narrator.Narrator, registry *prometheus.Registry) *Handler {
	return &Handler{
		cfg:          cfg,
		recorder:     recorder,
		orchestrator: orch,
		narrator:     nar,
		registry:     registry,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/observations", h.HandleObservations)
	r.Get("/slo/status", h.HandleFullStatus)
	r.Get("/slo/{name}/status", h.HandleSLOStatus)
	r.Get("/slo/{name}/history", h.HandleSLOHistory)
	r.Get("/reports/{id}", h.HandleArchivedReport)
	r.Get("/traces/{id}/analysis", h.HandleTraceAnalysis)
	r.Get("/traces/{id}/narrative", h.HandleTraceNarrative)
	r.Get("/traces/analysis", h.HandleTraceSearch)
	r.Get("/health", h.HandleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(h.registry, promhttp.HandlerOpts{}))
}

// observationPayload is the ingest wire shape. Latency arrives in seconds,
// matching what request middleware measures.
type observationPayload struct {
	Endpoint       string  `json:"endpoint"`
	SLO            string  `json:"slo"`
	LatencySeconds float64 `json:"latency_seconds"`
	Error          bool    `json:"error"`
}

// HandleObservations ingests a batch of request observations from the
// serving tier and feeds them to the recorder.
func (h *Handler) HandleObservations(w http.ResponseWriter, r *http.Request) {
	var payload []observationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid observations payload", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if len(payload) == 0 {
		http.Error(w, "No observations in payload", http.StatusBadRequest)
		return
	}

	accepted := 0
	for _, p := range payload {
		obs := slo.Observation{
			Endpoint:  p.Endpoint,
			SLO:       p.SLO,
			Latency:   time.Duration(p.LatencySeconds * float64(time.Second)),
			Err:       p.Error,
			Timestamp: time.Now().UTC(),
		}
		if err := h.recorder.Record(obs); err != nil {
			log.Printf("Rejected observation for %s/%s: %v", p.SLO, p.Endpoint, err)
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		accepted++
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":   "accepted",
		"received": accepted,
	})
}

// HandleFullStatus evaluates every objective across all windows.
func (h *Handler) HandleFullStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.orchestrator.FullStatus(r.Context())
	if err != nil {
		log.Printf("Failed to build full status: %v", err)
		http.Error(w, "Failed to evaluate SLOs", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// HandleSLOStatus evaluates one objective; with ?window= it evaluates a
// single window only.
func (h *Handler) HandleSLOStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	window := r.URL.Query().Get("window")

	if window != "" {
		result, err := h.orchestrator.Evaluate(r.Context(), name, window)
		if err != nil {
			h.writeSLOError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	status, err := h.orchestrator.SLOStatus(r.Context(), name)
	if err != nil {
		h.writeSLOError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// HandleSLOHistory returns archived compliance snapshots for one objective
// and window, newest first.
func (h *Handler) HandleSLOHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	window := r.URL.Query().Get("window")
	if window == "" {
		http.Error(w, "window query parameter is required", http.StatusBadRequest)
		return
	}

	snapshots, err := h.orchestrator.SnapshotHistory(name, window, intQueryParam(r, "limit"))
	if err != nil {
		if errors.Is(err, orchestrator.ErrArchiveDisabled) {
			http.Error(w, err.Error(), http.StatusNotImplemented)
			return
		}
		h.writeSLOError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slo":       name,
		"window":    window,
		"snapshots": snapshots,
	})
}

// HandleArchivedReport loads a previously archived trace report.
func (h *Handler) HandleArchivedReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.orchestrator.ArchivedReport(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, orchestrator.ErrArchiveDisabled) {
			http.Error(w, err.Error(), http.StatusNotImplemented)
			return
		}
		http.Error(w, "Report not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleTraceAnalysis fetches and analyzes one trace by ID.
func (h *Handler) HandleTraceAnalysis(w http.ResponseWriter, r *http.Request) {
	traceID := chi.URLParam(r, "id")

	report, err := h.orchestrator.InspectTrace(r.Context(), traceID)
	if err != nil {
		if errors.Is(err, jaeger.ErrNotFound) {
			http.Error(w, "Trace not found", http.StatusNotFound)
			return
		}
		log.Printf("Failed to analyze trace %s: %v", traceID, err)
		http.Error(w, "Trace backend unavailable", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// HandleTraceNarrative returns an LLM summary of one trace analysis.
func (h *Handler) HandleTraceNarrative(w http.ResponseWriter, r *http.Request) {
	if h.narrator == nil {
		http.Error(w, "Narrator not enabled", http.StatusNotImplemented)
		return
	}

	traceID := chi.URLParam(r, "id")
	report, err := h.orchestrator.InspectTrace(r.Context(), traceID)
	if err != nil {
		if errors.Is(err, jaeger.ErrNotFound) {
			http.Error(w, "Trace not found", http.StatusNotFound)
			return
		}
		http.Error(w, "Trace backend unavailable", http.StatusBadGateway)
		return
	}

	summary, err := h.narrator.NarrateTrace(r.Context(), report.Analysis)
	if err != nil {
		log.Printf("Failed to narrate trace %s: %v", traceID, err)
		http.Error(w, "Narration failed", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"trace_id":  traceID,
		"report_id": report.ID,
		"narrative": summary,
	})
}

// HandleTraceSearch analyzes all traces matching the filter criteria.
func (h *Handler) HandleTraceSearch(w http.ResponseWriter, r *http.Request) {
	q := orchestrator.TraceQuery{
		Service:   r.URL.Query().Get("service"),
		Operation: r.URL.Query().Get("operation"),
		Sort:      trace.SortField(r.URL.Query().Get("sort")),
	}

	if tags := r.URL.Query()["tag"]; len(tags) > 0 {
		q.Tags = make(map[string]string, len(tags))
		for _, t := range tags {
			key, value, ok := strings.Cut(t, "=")
			if !ok {
				http.Error(w, "Invalid tag filter, expected key=value", http.StatusBadRequest)
				return
			}
			q.Tags[key] = value
		}
	}

	if since := r.URL.Query().Get("since"); since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			http.Error(w, "Invalid since duration", http.StatusBadRequest)
			return
		}
		q.Since = d
	}

	q.Limit = intQueryParam(r, "limit")
	q.Top = intQueryParam(r, "top")

	analyses, err := h.orchestrator.InspectTraces(r.Context(), q)
	if err != nil {
		log.Printf("Failed to search traces: %v", err)
		http.Error(w, "Trace backend unavailable", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(analyses),
		"analyses": analyses,
	})
}

// HandleHealth returns health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) writeSLOError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, slo.ErrUnknownSLO):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, slo.ErrInvalidWindow):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Printf("SLO evaluation failed: %v", err)
		http.Error(w, "Metrics backend unavailable", http.StatusBadGateway)
	}
}

func intQueryParam(r *http.Request, name string) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
