package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"sloscope/internal/clients/jaeger"
	promclient "sloscope/internal/clients/prometheus"
	"sloscope/internal/config"
	"sloscope/internal/db"
	"sloscope/internal/metrics"
	"sloscope/internal/narrator"
	"sloscope/internal/orchestrator"
	"sloscope/internal/output"
	"sloscope/internal/slo"
	"sloscope/pkg/llm"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	cfg     *config.Config
	srv     *http.Server
	handler *Handler
	archive *db.DB
}

// New creates a new server instance
func New(cfg *config.Config) (*Server, error) {
	catalog, err := slo.NewCatalog(cfg.SLOs)
	if err != nil {
		return nil, fmt.Errorf("failed to build slo catalog: %w", err)
	}

	// In-process collectors scraped via /metrics
	registry := prometheus.NewRegistry()
	sink := metrics.New(registry)
	sink.InitInfo(catalog)

	// External clients
	promClient := promclient.NewClient(cfg.Prometheus.URL, cfg.Prometheus.GetTimeoutDuration())
	jaegerClient := jaeger.NewClient(cfg.Jaeger.URL, cfg.Jaeger.GetTimeoutDuration(), nil)

	recorder := slo.NewRecorder(catalog, sink, nil)
	evaluator := slo.NewEvaluator(catalog, promClient, sink, nil)

	var archive *db.DB
	if cfg.Report.Enabled {
		archive, err = db.New(cfg.Report.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open report archive: %w", err)
		}
		if err := archive.Migrate(); err != nil {
			return nil, fmt.Errorf("failed to migrate report archive: %w", err)
		}
	}

	var notifier orchestrator.Notifier
	if cfg.Output.Slack.Enabled && cfg.Output.Slack.WebhookURL != "" {
		notifier = output.NewSlackSender(cfg.Output.Slack.WebhookURL)
	}

	var nar *narrator.Narrator
	if cfg.LLM.Enabled {
		provider, err := llm.NewProvider(cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM provider: %w", err)
		}
		nar = narrator.New(provider)
	}

	orch := newOrchestrator(catalog, evaluator, promClient, jaegerClient, archive, notifier, nar, cfg)

	// Create handler
	handler := NewHandler(cfg, recorder, orch, nar, registry)

	// Create router
	router := SetupRouter(handler)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		cfg:     cfg,
		srv:     srv,
		handler: handler,
		archive: archive,
	}, nil
}

func newOrchestrator(catalog *slo.Catalog, evaluator *slo.Evaluator, prom *promclient.Client, traces orchestrator.TraceStore, archive *db.DB, notifier orchestrator.Notifier, nar *narrator.Narrator, cfg *config.Config) *orchestrator.Orchestrator {
	// A nil *db.DB must become a nil interface, not a typed nil.
	var arch orchestrator.Archive
	if archive != nil {
		arch = archive
	}
	return orchestrator.New(catalog, evaluator, prom, traces, arch, notifier, nar, cfg)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Server listening on %s", s.srv.Addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() {
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if s.archive != nil {
		if err := s.archive.Close(); err != nil {
			log.Printf("Archive close error: %v", err)
		}
	}

	os.Exit(0)
}
