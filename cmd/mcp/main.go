// Package main provides the entry point for the sloscope MCP (Model Context Protocol) server.
package main

import (
	"log"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"sloscope/internal/clients/jaeger"
	promclient "sloscope/internal/clients/prometheus"
	"sloscope/internal/config"
	mcpsrv "sloscope/internal/mcp"
	"sloscope/internal/orchestrator"
	"sloscope/internal/slo"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	catalog, err := slo.NewCatalog(cfg.SLOs)
	if err != nil {
		log.Fatalf("Failed to build slo catalog: %v", err)
	}

	// Initialize the minimal set of clients required to run the MCP tools.
	// The MCP surface is read-only: no sink, no archive, no notifier.
	promClient := promclient.NewClient(cfg.Prometheus.URL, cfg.Prometheus.GetTimeoutDuration())
	jaegerClient := jaeger.NewClient(cfg.Jaeger.URL, cfg.Jaeger.GetTimeoutDuration(), nil)

	evaluator := slo.NewEvaluator(catalog, promClient, nil, nil)
	orch := orchestrator.New(catalog, evaluator, promClient, jaegerClient, nil, nil, nil, cfg)

	// Initialize the core MCP server instance.
	s := server.NewMCPServer(
		"sloscope-mcp",
		"1.0.0",
	)

	// Bind sloscope tools (SLO status, trace analysis) to the MCP server.
	wrapper := mcpsrv.New(cfg, orch)
	wrapper.RegisterTools(s)

	slog.Info("sloscope MCP Server listening on stdio...")
	// Start serving the MCP protocol over standard input/output streams.
	if err := server.ServeStdio(s); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}
