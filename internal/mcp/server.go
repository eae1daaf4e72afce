// Package mcp binds sloscope functionality to the Model Context Protocol (MCP) server standard.
package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"sloscope/internal/config"
	"sloscope/internal/orchestrator"
	"sloscope/internal/report"
	"sloscope/internal/trace"
)

// Server defines the MCP capability layer, exposing SLO status and trace
// analysis tools to connected AI agents.
type Server struct {
	cfg          *config.Config
	orchestrator *orchestrator.Orchestrator
}

// New creates a new MCP server wrapper
func New(cfg *config.Config, orch *orchestrator.Orchestrator) *Server {
	return &Server{
		cfg:          cfg,
		orchestrator: orch,
	}
}

// RegisterTools registers the sloscope tools with the MCP server
func (s *Server) RegisterTools(mcpServer *server.MCPServer) {
	// 1. SLO Status Tool
	statusTool := mcp.NewTool("get_slo_status",
		mcp.WithDescription("Evaluates compliance and error budget for a service level objective."),
		mcp.WithString("slo_name", mcp.Required(), mcp.Description("Name of the objective, e.g. api_health")),
	)
	mcpServer.AddTool(statusTool, s.HandleGetSLOStatus)

	// 2. Analyze Trace Tool
	analyzeTool := mcp.NewTool("analyze_trace",
		mcp.WithDescription("Fetches a trace by ID and reports duration, critical path, errors and long operations."),
		mcp.WithString("trace_id", mcp.Required(), mcp.Description("Trace identifier from the trace backend")),
	)
	mcpServer.AddTool(analyzeTool, s.HandleAnalyzeTrace)

	// 3. Find Slow Traces Tool
	slowTool := mcp.NewTool("find_slow_traces",
		mcp.WithDescription("Searches recent traces for a service and returns the slowest ones."),
		mcp.WithString("service_name", mcp.Required(), mcp.Description("Name of the service")),
	)
	mcpServer.AddTool(slowTool, s.HandleFindSlowTraces)
}

// HandleGetSLOStatus evaluates one objective across its windows
func (s *Server) HandleGetSLOStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sloName := request.Params.Arguments["slo_name"].(string)

	status, err := s.orchestrator.SLOStatus(ctx, sloName)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to evaluate %s: %v", sloName, err)), nil
	}

	return mcp.NewToolResultText(report.FormatSLOStatus(status)), nil
}

// HandleAnalyzeTrace runs the full trace analysis for one trace ID
func (s *Server) HandleAnalyzeTrace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	traceID := request.Params.Arguments["trace_id"].(string)

	r, err := s.orchestrator.InspectTrace(ctx, traceID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to analyze trace %s: %v", traceID, err)), nil
	}

	return mcp.NewToolResultText(report.FormatTraceSummary(r.Analysis)), nil
}

// HandleFindSlowTraces searches and ranks recent traces by duration
func (s *Server) HandleFindSlowTraces(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	serviceName := request.Params.Arguments["service_name"].(string)

	analyses, err := s.orchestrator.InspectTraces(ctx, orchestrator.TraceQuery{
		Service: serviceName,
		Sort:    trace.SortByDuration,
		Top:     5,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if len(analyses) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No recent traces found for %s.", serviceName)), nil
	}

	out := fmt.Sprintf("Slowest traces for %s:\n", serviceName)
	for i, a := range analyses {
		out += fmt.Sprintf("%d. %s: %.2f ms across %d spans (%d services)\n",
			i+1, a.TraceID, float64(a.TotalDuration.Microseconds())/1000, a.SpanCount, len(a.Services))
	}

	return mcp.NewToolResultText(out), nil
}
