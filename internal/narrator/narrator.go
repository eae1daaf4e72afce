// Package narrator produces optional natural-language summaries of SLO and
// trace reports via a configured LLM provider.
package narrator

import (
	"context"
	"fmt"
	"strings"

	"sloscope/internal/report"
	"sloscope/internal/slo"
	"sloscope/internal/trace"
	"sloscope/pkg/llm"
)

// Narrator turns structured reports into short prose summaries.
type Narrator struct {
	provider llm.Provider
}

// New initializes a Narrator with the given LLM provider.
func New(provider llm.Provider) *Narrator {
	return &Narrator{
		provider: provider,
	}
}

// NarrateTrace summarizes one trace analysis.
func (n *Narrator) NarrateTrace(ctx context.Context, a trace.Analysis) (string, error) {
	prompt := buildTracePrompt(a)

	response, err := n.provider.Summarize(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("LLM narration failed: %w", err)
	}

	return response, nil
}

// NarrateBreach summarizes a budget breach for a notification or report.
func (n *Narrator) NarrateBreach(ctx context.Context, result *slo.ComplianceResult) (string, error) {
	prompt := fmt.Sprintf(`
An SLO error budget has entered the %s band.

SLO: %s
Window: %s
Compliance: %.2f%%
Budget remaining: %.2f%%
Endpoints: %s

Explain in 2-3 sentences what this means for the service and what an
on-call engineer should check first.
`,
		result.Band,
		result.SLO,
		result.Window,
		result.ComplianceRatio*100,
		result.BudgetRemaining*100,
		strings.Join(result.Endpoints, ", "),
	)

	response, err := n.provider.Summarize(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("LLM narration failed: %w", err)
	}

	return response, nil
}

// buildTracePrompt embeds the plain-text trace summary in a narration prompt.
func buildTracePrompt(a trace.Analysis) string {
	return fmt.Sprintf(`
You are an SRE reviewing a distributed trace. Summarize the findings below in
3-4 sentences: the dominant latency contributors, any errors, and whether the
critical path suggests sequential or parallel work.

%s
`, report.FormatTraceSummary(a))
}
