// Package output dispatches budget-breach notifications to external channels.
package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"sloscope/internal/slo"
)

// SlackSender handles the dispatch of budget-breach notifications to a Slack webhook.
type SlackSender struct {
	webhookURL string
	client     *http.Client
}

// NewSlackSender initializes a SlackSender with a configured webhook URL and HTTP client.
func NewSlackSender(webhookURL string) *SlackSender {
	return &SlackSender{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// SlackBlock represents a Slack message block
type SlackBlock struct {
	Type   string       `json:"type"`
	Text   *SlackText   `json:"text,omitempty"`
	Fields []SlackField `json:"fields,omitempty"`
}

// SlackText represents text in Slack
type SlackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlackField represents a field in Slack
type SlackField struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// SlackMessage represents a Slack message
type SlackMessage struct {
	Blocks []SlackBlock `json:"blocks"`
}

// SendBreach notifies the channel that an objective's error budget entered
// the critical band for a window. narrative is an optional prose summary
// appended to the message when non-empty.
func (s *SlackSender) SendBreach(result *slo.ComplianceResult, narrative string) error {
	if s.webhookURL == "" {
		return fmt.Errorf("slack webhook URL not configured")
	}

	message := s.buildBreachMessage(result, narrative)
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, s.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack returned status: %d", resp.StatusCode)
	}

	return nil
}

// buildBreachMessage constructs a block kit payload from a compliance result.
func (s *SlackSender) buildBreachMessage(result *slo.ComplianceResult, narrative string) SlackMessage {
	emoji := "⚠️"
	if result.Band == slo.BandCritical {
		emoji = "🚨"
	}

	blocks := []SlackBlock{
		{
			Type: "header",
			Text: &SlackText{
				Type: "plain_text",
				Text: fmt.Sprintf("%s SLO budget breach: %s (%s)", emoji, result.SLO, result.Window),
			},
		},
		{
			Type: "section",
			Fields: []SlackField{
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Compliance:*\n%.2f%%", result.ComplianceRatio*100),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Budget remaining:*\n%.2f%%", result.BudgetRemaining*100),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Band:*\n%s", result.Band),
				},
				{
					Type: "mrkdwn",
					Text: fmt.Sprintf("*Window:*\n%s", result.Window),
				},
			},
		},
	}

	if narrative != "" {
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackText{
				Type: "mrkdwn",
				Text: narrative,
			},
		})
	}

	return SlackMessage{Blocks: blocks}
}
