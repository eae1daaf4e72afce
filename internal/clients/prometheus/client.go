// Package prometheus wraps the Prometheus HTTP API calls used to read back
// windowed SLO aggregates and latency percentiles.
package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sloscope/internal/slo"
)

// Client wraps Prometheus HTTP API calls
type Client struct {
	baseURL string
	client  *http.Client
	timeout time.Duration
}

// NewClient creates a new Prometheus client
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// QueryResult represents a Prometheus query result
type QueryResult struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string `json:"resultType"`
		Result     []struct {
			Metric map[string]string `json:"metric"`
			Value  []interface{}     `json:"value"`
		} `json:"result"`
	} `json:"data"`
}

// Query executes an instant query and returns the first value
func (c *Client) Query(ctx context.Context, query string) (float64, error) {
	params := url.Values{
		"query": []string{query},
	}

	resp, err := c.doRequest(ctx, "/api/v1/query", params)
	if err != nil {
		return 0, err
	}

	var result QueryResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}

	if result.Status != "success" {
		return 0, fmt.Errorf("query failed: %s", result.Status)
	}

	if len(result.Data.Result) == 0 {
		return 0, nil
	}

	// Get the first value
	if len(result.Data.Result[0].Value) < 2 {
		return 0, nil
	}

	value, ok := result.Data.Result[0].Value[1].(string)
	if !ok {
		return 0, fmt.Errorf("invalid value type")
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse value: %w", err)
	}

	return f, nil
}

// doRequest makes an HTTP request to Prometheus
func (c *Client) doRequest(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	u.Path = path
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// QueryAggregate reads the windowed hit and total counts for an objective.
// Hits come from the histogram bucket at the objective's latency target, so
// the target must align with a configured bucket boundary.
func (c *Client) QueryAggregate(ctx context.Context, def *slo.Definition, window string) (slo.Aggregate, error) {
	le := strconv.FormatFloat(def.LatencyTarget.Seconds(), 'g', -1, 64)

	hitsQuery := fmt.Sprintf(
		`sum(increase(slo_request_latency_seconds_bucket{slo="%s",le="%s"}[%s]))`,
		def.Name, le, window,
	)
	totalQuery := fmt.Sprintf(
		`sum(increase(slo_request_latency_seconds_count{slo="%s"}[%s]))`,
		def.Name, window,
	)

	hits, err := c.Query(ctx, hitsQuery)
	if err != nil {
		return slo.Aggregate{}, fmt.Errorf("querying hits: %w", err)
	}

	total, err := c.Query(ctx, totalQuery)
	if err != nil {
		return slo.Aggregate{}, fmt.Errorf("querying total: %w", err)
	}

	return slo.Aggregate{Hits: hits, Total: total}, nil
}

// QueryLatencyPercentile returns the given latency quantile for an objective
// over the last 5 minutes.
func (c *Client) QueryLatencyPercentile(ctx context.Context, sloName string, quantile float64) (float64, error) {
	query := fmt.Sprintf(
		`histogram_quantile(%g, sum(rate(slo_request_latency_seconds_bucket{slo="%s"}[5m])) by (le))`,
		quantile, sloName,
	)
	return c.Query(ctx, query)
}

// QueryErrorRate returns the windowed error rate for an objective.
func (c *Client) QueryErrorRate(ctx context.Context, sloName, window string) (float64, error) {
	query := fmt.Sprintf(
		`sum(increase(slo_errors_total{slo="%s"}[%s])) / sum(increase(slo_request_latency_seconds_count{slo="%s"}[%s]))`,
		sloName, window, sloName, window,
	)
	return c.Query(ctx, query)
}
