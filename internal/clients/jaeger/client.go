// Package jaeger provides a client for fetching raw traces from the Jaeger
// query API. It is a pure I/O boundary: all analysis happens elsewhere.
package jaeger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"sloscope/internal/trace"
)

var (
	// ErrNotFound signals an empty result for a trace lookup. It is an
	// explicit empty-result signal, not a failure of the backend.
	ErrNotFound = errors.New("trace not found")

	// ErrUnavailable signals that the trace backend could not be reached.
	// No retries happen here; retry policy belongs to the caller.
	ErrUnavailable = errors.New("trace backend unavailable")
)

// Client implements HTTP interaction with the Jaeger query API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new Jaeger client
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Query describes a trace search: all fields are optional except that the
// backend requires a service for open-ended searches.
type Query struct {
	Service   string
	Operation string
	Tags      map[string]string
	Since     time.Duration
	Limit     int
}

// searchResult is the Jaeger API response envelope.
type searchResult struct {
	Data []trace.Trace `json:"data"`
}

// doRequest performs the HTTP request against the Jaeger query API.
func (c *Client) doRequest(ctx context.Context, apiPath string, params url.Values) ([]byte, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	u.Path = apiPath
	if params != nil {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return body, nil
}

// Search fetches raw traces matching the query. An empty result is returned
// as an empty slice, not an error.
func (c *Client) Search(ctx context.Context, q Query) ([]trace.Trace, error) {
	params := url.Values{}

	if q.Service != "" {
		params.Set("service", q.Service)
	}
	if q.Operation != "" {
		params.Set("operation", q.Operation)
	}
	if len(q.Tags) > 0 {
		tags, err := json.Marshal(q.Tags)
		if err != nil {
			return nil, fmt.Errorf("failed to encode tags: %w", err)
		}
		params.Set("tags", string(tags))
	}
	if q.Since > 0 {
		// Jaeger expects the window start as microseconds since epoch.
		start := time.Now().Add(-q.Since).UnixMicro()
		params.Set("start", strconv.FormatInt(start, 10))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	params.Set("limit", strconv.Itoa(limit))

	resp, err := c.doRequest(ctx, "/api/traces", params)
	if err != nil {
		c.logger.Error("Failed to search traces", "service", q.Service, "error", err)
		return nil, err
	}

	var result searchResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	return result.Data, nil
}

// GetTrace fetches a single complete trace by its ID. A well-formed response
// with no matching trace yields ErrNotFound.
func (c *Client) GetTrace(ctx context.Context, traceID string) (*trace.Trace, error) {
	resp, err := c.doRequest(ctx, fmt.Sprintf("/api/traces/%s", traceID), nil)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.logger.Error("Failed to fetch trace by ID", "traceID", traceID, "error", err)
		}
		return nil, err
	}

	var result searchResult
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to parse trace response: %w", err)
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, traceID)
	}

	return &result.Data[0], nil
}

// Services lists the service names known to the trace backend.
func (c *Client) Services(ctx context.Context) ([]string, error) {
	resp, err := c.doRequest(ctx, "/api/services", nil)
	if err != nil {
		return nil, err
	}

	var result struct {
		Data []string `json:"data"`
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return nil, fmt.Errorf("failed to parse services response: %w", err)
	}

	return result.Data, nil
}
