package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSLOs(t *testing.T) {
	slos := DefaultSLOs()
	require.Len(t, slos, 3)

	byName := make(map[string]SLOConfig, len(slos))
	for _, s := range slos {
		byName[s.Name] = s
	}

	api, ok := byName["api_health"]
	require.True(t, ok)
	assert.Equal(t, 0.95, api.Target)
	assert.Equal(t, "100ms", api.LatencyTarget)
	assert.Equal(t, 0.05, api.ErrorBudget)
	assert.Equal(t, []string{"5m", "1h", "24h"}, api.Windows)
	assert.Contains(t, api.Endpoints, "health_check")
	assert.Contains(t, api.Endpoints, "read_root")

	external, ok := byName["external_data"]
	require.True(t, ok)
	assert.Equal(t, 0.90, external.Target)
	assert.Equal(t, "300ms", external.LatencyTarget)
	assert.Equal(t, 0.10, external.ErrorBudget)

	data, ok := byName["data_access"]
	require.True(t, ok)
	assert.Equal(t, "200ms", data.LatencyTarget)
	assert.Len(t, data.Endpoints, 4)
}

func TestPrometheusTimeoutDuration(t *testing.T) {
	tests := []struct {
		name     string
		timeout  string
		expected time.Duration
	}{
		{"configured", "10s", 10 * time.Second},
		{"empty falls back", "", 30 * time.Second},
		{"unparseable falls back", "soon", 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := PrometheusConfig{Timeout: tt.timeout}
			assert.Equal(t, tt.expected, c.GetTimeoutDuration())
		})
	}
}

func TestJaegerDurations(t *testing.T) {
	c := JaegerConfig{Timeout: "5s", Lookback: "1h"}
	assert.Equal(t, 5*time.Second, c.GetTimeoutDuration())
	assert.Equal(t, time.Hour, c.GetLookbackDuration())

	empty := JaegerConfig{}
	assert.Equal(t, 30*time.Second, empty.GetTimeoutDuration())
	assert.Equal(t, 24*time.Hour, empty.GetLookbackDuration())
}

func TestLLMProviderType(t *testing.T) {
	c := LLMConfig{Provider: "OpenAI"}
	assert.Equal(t, "openai", c.ProviderType())

	c.Provider = "ollama"
	assert.Equal(t, "ollama", c.ProviderType())
}
