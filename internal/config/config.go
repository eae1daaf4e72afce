// Package config provides configuration structures and loading logic for sloscope.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the root configuration structure for the sloscope service.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
	Jaeger     JaegerConfig     `mapstructure:"jaeger"`
	Report     ReportConfig     `mapstructure:"report"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Output     OutputConfig     `mapstructure:"output"`
	SLOs       []SLOConfig      `mapstructure:"slos"`
}

// AppConfig defines application-level settings such as host and port.
type AppConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
}

// PrometheusConfig defines connection and timeout settings for the Prometheus TSDB
// that stores the SLO latency histograms and error counters.
type PrometheusConfig struct {
	URL     string `mapstructure:"url"`
	Timeout string `mapstructure:"timeout"`
}

// JaegerConfig defines connection settings for the Jaeger trace backend.
type JaegerConfig struct {
	URL         string `mapstructure:"url"`
	Timeout     string `mapstructure:"timeout"`
	SearchLimit int    `mapstructure:"search_limit"`
	Lookback    string `mapstructure:"lookback"`
}

// ReportConfig defines settings for the local report archive.
type ReportConfig struct {
	DBPath  string `mapstructure:"db_path"`
	Enabled bool   `mapstructure:"enabled"`
}

// LLMConfig defines the optional narrator provider and its operational parameters.
type LLMConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	Provider    string  `mapstructure:"provider"`
	Model       string  `mapstructure:"model"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	OllamaURL   string  `mapstructure:"ollama_url"`
	OllamaModel string  `mapstructure:"ollama_model"`
	APIKey      string  `mapstructure:"-"`
}

// OutputConfig defines the notification channels for budget-breach reports.
type OutputConfig struct {
	Slack SlackOutputConfig `mapstructure:"slack"`
}

// SlackOutputConfig defines settings for the Slack incoming webhook integration.
type SlackOutputConfig struct {
	WebhookURLEnv string `mapstructure:"webhook_url_env"`
	WebhookURL    string `mapstructure:"-"`
	Enabled       bool   `mapstructure:"enabled"`
}

// SLOConfig is the on-disk shape of one objective definition. Durations are
// strings ("100ms", "5m") and are validated when the catalog is built.
type SLOConfig struct {
	Name          string   `mapstructure:"name"`
	Description   string   `mapstructure:"description"`
	Target        float64  `mapstructure:"target"`
	LatencyTarget string   `mapstructure:"latency_target"`
	ErrorBudget   float64  `mapstructure:"error_budget"`
	Windows       []string `mapstructure:"windows"`
	Endpoints     []string `mapstructure:"endpoints"`
}

// GetTimeoutDuration returns the timeout as a time.Duration
func (c *PrometheusConfig) GetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetTimeoutDuration parses the configured string timeout into a time.Duration.
func (c *JaegerConfig) GetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetLookbackDuration parses the configured trace search lookback into a time.Duration.
func (c *JaegerConfig) GetLookbackDuration() time.Duration {
	d, _ := time.ParseDuration(c.Lookback)
	if d == 0 {
		return 24 * time.Hour
	}
	return d
}

// Load loads configuration from config.yaml or environment variables
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/sloscope")

	// Allow environment variables to override config
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	viper.SetDefault("app.host", "0.0.0.0")
	viper.SetDefault("app.port", 8080)
	viper.SetDefault("app.log_level", "info")
	viper.SetDefault("prometheus.url", "http://localhost:9090")
	viper.SetDefault("prometheus.timeout", "30s")
	viper.SetDefault("jaeger.url", "http://localhost:16686")
	viper.SetDefault("jaeger.timeout", "30s")
	viper.SetDefault("jaeger.search_limit", 20)
	viper.SetDefault("jaeger.lookback", "24h")
	viper.SetDefault("report.db_path", "./data/sloscope.db")
	viper.SetDefault("report.enabled", true)
	viper.SetDefault("llm.enabled", false)
	viper.SetDefault("llm.provider", "openai")
	viper.SetDefault("llm.model", "gpt-4o")
	viper.SetDefault("llm.temperature", 0.1)
	viper.SetDefault("llm.max_tokens", 1000)

	// Read config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.LLM.Enabled && cfg.LLM.Provider != "ollama" {
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	if cfg.Output.Slack.WebhookURLEnv != "" {
		cfg.Output.Slack.WebhookURL = os.Getenv(cfg.Output.Slack.WebhookURLEnv)
	}

	if len(cfg.SLOs) == 0 {
		cfg.SLOs = DefaultSLOs()
	}

	return &cfg, nil
}

// DefaultSLOs returns the built-in objective definitions used when the config
// file does not declare any.
func DefaultSLOs() []SLOConfig {
	return []SLOConfig{
		{
			Name:          "api_health",
			Description:   "API Health endpoint latency",
			Target:        0.95,
			LatencyTarget: "100ms",
			ErrorBudget:   0.05,
			Windows:       []string{"5m", "1h", "24h"},
			Endpoints:     []string{"health_check", "read_root"},
		},
		{
			Name:          "external_data",
			Description:   "External data retrieval latency",
			Target:        0.90,
			LatencyTarget: "300ms",
			ErrorBudget:   0.10,
			Windows:       []string{"5m", "1h", "24h"},
			Endpoints:     []string{"get_external_data"},
		},
		{
			Name:          "data_access",
			Description:   "Database access operations latency",
			Target:        0.95,
			LatencyTarget: "200ms",
			ErrorBudget:   0.05,
			Windows:       []string{"5m", "1h", "24h"},
			Endpoints:     []string{"read_users", "read_items", "create_user", "create_item"},
		},
	}
}

// ProviderType returns the LLM provider type
func (c *LLMConfig) ProviderType() string {
	return strings.ToLower(c.Provider)
}
