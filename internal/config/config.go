package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration for the GridSight control plane.
type Config struct {
	Port      int             `yaml:"port"`
	Version   string          `yaml:"version"`
	LogLevel  string          `yaml:"log_level"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Auth      AuthConfig      `yaml:"auth"`
	Data      DataConfig      `yaml:"data"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Summary   SummaryConfig   `yaml:"summary"`
	Notify    NotifyConfig    `yaml:"notify"`
	Intent    IntentConfig    `yaml:"intent"`
}

type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	ServiceName  string  `yaml:"service_name"`
	SampleRatio  float64 `yaml:"sample_ratio"`
}

type AuthConfig struct {
	// Empty disables API key auth.
	APIKeys []string `yaml:"api_keys"`
}

// DataConfig controls the bounded log stores.
type DataConfig struct {
	Dir                string `yaml:"dir"`
	Backend            string `yaml:"backend"` // json, sqlite or memory
	AlertCapacity      int    `yaml:"alert_capacity"`
	SimulationCapacity int    `yaml:"simulation_capacity"`
	MemoryCapacity     int    `yaml:"memory_capacity"`
}

// MetricsConfig points at the artifacts written by the evaluation and
// monitoring jobs.
type MetricsConfig struct {
	ReportPath        string        `yaml:"report_path"`
	DriftPath         string        `yaml:"drift_path"`
	PredictionLogPath string        `yaml:"prediction_log_path"`
	HistoryPath       string        `yaml:"history_path"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	Timeout           time.Duration `yaml:"timeout"`
	RecentLogLimit    int           `yaml:"recent_log_limit"`
	HistoryLimit      int           `yaml:"history_limit"`
}

// SummaryConfig selects the natural-language summary backend.
type SummaryConfig struct {
	Driver   string        `yaml:"driver"` // ollama, openai or disabled
	Endpoint string        `yaml:"endpoint"`
	Model    string        `yaml:"model"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
}

type NotifyConfig struct {
	WebhookURLs []string      `yaml:"webhook_urls"`
	Secret      string        `yaml:"secret"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
}

// IntentConfig replaces keyword sets per agent name.
type IntentConfig struct {
	Keywords map[string][]string `yaml:"keywords"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Port:     8080,
		Version:  "0.4.0",
		LogLevel: "info",
		Telemetry: TelemetryConfig{
			Enabled:      false,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "gridsight-control-plane",
			SampleRatio:  1.0,
		},
		Data: DataConfig{
			Dir:                "data",
			Backend:            "json",
			AlertCapacity:      50,
			SimulationCapacity: 100,
			MemoryCapacity:     10,
		},
		Metrics: MetricsConfig{
			ReportPath:        "artifacts/evaluation_report.json",
			DriftPath:         "artifacts/drift_report.json",
			PredictionLogPath: "logs/prediction_log.jsonl",
			HistoryPath:       "artifacts/metrics_history.json",
			CacheTTL:          30 * time.Second,
			Timeout:           10 * time.Second,
			RecentLogLimit:    5,
			HistoryLimit:      3,
		},
		Summary: SummaryConfig{
			Driver:   "ollama",
			Endpoint: "http://localhost:11434",
			Model:    "mistral",
			Timeout:  90 * time.Second,
		},
		Notify: NotifyConfig{
			Timeout:    15 * time.Second,
			MaxRetries: 3,
		},
	}
}

// Load resolves configuration from defaults, then the YAML file named by
// GRIDSIGHT_CONFIG (if set), then environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("GRIDSIGHT_CONFIG"))
}

// LoadFile is Load with an explicit config file path. An empty path skips
// the file layer.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		k := koanf.New(".")
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config from %q: %w", path, err)
		}
		if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
			return nil, fmt.Errorf("failed to parse config from %q: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Port = envInt("GRIDSIGHT_PORT", cfg.Port)
	cfg.Version = envStr("GRIDSIGHT_VERSION", cfg.Version)
	cfg.LogLevel = envStr("GRIDSIGHT_LOG_LEVEL", cfg.LogLevel)

	cfg.Telemetry.Enabled = envBool("OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.OTLPEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.ServiceName = envStr("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)

	cfg.Auth.APIKeys = envList("GRIDSIGHT_API_KEYS", cfg.Auth.APIKeys)

	cfg.Data.Dir = envStr("GRIDSIGHT_DATA_DIR", cfg.Data.Dir)
	cfg.Data.Backend = envStr("GRIDSIGHT_LOG_BACKEND", cfg.Data.Backend)
	cfg.Data.AlertCapacity = envInt("GRIDSIGHT_ALERT_CAPACITY", cfg.Data.AlertCapacity)
	cfg.Data.SimulationCapacity = envInt("GRIDSIGHT_SIMULATION_CAPACITY", cfg.Data.SimulationCapacity)
	cfg.Data.MemoryCapacity = envInt("GRIDSIGHT_MEMORY_CAPACITY", cfg.Data.MemoryCapacity)

	cfg.Metrics.ReportPath = envStr("GRIDSIGHT_METRICS_REPORT", cfg.Metrics.ReportPath)
	cfg.Metrics.DriftPath = envStr("GRIDSIGHT_DRIFT_REPORT", cfg.Metrics.DriftPath)
	cfg.Metrics.PredictionLogPath = envStr("GRIDSIGHT_PREDICTION_LOG", cfg.Metrics.PredictionLogPath)
	cfg.Metrics.HistoryPath = envStr("GRIDSIGHT_METRICS_HISTORY", cfg.Metrics.HistoryPath)
	cfg.Metrics.CacheTTL = envDuration("GRIDSIGHT_METRICS_CACHE_TTL", cfg.Metrics.CacheTTL)
	cfg.Metrics.Timeout = envDuration("GRIDSIGHT_METRICS_TIMEOUT", cfg.Metrics.Timeout)

	cfg.Summary.Driver = envStr("GRIDSIGHT_SUMMARY_DRIVER", cfg.Summary.Driver)
	cfg.Summary.Endpoint = envStr("GRIDSIGHT_SUMMARY_ENDPOINT", cfg.Summary.Endpoint)
	cfg.Summary.Model = envStr("GRIDSIGHT_SUMMARY_MODEL", cfg.Summary.Model)
	cfg.Summary.APIKey = envStr("GRIDSIGHT_SUMMARY_API_KEY", cfg.Summary.APIKey)
	cfg.Summary.Timeout = envDuration("GRIDSIGHT_SUMMARY_TIMEOUT", cfg.Summary.Timeout)

	cfg.Notify.WebhookURLs = envList("GRIDSIGHT_ALERT_WEBHOOKS", cfg.Notify.WebhookURLs)
	cfg.Notify.Secret = envStr("GRIDSIGHT_ALERT_WEBHOOK_SECRET", cfg.Notify.Secret)
}

// Validate rejects settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Data.Backend {
	case "json", "sqlite", "memory":
	default:
		return fmt.Errorf("data.backend must be json, sqlite or memory, got %q", c.Data.Backend)
	}
	switch c.Summary.Driver {
	case "ollama", "openai", "disabled":
	default:
		return fmt.Errorf("summary.driver must be ollama, openai or disabled, got %q", c.Summary.Driver)
	}
	if c.Data.AlertCapacity <= 0 || c.Data.SimulationCapacity <= 0 || c.Data.MemoryCapacity <= 0 {
		return fmt.Errorf("log capacities must be positive")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0,1], got %v", c.Telemetry.SampleRatio)
	}
	for agent := range c.Intent.Keywords {
		switch agent {
		case "ops_agent", "finance_agent", "risk_agent", "executive_agent":
		default:
			return fmt.Errorf("intent.keywords: unknown agent %q", agent)
		}
	}
	return nil
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// envList splits a comma-separated variable, dropping blanks.
func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
