package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/StrathCole/spread-go/pkg/server/sources/cex"
)

// Defaults for optional fields.
const (
	DefaultAsset       = "USDT/USD"
	DefaultInterval    = 15 * time.Second
	DefaultTimeout     = 10 * time.Second
	DefaultBackoff     = 250 * time.Millisecond
	DefaultOverlap     = "skip"
	DefaultHTTPAddr    = ":8080"
	DefaultMetricsAddr = ":9091"
	DefaultMetricsPath = "/metrics"
)

// Load loads configuration from YAML file and environment variables.
func Load(path string) (*Config, error) {
	// Validate and sanitize path
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Parse(data)
}

// Parse parses YAML configuration, expanding ${ENV} references first.
func Parse(data []byte) (*Config, error) {
	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// Default returns the configuration used when no file is given: the
// built-in sources with default settings.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Asset == "" {
		cfg.Asset = DefaultAsset
	}

	// Poll defaults
	if cfg.Poll.Interval == 0 {
		cfg.Poll.Interval = Duration(DefaultInterval)
	}
	if cfg.Poll.Timeout == 0 {
		cfg.Poll.Timeout = Duration(DefaultTimeout)
	}
	if cfg.Poll.Backoff == 0 {
		cfg.Poll.Backoff = Duration(DefaultBackoff)
	}
	if cfg.Poll.Overlap == "" {
		cfg.Poll.Overlap = DefaultOverlap
	}

	// Server defaults
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = DefaultHTTPAddr
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = DefaultMetricsAddr
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	// Built-in sources when none are listed
	if len(cfg.Sources) == 0 {
		for _, b := range cex.Builtins {
			cfg.Sources = append(cfg.Sources, SourceConfig{
				Name:      b.Name,
				Extractor: b.Kind,
				Endpoint:  b.Endpoint,
			})
		}
	}
}

// EnabledSources returns the sources to poll, in configuration order.
func (c *Config) EnabledSources() []SourceConfig {
	out := make([]SourceConfig, 0, len(c.Sources))
	for _, sc := range c.Sources {
		if sc.IsEnabled() {
			out = append(out, sc)
		}
	}
	return out
}
