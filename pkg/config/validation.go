package config

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/StrathCole/spread-go/pkg/server/sources"
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if err := sources.ValidateSymbolFormat(cfg.Asset); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidAsset, err)
	}

	if err := validatePollConfig(&cfg.Poll); err != nil {
		return fmt.Errorf("poll config: %w", err)
	}

	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	enabled := cfg.EnabledSources()
	if len(enabled) == 0 {
		return fmt.Errorf("%w", ErrNoSourcesEnabled)
	}
	seen := make(map[string]bool, len(enabled))
	for i, source := range enabled {
		if err := validateSourceConfig(&source); err != nil {
			return fmt.Errorf("source %d (%s): %w", i, source.Name, err)
		}
		if seen[source.Name] {
			return fmt.Errorf("%w: %s", ErrDuplicateSourceName, source.Name)
		}
		seen[source.Name] = true
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("%w: %s", ErrInvalidMetricsPath, cfg.Metrics.Path)
	}

	// Validate logging config
	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validatePollConfig(cfg *PollConfig) error {
	if cfg.Interval.ToDuration() < time.Second {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, cfg.Interval.ToDuration())
	}
	if cfg.Interval.ToDuration()%time.Second != 0 {
		return fmt.Errorf("%w: %s (must be whole seconds)", ErrInvalidInterval, cfg.Interval.ToDuration())
	}
	if cfg.Timeout.ToDuration() <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, cfg.Timeout.ToDuration())
	}
	if cfg.Retries < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidRetries, cfg.Retries)
	}
	if cfg.Concurrency < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidConcurrency, cfg.Concurrency)
	}

	overlap := strings.ToLower(cfg.Overlap)
	if overlap != "skip" && overlap != "allow" {
		return fmt.Errorf("%w: %s (must be 'skip' or 'allow')", ErrInvalidOverlap, cfg.Overlap)
	}
	cfg.Overlap = overlap

	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.WebSocket.Enabled && cfg.WebSocket.Addr == "" && !cfg.HTTP.IsEnabled() {
		return fmt.Errorf("%w", ErrWebSocketAddrRequired)
	}

	// Validate TLS config
	if cfg.HTTP.TLS.Enabled {
		if cfg.HTTP.TLS.Cert == "" || cfg.HTTP.TLS.Key == "" {
			return fmt.Errorf("%w", ErrTLSConfigIncomplete)
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Cert); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSCertNotFound, cfg.HTTP.TLS.Cert)
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Key); err != nil {
			return fmt.Errorf("%w: %s", ErrTLSKeyNotFound, cfg.HTTP.TLS.Key)
		}
	}

	return nil
}

func validateSourceConfig(cfg *SourceConfig) error {
	if cfg.Name == "" {
		return fmt.Errorf("%w", ErrSourceNameRequired)
	}
	if cfg.Extractor == "" {
		return fmt.Errorf("%w", ErrExtractorRequired)
	}

	kinds := sources.ExtractorKinds()
	if !slices.Contains(kinds, cfg.Extractor) {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrUnknownExtractor, cfg.Extractor, strings.Join(kinds, ", "))
	}

	if cfg.Endpoint == "" {
		return fmt.Errorf("%w", ErrEndpointRequired)
	}

	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	// Validate level
	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(cfg.Level)) {
		return fmt.Errorf("%w: %s (must be one of: %s)", ErrInvalidLogLevel, cfg.Level, strings.Join(validLevels, ", "))
	}

	// Validate format
	formatValid := strings.ToLower(cfg.Format) == "json" || strings.ToLower(cfg.Format) == "text"
	if !formatValid {
		return fmt.Errorf("%w: %s (must be 'json' or 'text')", ErrInvalidLogFormat, cfg.Format)
	}

	return nil
}
