package config

import "time"

// Config is the root configuration structure
type Config struct {
	Asset   string         `yaml:"asset"`
	Poll    PollConfig     `yaml:"poll"`
	Server  ServerConfig   `yaml:"server"`
	Sources []SourceConfig `yaml:"sources"`
	Metrics MetricsConfig  `yaml:"metrics"`
	Logging LoggingConfig  `yaml:"logging"`
}

// PollConfig configures the polling scheduler and the per-source fetch
type PollConfig struct {
	Interval    Duration `yaml:"interval"`    // Time between cycle starts (minimum 1s)
	Timeout     Duration `yaml:"timeout"`     // Per-source deadline, retries included
	Retries     int      `yaml:"retries"`     // Extra attempts on transport errors and 5xx
	Backoff     Duration `yaml:"backoff"`     // Initial retry backoff, doubled per attempt
	Concurrency int      `yaml:"concurrency"` // Max sources in flight, 0 = unlimited
	Overlap     string   `yaml:"overlap"`     // "skip" or "allow"
}

// ServerConfig configures the presentation endpoints
type ServerConfig struct {
	HTTP      HTTPConfig `yaml:"http"`
	WebSocket WSConfig   `yaml:"websocket"`
}

// HTTPConfig configures the HTTP server
type HTTPConfig struct {
	Enabled *bool     `yaml:"enabled"` // Defaults to true
	Addr    string    `yaml:"addr"`
	TLS     TLSConfig `yaml:"tls"`
}

// IsEnabled reports whether the HTTP server should run.
func (h HTTPConfig) IsEnabled() bool {
	return h.Enabled == nil || *h.Enabled
}

// WSConfig configures the WebSocket server. An empty address mounts /ws on
// the HTTP server instead of a dedicated listener.
type WSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// TLSConfig holds TLS certificate configuration
type TLSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cert    string `yaml:"cert"`
	Key     string `yaml:"key"`
}

// SourceConfig configures a price source
type SourceConfig struct {
	Name      string                 `yaml:"name"`
	Extractor string                 `yaml:"extractor"`
	Endpoint  string                 `yaml:"endpoint"`
	Enabled   *bool                  `yaml:"enabled"` // Defaults to true
	Params    map[string]interface{} `yaml:"params"`
}

// IsEnabled reports whether the source should be polled.
func (sc SourceConfig) IsEnabled() bool {
	return sc.Enabled == nil || *sc.Enabled
}

// MetricsConfig configures Prometheus metrics
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Path    string `yaml:"path"`
}

// LoggingConfig configures logging
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"` // stdout, stderr or a file path
}

// Duration is a wrapper around time.Duration for YAML parsing
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler
func (d *Duration) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	td, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(td)
	return nil
}

// MarshalYAML implements yaml.Marshaler
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// ToDuration converts Duration to time.Duration
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d)
}
