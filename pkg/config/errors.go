// Package config provides configuration loading and validation for spread-go.
package config

import "errors"

var (
	// ErrInvalidAsset indicates that the asset symbol is malformed.
	ErrInvalidAsset = errors.New("invalid asset")
	// ErrInvalidInterval indicates that the polling interval is below the minimum.
	ErrInvalidInterval = errors.New("poll.interval must be at least 1s")
	// ErrInvalidTimeout indicates that the per-source timeout is not positive.
	ErrInvalidTimeout = errors.New("poll.timeout must be positive")
	// ErrInvalidRetries indicates a negative retry count.
	ErrInvalidRetries = errors.New("poll.retries must be >= 0")
	// ErrInvalidConcurrency indicates a negative concurrency limit.
	ErrInvalidConcurrency = errors.New("poll.concurrency must be >= 0")
	// ErrInvalidOverlap indicates that the overlap policy is unknown.
	ErrInvalidOverlap = errors.New("invalid poll.overlap")
	// ErrTLSConfigIncomplete indicates that TLS config is incomplete.
	ErrTLSConfigIncomplete = errors.New("TLS cert and key must be specified when TLS is enabled")
	// ErrTLSCertNotFound indicates that the TLS cert file was not found.
	ErrTLSCertNotFound = errors.New("TLS cert file not found")
	// ErrTLSKeyNotFound indicates that the TLS key file was not found.
	ErrTLSKeyNotFound = errors.New("TLS key file not found")
	// ErrWebSocketAddrRequired indicates that a WebSocket server without its own address has no HTTP server to mount on.
	ErrWebSocketAddrRequired = errors.New("websocket addr is required when the HTTP server is disabled")
	// ErrNoSourcesEnabled indicates that no sources are enabled.
	ErrNoSourcesEnabled = errors.New("no sources enabled")
	// ErrSourceNameRequired indicates that source name is required.
	ErrSourceNameRequired = errors.New("source name is required")
	// ErrDuplicateSourceName indicates that two sources share a name.
	ErrDuplicateSourceName = errors.New("duplicate source name")
	// ErrExtractorRequired indicates that source extractor is required.
	ErrExtractorRequired = errors.New("source extractor is required")
	// ErrUnknownExtractor indicates that the extractor kind is not registered.
	ErrUnknownExtractor = errors.New("unknown extractor")
	// ErrEndpointRequired indicates that source endpoint is required.
	ErrEndpointRequired = errors.New("source endpoint is required")
	// ErrInvalidMetricsPath indicates that the metrics path is not absolute.
	ErrInvalidMetricsPath = errors.New("metrics path must start with /")
	// ErrInvalidLogLevel indicates that the log level is invalid.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidLogFormat indicates that the log format is invalid.
	ErrInvalidLogFormat = errors.New("invalid log format")
)
