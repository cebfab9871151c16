// Package config defines the dashboard configuration and how it is loaded.
//
// Conventions:
// - New returns a Config holding defaults; Load layers file and env on top.
// - Durations are stored as integer milliseconds so YAML and env agree.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"time"
)

// Default values.
const (
	DefaultAddr          = ":3000"
	DefaultDataURL       = "https://ckan0.cf.opendata.inter.prod-toronto.ca/download_resource/e5bf35bc-e681-43da-b2ce-0242d00922ad?format=csv"
	DefaultBoundaryPath  = "GeoJSON/Toronto_fsa.geojson"
	DefaultBoundaryURL   = "/api/boundaries"
	defaultFetchTimeout  = 60_000
	defaultCompressBytes = 1024
	defaultMetricsMS     = 10_000

	FormatText = "text"
	FormatJSON = "json"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":3000".
	Addr string `koanf:"addr"`

	// Debug enables the state dump endpoint and debug logging.
	Debug bool `koanf:"debug"`

	// DataURL is the case CSV location, either http(s) or a local path.
	DataURL string `koanf:"data_url"`

	// BoundaryPath is the FSA GeoJSON file read at startup.
	BoundaryPath string `koanf:"boundary_path"`

	// BoundaryURL is where the browser fetches the boundaries for the map.
	BoundaryURL string `koanf:"boundary_url"`

	// FetchTimeoutMS bounds the startup dataset fetch.
	FetchTimeoutMS int `koanf:"fetch_timeout_ms"`

	// CompressionMinSize is the smallest response body that gets gzipped.
	CompressionMinSize int `koanf:"compression_min_size"`

	// MetricsEnabled turns Prometheus observations on or off.
	MetricsEnabled bool `koanf:"metrics_enabled"`

	// MetricsNamespace and MetricsSubsystem lead every metric name; empty
	// keeps the built-in names.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsPrefix is inserted before each metric name.
	MetricsPrefix string `koanf:"metrics_prefix"`

	// MetricsRefreshMS is how often system gauges are refreshed.
	MetricsRefreshMS int `koanf:"metrics_refresh_ms"`

	// MetricsBuckets overrides the latency histogram buckets (milliseconds).
	MetricsBuckets []float64 `koanf:"metrics_buckets"`

	// MetricsLabels are constant labels added to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config holding the defaults. Context is accepted first to
// follow the project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          FormatText,
		Addr:               DefaultAddr,
		DataURL:            DefaultDataURL,
		BoundaryPath:       DefaultBoundaryPath,
		BoundaryURL:        DefaultBoundaryURL,
		FetchTimeoutMS:     defaultFetchTimeout,
		CompressionMinSize: defaultCompressBytes,
		MetricsEnabled:     true,
		MetricsRefreshMS:   defaultMetricsMS,
	}
}

// FetchTimeout returns FetchTimeoutMS as a duration.
func (c *Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

// MetricsRefresh returns MetricsRefreshMS as a duration.
func (c *Config) MetricsRefresh() time.Duration {
	return time.Duration(c.MetricsRefreshMS) * time.Millisecond
}

// Validate checks the fields the process cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DataURL == "":
		return fmt.Errorf("%w: data_url must not be empty", ErrInvalidConfig)
	case c.BoundaryPath == "":
		return fmt.Errorf("%w: boundary_path must not be empty", ErrInvalidConfig)
	case c.FetchTimeoutMS <= 0:
		return fmt.Errorf("%w: fetch_timeout_ms must be positive, got %d", ErrInvalidConfig, c.FetchTimeoutMS)
	case c.MetricsRefreshMS <= 0:
		return fmt.Errorf("%w: metrics_refresh_ms must be positive, got %d", ErrInvalidConfig, c.MetricsRefreshMS)
	case c.CompressionMinSize < 0:
		return fmt.Errorf("%w: compression_min_size must not be negative", ErrInvalidConfig)
	case c.LogFormat != FormatText && c.LogFormat != FormatJSON:
		return fmt.Errorf("%w: log_format must be %q or %q, got %q", ErrInvalidConfig, FormatText, FormatJSON, c.LogFormat)
	}
	return nil
}
