package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/harun/fdstream/pkg/streamer"
)

// Config is the fdstream CLI configuration
type Config struct {
	// Stream holds the defaults applied to every session the CLI opens
	Stream StreamConfig `json:"stream" mapstructure:"stream"`

	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// AuditLog is the path of the lifecycle audit log. Empty disables it.
	AuditLog string `json:"audit_log" mapstructure:"audit_log"`
}

// StreamConfig mirrors streamer.Options
type StreamConfig struct {
	ChunkSize        int           `json:"chunk_size" mapstructure:"chunk_size"`
	ErrorOnMissing   bool          `json:"error_on_missing" mapstructure:"error_on_missing"`
	CloseOnEndOfFile bool          `json:"close_on_eof" mapstructure:"close_on_eof"`
	PollInterval     time.Duration `json:"poll_interval" mapstructure:"poll_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `json:"level" mapstructure:"level"`
	File      string `json:"file" mapstructure:"file"`
	Pretty    bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize   int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge    int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress  bool   `json:"compress" mapstructure:"compress"`
	Redaction bool   `json:"redaction" mapstructure:"redaction"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Addr string `json:"addr" mapstructure:"addr"` // empty disables the endpoint
	Path string `json:"path" mapstructure:"path"`
}

// TracingConfig controls OpenTelemetry setup
type TracingConfig struct {
	Enabled     bool    `json:"enabled" mapstructure:"enabled"`
	ServiceName string  `json:"service_name" mapstructure:"service_name"`
	SampleRatio float64 `json:"sample_ratio" mapstructure:"sample_ratio"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Stream: StreamConfig{
			ChunkSize:        streamer.MaxChunkSize,
			ErrorOnMissing:   true,
			CloseOnEndOfFile: true,
		},
		Logging: LoggingConfig{
			Level:     "info",
			Pretty:    true,
			MaxSize:   100,
			MaxAge:    7,
			Compress:  true,
			Redaction: true,
		},
		Metrics: MetricsConfig{
			Path: "/metrics",
		},
		Tracing: TracingConfig{
			ServiceName: "fdstream",
			SampleRatio: 1,
		},
	}
}

// StreamOptions returns session options for path built from the stream defaults
func (c *Config) StreamOptions(path string) streamer.Options {
	return streamer.Options{
		Path:             path,
		ChunkSize:        c.Stream.ChunkSize,
		ErrorOnMissing:   c.Stream.ErrorOnMissing,
		CloseOnEndOfFile: c.Stream.CloseOnEndOfFile,
		PollInterval:     c.Stream.PollInterval,
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate returns the first problem found, or nil
func (c *Config) Validate() error {
	if errs := NewValidator().ValidateConfig(c); len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errs[0])
	}
	return nil
}
