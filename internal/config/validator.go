package config

import (
	"fmt"
	"net"
	"strings"

	"github.com/harun/fdstream/pkg/streamer"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateChunkSize checks size against the session's accepted range
func (v *Validator) ValidateChunkSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if size > streamer.MaxChunkSize {
		return fmt.Errorf("chunk size too large (max %d), got %d", streamer.MaxChunkSize, size)
	}
	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateListenAddr validates a host:port listen address. Empty is allowed.
func (v *Validator) ValidateListenAddr(addr string) error {
	if addr == "" {
		return nil
	}
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return fmt.Errorf("invalid metrics address %q: %w", addr, err)
	}
	return nil
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	if err := v.ValidateChunkSize(cfg.Stream.ChunkSize); err != nil {
		errors = append(errors, fmt.Errorf("stream: %w", err))
	}
	if cfg.Stream.PollInterval < 0 {
		errors = append(errors, fmt.Errorf("stream: poll_interval must be >= 0"))
	}

	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	if cfg.Logging.MaxSize < 0 {
		errors = append(errors, fmt.Errorf("logging: max_size must be >= 0"))
	}
	if cfg.Logging.MaxAge < 0 {
		errors = append(errors, fmt.Errorf("logging: max_age must be >= 0"))
	}

	if err := v.ValidateListenAddr(cfg.Metrics.Addr); err != nil {
		errors = append(errors, err)
	}
	if cfg.Metrics.Addr != "" && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errors = append(errors, fmt.Errorf("metrics: path must start with /"))
	}

	if cfg.Tracing.Enabled && strings.TrimSpace(cfg.Tracing.ServiceName) == "" {
		errors = append(errors, fmt.Errorf("tracing: service_name is required when tracing is enabled"))
	}

	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1 {
		errors = append(errors, fmt.Errorf("tracing: sample_ratio must be within [0, 1]"))
	}

	return errors
}
