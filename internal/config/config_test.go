package config

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/harun/fdstream/pkg/streamer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, streamer.MaxChunkSize, cfg.Stream.ChunkSize)
	assert.True(t, cfg.Stream.ErrorOnMissing)
	assert.True(t, cfg.Stream.CloseOnEndOfFile)
	assert.Zero(t, cfg.Stream.PollInterval)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Empty(t, cfg.Metrics.Addr)
	assert.False(t, cfg.Tracing.Enabled)
	assert.NoError(t, cfg.Validate())
}

func TestConfig_StreamOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stream.ChunkSize = 512
	cfg.Stream.CloseOnEndOfFile = false
	cfg.Stream.PollInterval = 50 * time.Millisecond

	opts := cfg.StreamOptions("/var/log/app.log")

	assert.Equal(t, "/var/log/app.log", opts.Path)
	assert.Equal(t, 512, opts.ChunkSize)
	assert.True(t, opts.ErrorOnMissing)
	assert.False(t, opts.CloseOnEndOfFile)
	assert.Equal(t, 50*time.Millisecond, opts.PollInterval)
	assert.Nil(t, opts.Loop)
}

func TestConfig_String(t *testing.T) {
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(DefaultConfig().String()), &decoded))

	assert.Contains(t, decoded, "stream")
	assert.Contains(t, decoded, "logging")
	assert.Contains(t, decoded, "metrics")
	assert.Contains(t, decoded, "tracing")
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stream.ChunkSize = streamer.MaxChunkSize + 1

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk size too large")
}
