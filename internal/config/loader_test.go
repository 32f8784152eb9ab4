package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoader(t *testing.T) {
	loader := NewLoader("/path/to/config.json")
	assert.Equal(t, "/path/to/config.json", loader.GetConfigPath())
}

func TestLoaderLoad(t *testing.T) {
	t.Run("defaults when file doesn't exist", func(t *testing.T) {
		cfg, err := NewLoader(filepath.Join(t.TempDir(), "missing.json")).Load()

		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		content := `{
			"stream": {"chunk_size": 1024, "close_on_eof": false, "poll_interval": "250ms"},
			"logging": {"level": "debug"},
			"metrics": {"addr": ":9102"}
		}`
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

		cfg, err := NewLoader(configPath).Load()
		require.NoError(t, err)

		assert.Equal(t, 1024, cfg.Stream.ChunkSize)
		assert.False(t, cfg.Stream.CloseOnEndOfFile)
		assert.True(t, cfg.Stream.ErrorOnMissing)
		assert.Equal(t, 250*time.Millisecond, cfg.Stream.PollInterval)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, ":9102", cfg.Metrics.Addr)
		assert.Equal(t, "/metrics", cfg.Metrics.Path)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("FDSTREAM_STREAM_CHUNK_SIZE", "2048")
		t.Setenv("FDSTREAM_LOGGING_LEVEL", "warn")

		cfg, err := NewLoader(filepath.Join(t.TempDir(), "missing.json")).Load()
		require.NoError(t, err)

		assert.Equal(t, 2048, cfg.Stream.ChunkSize)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("invalid json", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0644))

		_, err := NewLoader(configPath).Load()
		assert.Error(t, err)
	})
}

func TestLoaderSave(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.json")
	loader := NewLoader(configPath)

	cfg := DefaultConfig()
	cfg.Stream.ChunkSize = 4096
	cfg.Stream.PollInterval = 100 * time.Millisecond
	cfg.Metrics.Addr = "127.0.0.1:9102"
	cfg.AuditLog = "/tmp/fdstream-audit.log"

	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
