package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("console output", func(t *testing.T) {
		logger, err := New(Config{Level: "info", Console: true})
		require.NoError(t, err)
		defer logger.Close()

		assert.Nil(t, logger.file)
	})

	t.Run("file output", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "logs", "fdstream.log")

		logger, err := New(Config{Level: "debug", File: logFile})
		require.NoError(t, err)

		zl := logger.Zerolog()
		zl.Debug().Str("path", "/tmp/in").Msg("file opened")
		require.NoError(t, logger.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"file opened"`)
		assert.Contains(t, string(data), `"path":"/tmp/in"`)
	})

	t.Run("redacts credentials", func(t *testing.T) {
		logFile := filepath.Join(t.TempDir(), "fdstream.log")

		logger, err := New(Config{Level: "info", File: logFile, Redaction: true})
		require.NoError(t, err)

		zl := logger.Zerolog()
		zl.Info().Str("command", "curl -H 'Authorization: Bearer abc.def'").Msg("spawned")
		require.NoError(t, logger.Close())

		data, err := os.ReadFile(logFile)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "abc.def")
		assert.Contains(t, string(data), "[REDACTED]")
	})

	t.Run("installs global logger", func(t *testing.T) {
		logger, err := New(Config{Level: "warn"})
		require.NoError(t, err)
		defer logger.Close()

		assert.Equal(t, zerolog.WarnLevel, log.Logger.GetLevel())
	})
}

func TestNew_LevelFallback(t *testing.T) {
	for _, level := range []string{"", "loud"} {
		logger, err := New(Config{Level: level})
		require.NoError(t, err)
		assert.Equal(t, zerolog.InfoLevel, logger.Zerolog().GetLevel())
		logger.Close()
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Level)
	assert.True(t, cfg.Console)
	assert.True(t, cfg.Pretty)
	assert.True(t, cfg.Redaction)
	assert.Equal(t, 100, cfg.MaxSize)
	assert.Equal(t, 7, cfg.MaxAge)
	assert.True(t, cfg.Compress)
}
