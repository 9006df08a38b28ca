package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lllypuk/threadline/internal/config"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		level    string
		expected slog.Level
	}{
		{"debug level", "debug", slog.LevelDebug},
		{"info level", "info", slog.LevelInfo},
		{"warn level", "warn", slog.LevelWarn},
		{"error level", "error", slog.LevelError},
		{"unknown defaults to info", "unknown", slog.LevelInfo},
		{"empty defaults to info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLogLevel(tt.level))
		})
	}
}

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		name        string
		logLevel    string
		environment string
		expected    string
	}{
		{"production wins", "debug", "production", "production"},
		{"development when debug", "debug", "staging", "development"},
		{"configured name", "info", "staging", "staging"},
		{"unknown when empty", "info", "", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Log.Level = tt.logLevel
			cfg.App.Environment = tt.environment
			assert.Equal(t, tt.expected, getEnvironment(cfg))
		})
	}
}

func TestSetupLogger(t *testing.T) {
	previous := slog.Default()
	t.Cleanup(func() { slog.SetDefault(previous) })

	tests := []struct {
		level, format string
		enabled       slog.Level
		disabled      slog.Level
	}{
		{"debug", "text", slog.LevelDebug, slog.LevelDebug - 1},
		{"info", "json", slog.LevelInfo, slog.LevelDebug},
		{"warn", "", slog.LevelWarn, slog.LevelInfo},
		{"error", "json", slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Log.Level = tt.level
			cfg.Log.Format = tt.format

			logger := setupLogger(cfg)

			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, tt.enabled))
			assert.False(t, logger.Enabled(ctx, tt.disabled))
			assert.Same(t, logger, slog.Default())
		})
	}
}

func TestServerConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 9000
	cfg.Server.BodyLimit = "512K"

	server := serverConfig(cfg)

	assert.Equal(t, "127.0.0.1", server.Host)
	assert.Equal(t, 9000, server.Port)
	assert.Equal(t, cfg.Server.ReadTimeout, server.ReadTimeout)
	assert.Equal(t, cfg.Server.WriteTimeout, server.WriteTimeout)
	assert.Equal(t, cfg.Server.ShutdownTimeout, server.ShutdownTimeout)
	assert.Equal(t, "512K", server.BodyLimit)
}

func TestGracefulShutdownSleepConstant(t *testing.T) {
	assert.Equal(t, int64(100), gracefulShutdownSleep.Milliseconds())
}
