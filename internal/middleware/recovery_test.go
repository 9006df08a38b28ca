package middleware_test

import (
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/threadline/internal/middleware"
)

func TestRecovery(t *testing.T) {
	tests := []struct {
		name  string
		panic any
		want  string
	}{
		{"string panic", "boom", "boom"},
		{"error panic", errors.New("nil map write"), "nil map write"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger()

			e := echo.New()
			e.Use(middleware.Recovery(logger))
			e.GET("/panic", func(echo.Context) error {
				panic(tt.panic)
			})

			rec := serve(e, http.MethodGet, "/panic", nil)

			require.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, "INTERNAL_ERROR", errorCode(t, rec))

			record := lastLogRecord(t, buf)
			assert.Equal(t, "panic recovered", record["msg"])
			assert.Equal(t, tt.want, record["error"])
			assert.Contains(t, record, "stack")
		})
	}
}

func TestRecovery_DisablePrintStack(t *testing.T) {
	logger, buf := newBufferLogger()

	e := echo.New()
	e.Use(middleware.Logging(middleware.LoggingConfig{Logger: slog.New(slog.DiscardHandler)}))
	e.Use(middleware.RecoveryWithConfig(middleware.RecoveryConfig{Logger: logger, DisablePrintStack: true}))
	e.GET("/panic", func(echo.Context) error {
		panic("boom")
	})

	rec := serve(e, http.MethodGet, "/panic", map[string]string{middleware.RequestIDHeader: "req-9"})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	record := lastLogRecord(t, buf)
	assert.NotContains(t, record, "stack")
	assert.Equal(t, "req-9", record["request_id"])
}

func TestRecovery_NoPanic(t *testing.T) {
	logger, buf := newBufferLogger()

	e := echo.New()
	e.Use(middleware.Recovery(logger))
	e.GET("/ok", okHandler)

	rec := serve(e, http.MethodGet, "/ok", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, buf.Len())
}
