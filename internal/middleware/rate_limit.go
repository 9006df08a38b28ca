package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/threadline/internal/infrastructure/gate"
)

// Headers set by the rate limit middleware.
const (
	RetryAfterHeader         = "Retry-After"
	RateLimitLimitHeader     = "X-Ratelimit-Limit"
	RateLimitRemainingHeader = "X-Ratelimit-Remaining"
)

// RateLimiter counts requests per key.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (gate.Decision, error)
}

// RateLimitConfig holds configuration for the rate limit middleware.
type RateLimitConfig struct {
	Logger  *slog.Logger
	Limiter RateLimiter

	// KeyFunc derives the limiter key. Defaults to user ID, then client IP.
	KeyFunc func(c echo.Context) string

	SkipPaths []string
}

// RateLimit returns a middleware that rejects requests over the limiter's budget.
// Limiter failures let the request through.
func RateLimit(config RateLimitConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.KeyFunc == nil {
		config.KeyFunc = defaultRateLimitKey
	}

	skipPaths := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if config.Limiter == nil {
				return next(c)
			}
			if _, ok := skipPaths[c.Request().URL.Path]; ok {
				return next(c)
			}

			key := config.KeyFunc(c)
			decision, err := config.Limiter.Allow(c.Request().Context(), key)
			if err != nil {
				config.Logger.Error("rate limiter failed",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
				return next(c)
			}

			header := c.Response().Header()
			header.Set(RateLimitLimitHeader, strconv.FormatInt(decision.Limit, 10))
			header.Set(RateLimitRemainingHeader, strconv.FormatInt(decision.Remaining, 10))

			if !decision.Allowed {
				config.Logger.Warn("rate limit exceeded",
					slog.String("key", key),
					slog.String("path", c.Request().URL.Path),
					slog.String("remote_ip", c.RealIP()),
				)
				return respondRateLimitError(c, decision.RetryAfter)
			}

			return next(c)
		}
	}
}

func defaultRateLimitKey(c echo.Context) string {
	if userID := GetUserID(c); userID != "" {
		return "read:user:" + userID
	}
	return "read:ip:" + c.RealIP()
}

func respondRateLimitError(c echo.Context, retryAfter time.Duration) error {
	seconds := int64(retryAfter.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	c.Response().Header().Set(RetryAfterHeader, strconv.FormatInt(seconds, 10))

	return c.JSON(http.StatusTooManyRequests, map[string]any{
		"success": false,
		"error": map[string]any{
			"code":        "RATE_LIMITED",
			"message":     "Too many requests. Please try again later.",
			"retry_after": seconds,
		},
	})
}
