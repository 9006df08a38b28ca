package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// DefaultCORSMaxAge caches preflight results for a day.
const DefaultCORSMaxAge = 86400

// feedMethods are the verbs the feed API answers to.
var feedMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}

// CORSConfig holds CORS middleware configuration.
type CORSConfig struct {
	// AllowOrigins lists the browser origins of feed clients. "*" allows any origin
	// and disables credentials.
	AllowOrigins []string
	MaxAge       int
}

// FeedCORSConfig allows origins to call the feed API. No origins means any origin.
func FeedCORSConfig(origins ...string) CORSConfig {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return CORSConfig{
		AllowOrigins: origins,
		MaxAge:       DefaultCORSMaxAge,
	}
}

func (c CORSConfig) wildcard() bool {
	for _, origin := range c.AllowOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// CORS returns the CORS middleware for the feed API.
// Clients may read the rate limit and request id headers.
// WebSocket upgrades are left to the websocket handler, which checks the origin itself.
func CORS(config CORSConfig) echo.MiddlewareFunc {
	if len(config.AllowOrigins) == 0 {
		config = FeedCORSConfig()
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      isWebSocketUpgrade,
		AllowOrigins: config.AllowOrigins,
		AllowMethods: feedMethods,
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			RequestIDHeader,
		},
		AllowCredentials: !config.wildcard(),
		ExposeHeaders:    []string{RetryAfterHeader, RateLimitLimitHeader, RateLimitRemainingHeader, RequestIDHeader},
		MaxAge:           config.MaxAge,
	})
}

func isWebSocketUpgrade(c echo.Context) bool {
	return strings.EqualFold(c.Request().Header.Get(echo.HeaderUpgrade), "websocket")
}
