// Package main provides the API server entry point.
package main

import (
	"github.com/labstack/echo/v4"

	"github.com/lllypuk/threadline/internal/infrastructure/httpserver"
	"github.com/lllypuk/threadline/internal/middleware"
)

// publicPaths bypass authentication and the read limiter.
var publicPaths = []string{"/health", "/ready", "/health/details", "/metrics"}

// SetupRoutes configures all API routes and middleware chains on e.
func SetupRoutes(e *echo.Echo, c *Container) *httpserver.Router {
	authConfig := middleware.DefaultAuthConfig()
	authConfig.Logger = c.Logger
	authConfig.TokenValidator = c.TokenValidator
	authConfig.SkipPaths = publicPaths

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.Logger = c.Logger

	recoveryConfig := middleware.DefaultRecoveryConfig()
	recoveryConfig.Logger = c.Logger

	routerConfig := httpserver.RouterConfig{
		Logger:         c.Logger,
		AuthMiddleware: middleware.Auth(authConfig),
		WorkspaceMiddleware: middleware.WorkspaceAccess(middleware.WorkspaceConfig{
			Logger:           c.Logger,
			WorkspaceIDParam: "workspace_id",
		}),
		CORSConfig:     middleware.FeedCORSConfig(c.Config.Server.AllowedOrigins...),
		LoggingConfig:  loggingConfig,
		RecoveryConfig: recoveryConfig,
		APIPrefix:      "/api/v1",
	}

	if c.ReadLimiter != nil {
		routerConfig.RateLimitMiddleware = middleware.RateLimit(middleware.RateLimitConfig{
			Logger:    c.Logger,
			Limiter:   c.ReadLimiter,
			SkipPaths: publicPaths,
		})
	}

	router := httpserver.NewRouter(e, routerConfig)

	// Container implements httpserver.HealthChecker.
	router.RegisterHealthEndpointsWithChecker(c)
	router.RegisterMetricsEndpoint(c.Registry)

	router.RegisterAll(
		c.ChannelHandler,
		c.MessageHandler,
		c.WSHandler,
	)

	if c.Config.IsDevelopment() {
		router.PrintRoutes()
	}

	return router
}
