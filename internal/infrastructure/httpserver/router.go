package httpserver

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lllypuk/threadline/internal/middleware"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	// Logger is the structured logger for router events.
	Logger *slog.Logger

	// AuthMiddleware is the authentication middleware to use for protected routes.
	AuthMiddleware echo.MiddlewareFunc

	// WorkspaceMiddleware is the workspace access middleware.
	WorkspaceMiddleware echo.MiddlewareFunc

	// RateLimitMiddleware limits reads on authenticated routes.
	// It runs after AuthMiddleware so it can key on the user.
	RateLimitMiddleware echo.MiddlewareFunc

	// CORSConfig is the CORS configuration.
	CORSConfig middleware.CORSConfig

	// LoggingConfig is the logging middleware configuration.
	LoggingConfig middleware.LoggingConfig

	// RecoveryConfig is the recovery middleware configuration.
	RecoveryConfig middleware.RecoveryConfig

	// APIPrefix is the prefix for all API routes.
	// Default is "/api/v1".
	APIPrefix string
}

// DefaultRouterConfig returns a RouterConfig with sensible defaults.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Logger:         slog.Default(),
		CORSConfig:     middleware.FeedCORSConfig(),
		LoggingConfig:  middleware.DefaultLoggingConfig(),
		RecoveryConfig: middleware.DefaultRecoveryConfig(),
		APIPrefix:      "/api/v1",
	}
}

// Router manages HTTP route groups and middleware chains.
type Router struct {
	echo   *echo.Echo
	config RouterConfig
	logger *slog.Logger

	// Route groups
	public    *echo.Group
	auth      *echo.Group
	workspace *echo.Group
}

// NewRouter creates a new router with the given configuration.
func NewRouter(e *echo.Echo, config RouterConfig) *Router {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.APIPrefix == "" {
		config.APIPrefix = "/api/v1"
	}

	r := &Router{
		echo:   e,
		config: config,
		logger: config.Logger,
	}

	r.setupGlobalMiddleware()
	r.setupRouteGroups()

	return r
}

func (r *Router) setupGlobalMiddleware() {
	// Recovery middleware (must be first to catch all panics)
	r.echo.Use(middleware.RecoveryWithConfig(r.config.RecoveryConfig))
	r.echo.Use(middleware.CORS(r.config.CORSConfig))
	r.echo.Use(middleware.Logging(r.config.LoggingConfig))
}

func (r *Router) setupRouteGroups() {
	// Public routes - no authentication required
	r.public = r.echo.Group(r.config.APIPrefix)

	authMiddleware := make([]echo.MiddlewareFunc, 0, 2)
	if r.config.AuthMiddleware != nil {
		authMiddleware = append(authMiddleware, r.config.AuthMiddleware)
	} else {
		r.logger.Warn("no auth middleware configured, authenticated routes are public")
	}
	if r.config.RateLimitMiddleware != nil {
		authMiddleware = append(authMiddleware, r.config.RateLimitMiddleware)
	}
	r.auth = r.public.Group("", authMiddleware...)

	// Workspace-scoped routes - require workspace membership
	if r.config.WorkspaceMiddleware != nil {
		r.workspace = r.auth.Group("/workspaces/:workspace_id", r.config.WorkspaceMiddleware)
	} else {
		r.workspace = r.auth.Group("/workspaces/:workspace_id")
		r.logger.Warn("no workspace middleware configured, workspace routes skip membership check")
	}
}

// Echo returns the underlying Echo instance.
func (r *Router) Echo() *echo.Echo {
	return r.echo
}

// Public returns the public route group (no authentication required).
func (r *Router) Public() *echo.Group {
	return r.public
}

// Auth returns the authenticated route group (requires valid JWT).
func (r *Router) Auth() *echo.Group {
	return r.auth
}

// Workspace returns the workspace-scoped route group.
// Requires both authentication and workspace membership.
func (r *Router) Workspace() *echo.Group {
	return r.workspace
}

// RouteRegistrar defines the interface for registering routes.
type RouteRegistrar interface {
	RegisterRoutes(r *Router)
}

// RegisterAll registers all route registrars with the router.
func (r *Router) RegisterAll(registrars ...RouteRegistrar) {
	for _, registrar := range registrars {
		registrar.RegisterRoutes(r)
	}
}

// WorkspaceRouteGroup provides a convenient way to register workspace-scoped routes.
type WorkspaceRouteGroup struct {
	group *echo.Group
}

// NewWorkspaceRouteGroup creates a new workspace route group with additional path prefix.
func (r *Router) NewWorkspaceRouteGroup(prefix string, m ...echo.MiddlewareFunc) *WorkspaceRouteGroup {
	return &WorkspaceRouteGroup{
		group: r.workspace.Group(prefix, m...),
	}
}

// Group returns the underlying echo group.
func (wrg *WorkspaceRouteGroup) Group() *echo.Group {
	return wrg.group
}

// GET registers a GET route.
func (wrg *WorkspaceRouteGroup) GET(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return wrg.group.GET(path, h, m...)
}

// POST registers a POST route.
func (wrg *WorkspaceRouteGroup) POST(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return wrg.group.POST(path, h, m...)
}

// PUT registers a PUT route.
func (wrg *WorkspaceRouteGroup) PUT(path string, h echo.HandlerFunc, m ...echo.MiddlewareFunc) *echo.Route {
	return wrg.group.PUT(path, h, m...)
}

// PrintRoutes logs all registered routes (for debugging).
func (r *Router) PrintRoutes() {
	for _, route := range r.echo.Routes() {
		r.logger.Debug("registered route",
			slog.String("method", route.Method),
			slog.String("path", route.Path),
			slog.String("name", route.Name),
		)
	}
}

// RegisterMetricsEndpoint registers the Prometheus metrics endpoint.
// A nil gatherer serves the default registry.
func (r *Router) RegisterMetricsEndpoint(gatherer prometheus.Gatherer) {
	handler := promhttp.Handler()
	if gatherer != nil {
		handler = promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	}
	r.echo.GET("/metrics", echo.WrapHandler(handler))
}
