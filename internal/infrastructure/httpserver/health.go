// Package httpserver provides HTTP server infrastructure components.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Health statuses reported by /health, /ready and /health/details.
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
	StatusReady     = "ready"
	StatusNotReady  = "not_ready"
)

// DefaultCheckTimeout bounds a single dependency check.
const DefaultCheckTimeout = 2 * time.Second

// ComponentStatus represents the health status of a single component.
type ComponentStatus struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents the response for health endpoints.
type HealthResponse struct {
	Status     string            `json:"status"`
	Components []ComponentStatus `json:"components,omitempty"`
}

// HealthChecker reports the state of the service dependencies.
type HealthChecker interface {
	IsReady(ctx context.Context) bool
	GetHealthStatus(ctx context.Context) []ComponentStatus
}

// Dependency is one thing the feed service relies on.
// A failing critical dependency makes the service unhealthy; any other failure only degrades it.
type Dependency struct {
	Name     string
	Critical bool
	Check    func(ctx context.Context) error
}

// Dependencies checks a fixed list of dependencies in order, each under its own timeout.
type Dependencies struct {
	deps    []Dependency
	timeout time.Duration
}

// NewDependencies creates a HealthChecker. A non-positive timeout uses DefaultCheckTimeout.
func NewDependencies(timeout time.Duration, deps ...Dependency) *Dependencies {
	if timeout <= 0 {
		timeout = DefaultCheckTimeout
	}
	return &Dependencies{deps: deps, timeout: timeout}
}

// GetHealthStatus checks every dependency.
func (d *Dependencies) GetHealthStatus(ctx context.Context) []ComponentStatus {
	statuses := make([]ComponentStatus, 0, len(d.deps))
	for _, dep := range d.deps {
		statuses = append(statuses, d.check(ctx, dep))
	}
	return statuses
}

// IsReady reports whether no critical dependency fails.
func (d *Dependencies) IsReady(ctx context.Context) bool {
	return Overall(d.GetHealthStatus(ctx)) != StatusUnhealthy
}

func (d *Dependencies) check(ctx context.Context, dep Dependency) ComponentStatus {
	status := ComponentStatus{Name: dep.Name, Status: StatusHealthy}
	if dep.Check == nil {
		return status
	}

	checkCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	if err := dep.Check(checkCtx); err != nil {
		status.Message = err.Error()
		status.Status = StatusDegraded
		if dep.Critical {
			status.Status = StatusUnhealthy
		}
	}
	return status
}

// Overall folds component statuses into one. Unhealthy outranks degraded.
func Overall(components []ComponentStatus) string {
	overall := StatusHealthy
	for _, comp := range components {
		switch comp.Status {
		case StatusUnhealthy:
			return StatusUnhealthy
		case StatusDegraded:
			overall = StatusDegraded
		}
	}
	return overall
}

// HealthEndpoints serves the liveness, readiness and detail routes.
type HealthEndpoints struct {
	checker HealthChecker
}

// NewHealthEndpoints creates a new HealthEndpoints instance.
func NewHealthEndpoints(checker HealthChecker) *HealthEndpoints {
	return &HealthEndpoints{checker: checker}
}

// Register mounts GET /health (liveness), GET /ready (200 or 503) and GET /health/details.
func (h *HealthEndpoints) Register(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.GET("/ready", h.handleReady)
	e.GET("/health/details", h.handleHealthDetails)
}

func (h *HealthEndpoints) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: StatusHealthy})
}

func (h *HealthEndpoints) handleReady(c echo.Context) error {
	ctx := c.Request().Context()

	if h.checker == nil || h.checker.IsReady(ctx) {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:     StatusReady,
			Components: h.components(ctx),
		})
	}

	return c.JSON(http.StatusServiceUnavailable, HealthResponse{
		Status:     StatusNotReady,
		Components: h.components(ctx),
	})
}

func (h *HealthEndpoints) handleHealthDetails(c echo.Context) error {
	components := h.components(c.Request().Context())

	overall := Overall(components)
	code := http.StatusOK
	if overall == StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	return c.JSON(code, HealthResponse{
		Status:     overall,
		Components: components,
	})
}

func (h *HealthEndpoints) components(ctx context.Context) []ComponentStatus {
	if h.checker == nil {
		return nil
	}
	return h.checker.GetHealthStatus(ctx)
}

// RegisterHealthEndpointsWithChecker registers health endpoints with a HealthChecker.
func (r *Router) RegisterHealthEndpointsWithChecker(checker HealthChecker) {
	NewHealthEndpoints(checker).Register(r.echo)
}
