package httpserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/threadline/internal/infrastructure/httpserver"
)

type stubChecker struct {
	ready      bool
	components []httpserver.ComponentStatus
}

func (s stubChecker) IsReady(context.Context) bool { return s.ready }

func (s stubChecker) GetHealthStatus(context.Context) []httpserver.ComponentStatus {
	return s.components
}

func decodeHealth(t *testing.T, body []byte) httpserver.HealthResponse {
	t.Helper()

	var resp httpserver.HealthResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	tests := []struct {
		name          string
		checker       httpserver.HealthChecker
		path          string
		wantStatus    int
		wantHealthStr string
	}{
		{
			name:          "liveness ignores checker",
			checker:       stubChecker{ready: false},
			path:          "/health",
			wantStatus:    http.StatusOK,
			wantHealthStr: httpserver.StatusHealthy,
		},
		{
			name:          "ready",
			checker:       stubChecker{ready: true},
			path:          "/ready",
			wantStatus:    http.StatusOK,
			wantHealthStr: httpserver.StatusReady,
		},
		{
			name:          "not ready",
			checker:       stubChecker{ready: false},
			path:          "/ready",
			wantStatus:    http.StatusServiceUnavailable,
			wantHealthStr: httpserver.StatusNotReady,
		},
		{
			name:          "nil checker is ready",
			checker:       nil,
			path:          "/ready",
			wantStatus:    http.StatusOK,
			wantHealthStr: httpserver.StatusReady,
		},
		{
			name: "degraded details",
			checker: stubChecker{components: []httpserver.ComponentStatus{
				{Name: "mongodb", Status: httpserver.StatusHealthy},
				{Name: "redis", Status: httpserver.StatusDegraded},
			}},
			path:          "/health/details",
			wantStatus:    http.StatusOK,
			wantHealthStr: httpserver.StatusDegraded,
		},
		{
			name: "unhealthy details",
			checker: stubChecker{components: []httpserver.ComponentStatus{
				{Name: "redis", Status: httpserver.StatusDegraded},
				{Name: "mongodb", Status: httpserver.StatusUnhealthy, Message: "ping failed"},
			}},
			path:          "/health/details",
			wantStatus:    http.StatusServiceUnavailable,
			wantHealthStr: httpserver.StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			router := httpserver.NewRouter(e, httpserver.DefaultRouterConfig())
			router.RegisterHealthEndpointsWithChecker(tt.checker)

			rec := serve(e, http.MethodGet, tt.path, nil)

			require.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantHealthStr, decodeHealth(t, rec.Body.Bytes()).Status)
		})
	}
}

func TestHealthEndpoints_ComponentsInReady(t *testing.T) {
	e := echo.New()
	httpserver.NewHealthEndpoints(stubChecker{
		ready:      true,
		components: []httpserver.ComponentStatus{{Name: "mongodb", Status: httpserver.StatusHealthy}},
	}).Register(e)

	rec := serve(e, http.MethodGet, "/ready", nil)

	resp := decodeHealth(t, rec.Body.Bytes())
	require.Len(t, resp.Components, 1)
	assert.Equal(t, "mongodb", resp.Components[0].Name)
}

func TestDependencies(t *testing.T) {
	errDown := errors.New("connection refused")

	deps := httpserver.NewDependencies(0,
		httpserver.Dependency{Name: "mongodb", Critical: true, Check: func(context.Context) error { return nil }},
		httpserver.Dependency{Name: "eventbus", Check: func(context.Context) error { return errDown }},
		httpserver.Dependency{Name: "noop"},
	)

	statuses := deps.GetHealthStatus(context.Background())
	assert.Equal(t, []httpserver.ComponentStatus{
		{Name: "mongodb", Status: httpserver.StatusHealthy},
		{Name: "eventbus", Status: httpserver.StatusDegraded, Message: "connection refused"},
		{Name: "noop", Status: httpserver.StatusHealthy},
	}, statuses)
	assert.Equal(t, httpserver.StatusDegraded, httpserver.Overall(statuses))
	assert.True(t, deps.IsReady(context.Background()), "degraded is still ready")

	critical := httpserver.NewDependencies(0,
		httpserver.Dependency{Name: "redis", Critical: true, Check: func(context.Context) error { return errDown }},
	)
	assert.False(t, critical.IsReady(context.Background()))
	assert.Equal(t, httpserver.StatusUnhealthy, httpserver.Overall(critical.GetHealthStatus(context.Background())))
}

func TestDependencies_Timeout(t *testing.T) {
	deps := httpserver.NewDependencies(10*time.Millisecond, httpserver.Dependency{
		Name:     "mongodb",
		Critical: true,
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	})

	statuses := deps.GetHealthStatus(context.Background())
	require.Len(t, statuses, 1)
	assert.Equal(t, httpserver.StatusUnhealthy, statuses[0].Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), statuses[0].Message)
}

func TestHealthEndpoints_WithDependencies(t *testing.T) {
	e := echo.New()
	httpserver.NewHealthEndpoints(httpserver.NewDependencies(0,
		httpserver.Dependency{Name: "websocket_hub", Critical: true, Check: func(context.Context) error {
			return errors.New("hub not running")
		}},
	)).Register(e)

	rec := serve(e, http.MethodGet, "/ready", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	resp := decodeHealth(t, rec.Body.Bytes())
	require.Len(t, resp.Components, 1)
	assert.Equal(t, "hub not running", resp.Components[0].Message)
}
