package middleware

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

// ContextKeyWorkspaceID is the echo context key for the authorized workspace.
const ContextKeyWorkspaceID contextKey = "workspace_id"

const defaultWorkspaceIDParam = "workspace_id"

// WorkspaceConfig holds configuration for the workspace middleware.
type WorkspaceConfig struct {
	Logger *slog.Logger

	// WorkspaceIDParam is the path parameter containing the workspace ID.
	// Default is "workspace_id".
	WorkspaceIDParam string
}

// DefaultWorkspaceConfig returns a WorkspaceConfig with sensible defaults.
func DefaultWorkspaceConfig() WorkspaceConfig {
	return WorkspaceConfig{
		Logger:           slog.Default(),
		WorkspaceIDParam: defaultWorkspaceIDParam,
	}
}

// WorkspaceAccess admits the request only when the token lists the path workspace
// among the caller's organizations. It must run after Auth.
func WorkspaceAccess(config WorkspaceConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkspaceIDParam == "" {
		config.WorkspaceIDParam = defaultWorkspaceIDParam
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			workspaceID := c.Param(config.WorkspaceIDParam)
			if workspaceID == "" {
				return respondError(c, http.StatusBadRequest, "WORKSPACE_ID_REQUIRED", "Workspace ID is required")
			}

			claims := GetClaims(c)
			if claims == nil {
				return respondAuthError(c, ErrMissingAuthHeader)
			}

			if !claims.HasWorkspace(workspaceID) {
				config.Logger.Debug("user not a member of workspace",
					slog.String("workspace_id", workspaceID),
					slog.String("user_id", claims.UserID),
				)
				return respondError(c, http.StatusForbidden, "NOT_WORKSPACE_MEMBER",
					"You are not a member of this workspace")
			}

			c.Set(string(ContextKeyWorkspaceID), workspaceID)
			return next(c)
		}
	}
}

// GetWorkspaceID extracts the authorized workspace ID from the echo context.
func GetWorkspaceID(c echo.Context) string {
	id, _ := c.Get(string(ContextKeyWorkspaceID)).(string)
	return id
}
