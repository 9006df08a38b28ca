package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/infrastructure/auth"
)

type contextKey string

// ContextKeyClaims is the echo context key holding *auth.Claims.
const ContextKeyClaims contextKey = "claims"

// Auth errors.
var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthHeader = errors.New("invalid authorization header format")
)

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*auth.Claims, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger         *slog.Logger
	TokenValidator TokenValidator

	// SkipPaths are paths that don't require authentication.
	SkipPaths []string

	// QueryTokenParam, when set, is read if the Authorization header is absent.
	// Browsers cannot set headers on WebSocket upgrades.
	QueryTokenParam string
}

// DefaultAuthConfig returns an AuthConfig with sensible defaults.
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		Logger:          slog.Default(),
		SkipPaths:       []string{"/health", "/ready", "/metrics"},
		QueryTokenParam: "access_token",
	}
}

// Auth returns an authentication middleware with the given configuration.
func Auth(config AuthConfig) echo.MiddlewareFunc {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	skipPaths := make(map[string]struct{}, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skipPaths[path] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Request().URL.Path
			if _, ok := skipPaths[path]; ok {
				return next(c)
			}

			token, err := extractToken(c, config.QueryTokenParam)
			if err != nil {
				return respondAuthError(c, err)
			}

			if config.TokenValidator == nil {
				config.Logger.Error("token validator not configured")
				return respondAuthError(c, auth.ErrInvalidToken)
			}

			claims, err := config.TokenValidator.Validate(c.Request().Context(), token)
			if err != nil {
				config.Logger.Warn("token validation failed",
					slog.String("error", err.Error()),
					slog.String("path", path),
					slog.String("remote_ip", c.RealIP()),
				)
				return respondAuthError(c, err)
			}

			c.Set(string(ContextKeyClaims), claims)

			config.Logger.Debug("user authenticated",
				slog.String("user_id", claims.UserID),
				slog.String("path", path),
			)

			return next(c)
		}
	}
}

func extractToken(c echo.Context, queryParam string) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header != "" {
		return extractBearerToken(header)
	}

	if queryParam != "" {
		if token := c.QueryParam(queryParam); token != "" {
			return token, nil
		}
	}

	return "", ErrMissingAuthHeader
}

func extractBearerToken(authHeader string) (string, error) {
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthHeader
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrInvalidAuthHeader
	}

	return token, nil
}

func respondAuthError(c echo.Context, err error) error {
	code := "UNAUTHORIZED"
	message := "Authentication required"

	switch {
	case errors.Is(err, ErrMissingAuthHeader):
		message = "Missing authorization header"
	case errors.Is(err, ErrInvalidAuthHeader):
		message = "Invalid authorization header format"
	case errors.Is(err, auth.ErrTokenExpired):
		code = "TOKEN_EXPIRED"
		message = "Token has expired"
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrInvalidIssuer),
		errors.Is(err, auth.ErrInvalidAudience),
		errors.Is(err, auth.ErrMissingSubject):
		message = "Invalid token"
	}

	return respondError(c, http.StatusUnauthorized, code, message)
}

func respondError(c echo.Context, status int, code, message string) error {
	return c.JSON(status, map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}

// GetClaims extracts the validated token claims from the echo context.
func GetClaims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(string(ContextKeyClaims)).(*auth.Claims)
	return claims
}

// GetUserID returns the authenticated user ID or an empty string.
func GetUserID(c echo.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.UserID
	}
	return ""
}

// GetCaller builds the caller identity for use cases from the authenticated
// claims and the workspace selected by WorkspaceAccess.
func GetCaller(c echo.Context) appcore.Caller {
	caller := appcore.Caller{WorkspaceID: GetWorkspaceID(c)}
	if claims := GetClaims(c); claims != nil {
		caller.UserID = claims.UserID
		caller.Email = claims.Email
		caller.Name = claims.GivenName
		caller.Picture = claims.Picture
	}
	return caller
}
