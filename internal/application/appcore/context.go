package appcore

import (
	"context"
)

type contextKey string

const correlationIDKey contextKey = "correlationID"

// Caller describes the authenticated user and the workspace the request is scoped to.
// It is supplied by the authorization boundary and trusted as is.
type Caller struct {
	UserID      string
	Email       string
	Name        string
	Picture     string
	WorkspaceID string
}

// GetCorrelationID extracts the correlation ID from the context
func GetCorrelationID(ctx context.Context) string {
	correlationID, _ := ctx.Value(correlationIDKey).(string)
	return correlationID
}

// WithCorrelationID adds the correlation ID to the context
func WithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, correlationIDKey, correlationID)
}
