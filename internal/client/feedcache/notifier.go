package feedcache

import (
	"context"
	"log/slog"
)

// LogNotifier reports mutation outcomes to a structured log.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a LogNotifier. A nil logger uses slog.Default.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

// Success logs a completed mutation.
func (n *LogNotifier) Success(ctx context.Context, op string) {
	n.logger.InfoContext(ctx, "mutation succeeded", slog.String("op", op))
}

// Failure logs a failed mutation. APIError details are added when present.
func (n *LogNotifier) Failure(ctx context.Context, op string, err error) {
	attrs := []any{
		slog.String("op", op),
		slog.String("error", err.Error()),
	}
	if apiErr, ok := AsAPIError(err); ok {
		attrs = append(attrs,
			slog.Int("status", apiErr.Status),
			slog.String("code", apiErr.Code),
		)
	}
	n.logger.ErrorContext(ctx, "mutation failed", attrs...)
}
