package gate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lllypuk/threadline/internal/application/message"
)

// Recorder receives rejection counts.
type Recorder interface {
	GateRejected(reason string)
}

type noopRecorder struct{}

func (noopRecorder) GateRejected(string) {}

// Gate checks mutations against a per-user write limit and the sensitive-info detector.
type Gate struct {
	limiter  Limiter
	detector *Detector
	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Gate.
type Option func(*Gate)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gate) {
		g.logger = logger
	}
}

// WithRecorder sets the rejection recorder.
func WithRecorder(recorder Recorder) Option {
	return func(g *Gate) {
		g.recorder = recorder
	}
}

// New creates a Gate. A nil limiter disables rate limiting and a nil detector disables content checks.
func New(limiter Limiter, detector *Detector, opts ...Option) *Gate {
	g := &Gate{
		limiter:  limiter,
		detector: detector,
		logger:   slog.Default(),
		recorder: noopRecorder{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Check implements message.Gate.
func (g *Gate) Check(ctx context.Context, req message.GateRequest) error {
	if g.limiter != nil {
		decision, err := g.limiter.Allow(ctx, writeKey(req))
		if err != nil {
			// Fail open: a limiter outage must not block writes.
			g.logger.ErrorContext(ctx, "write limiter failed",
				slog.String("user_id", req.UserID),
				slog.String("error", err.Error()),
			)
		} else if !decision.Allowed {
			return g.reject(ctx, req, &Rejection{Reason: ReasonRateLimit, RetryAfter: decision.RetryAfter})
		}
	}

	if g.detector != nil && req.Content != "" {
		if findings := g.detector.Detect(req.Content); len(findings) > 0 {
			return g.reject(ctx, req, &Rejection{Reason: ReasonSensitiveInfo, Findings: findings})
		}
	}

	return nil
}

func (g *Gate) reject(ctx context.Context, req message.GateRequest, rejection *Rejection) error {
	g.logger.WarnContext(ctx, "mutation rejected by gate",
		slog.String("user_id", req.UserID),
		slog.String("workspace_id", req.WorkspaceID),
		slog.String("action", string(req.Action)),
		slog.String("reason", string(rejection.Reason)),
	)
	g.recorder.GateRejected(string(rejection.Reason))
	return rejection
}

func writeKey(req message.GateRequest) string {
	return fmt.Sprintf("write:user:%s", req.UserID)
}

var _ message.Gate = (*Gate)(nil)
