package message

import (
	"context"
	"log/slog"

	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/domain/event"
)

// Metrics receives feed counters (consumer-side interface).
type Metrics interface {
	PageServed(size int)
	MessageCreated(reply bool)
	ReactionToggled(added bool)
}

type noopMetrics struct{}

func (noopMetrics) PageServed(int)       {}
func (noopMetrics) MessageCreated(bool)  {}
func (noopMetrics) ReactionToggled(bool) {}

// Option configures optional collaborators of the use cases.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	metrics Metrics
	bus     event.Bus
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(metrics Metrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithEventBus sets the bus that receives message events.
func WithEventBus(bus event.Bus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

func buildOptions(opts []Option) options {
	o := options{
		logger:  slog.Default(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish is best effort: the write is already persisted.
func (o options) publish(ctx context.Context, evt event.DomainEvent) {
	if o.bus == nil {
		return
	}
	if err := o.bus.Publish(ctx, evt); err != nil {
		o.logger.WarnContext(ctx, "failed to publish event",
			slog.String("event_type", evt.EventType()),
			slog.String("aggregate_id", evt.AggregateID()),
			slog.String("error", err.Error()),
		)
	}
}

func eventMetadata(ctx context.Context, caller appcore.Caller) event.Metadata {
	return event.NewMetadata(caller.UserID, caller.WorkspaceID, appcore.GetCorrelationID(ctx))
}
