package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lllypuk/threadline/internal/domain/event"
)

// LocalEventBus delivers events to handlers registered in the same process.
// Events go through the same envelope as RedisEventBus so subscribers
// observe identical PayloadEvent values in both modes.
type LocalEventBus struct {
	*dispatcher
}

// LocalOption configures a LocalEventBus.
type LocalOption func(*LocalEventBus)

// WithLocalLogger sets the logger for the local bus.
func WithLocalLogger(logger *slog.Logger) LocalOption {
	return func(b *LocalEventBus) {
		b.logger = logger
	}
}

// WithLocalRetryConfig sets the retry configuration for the local bus.
func WithLocalRetryConfig(config RetryConfig) LocalOption {
	return func(b *LocalEventBus) {
		b.retryConfig = config
	}
}

// NewLocalEventBus creates an in-process event bus.
func NewLocalEventBus(opts ...LocalOption) *LocalEventBus {
	b := &LocalEventBus{dispatcher: newDispatcher()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Publish hands the event to every subscribed handler asynchronously.
// Handlers run with a context detached from the publisher's cancellation.
func (b *LocalEventBus) Publish(ctx context.Context, evt event.DomainEvent) error {
	if evt == nil {
		return errors.New("event cannot be nil")
	}

	envelope, err := newEnvelope(evt)
	if err != nil {
		return fmt.Errorf("failed to create event envelope: %w", err)
	}

	b.dispatch(context.WithoutCancel(ctx), envelope)
	return nil
}

// Subscribe registers an event handler for a specific event type.
func (b *LocalEventBus) Subscribe(eventType string, handler EventHandler) error {
	return b.subscribe(eventType, handler)
}

// HandlerCount returns the number of handlers registered for an event type.
func (b *LocalEventBus) HandlerCount(eventType string) int {
	return b.handlerCount(eventType)
}

// Wait blocks until all in-flight handlers finish.
func (b *LocalEventBus) Wait() {
	b.wg.Wait()
}

var _ event.Bus = (*LocalEventBus)(nil)
