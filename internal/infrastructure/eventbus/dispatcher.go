package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lllypuk/threadline/internal/domain/event"
)

// Default retry configuration constants.
const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 100 * time.Millisecond
	defaultMaxBackoff     = 5 * time.Second
	defaultBackoffFactor  = 2.0
)

// EventHandler is a function that handles domain events.
// It is an alias so consumers can declare Subscribe with a plain func type.
type EventHandler = func(ctx context.Context, event event.DomainEvent) error

// RetryConfig configures retry behavior for event handling.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     defaultMaxRetries,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
		BackoffFactor:  defaultBackoffFactor,
	}
}

// dispatcher keeps handler registrations and runs them with retries.
// Both bus implementations share it.
type dispatcher struct {
	handlers    map[string][]EventHandler
	handlersMu  sync.RWMutex
	wg          sync.WaitGroup
	logger      *slog.Logger
	retryConfig RetryConfig
}

func newDispatcher() *dispatcher {
	return &dispatcher{
		handlers:    make(map[string][]EventHandler),
		logger:      slog.Default(),
		retryConfig: DefaultRetryConfig(),
	}
}

func (d *dispatcher) subscribe(eventType string, handler EventHandler) error {
	if eventType == "" {
		return errors.New("event type cannot be empty")
	}
	if handler == nil {
		return errors.New("handler cannot be nil")
	}

	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()

	d.handlers[eventType] = append(d.handlers[eventType], handler)

	return nil
}

func (d *dispatcher) handlerCount(eventType string) int {
	d.handlersMu.RLock()
	defer d.handlersMu.RUnlock()
	return len(d.handlers[eventType])
}

func (d *dispatcher) eventTypes() []string {
	d.handlersMu.RLock()
	defer d.handlersMu.RUnlock()

	types := make([]string, 0, len(d.handlers))
	for eventType := range d.handlers {
		types = append(types, eventType)
	}
	return types
}

// dispatch starts every handler registered for the envelope's event type.
func (d *dispatcher) dispatch(ctx context.Context, envelope eventEnvelope) {
	evt := &deliveredEvent{envelope: envelope}

	d.handlersMu.RLock()
	handlers := d.handlers[envelope.EventType]
	d.handlersMu.RUnlock()

	for i, handler := range handlers {
		d.wg.Add(1)
		go d.executeHandler(ctx, handler, evt, i)
	}
}

// executeHandler runs a single event handler with retry logic.
func (d *dispatcher) executeHandler(
	ctx context.Context,
	handler EventHandler,
	evt event.DomainEvent,
	handlerIndex int,
) {
	defer d.wg.Done()

	var lastErr error
	backoff := d.retryConfig.InitialBackoff

	for attempt := 0; attempt <= d.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			d.logger.DebugContext(ctx, "retrying event handler",
				slog.String("event_type", evt.EventType()),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", backoff),
			)

			select {
			case <-ctx.Done():
				d.logger.WarnContext(ctx, "handler retry cancelled",
					slog.String("event_type", evt.EventType()),
					slog.String("error", ctx.Err().Error()),
				)
				return
			case <-time.After(backoff):
			}

			backoff = min(time.Duration(float64(backoff)*d.retryConfig.BackoffFactor), d.retryConfig.MaxBackoff)
		}

		if err := handler(ctx, evt); err != nil {
			lastErr = err
			d.logger.WarnContext(ctx, "event handler failed",
				slog.String("event_type", evt.EventType()),
				slog.String("aggregate_id", evt.AggregateID()),
				slog.Int("handler_index", handlerIndex),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
			continue
		}

		d.logger.DebugContext(ctx, "event handler completed",
			slog.String("event_type", evt.EventType()),
			slog.String("aggregate_id", evt.AggregateID()),
			slog.Int("handler_index", handlerIndex),
		)
		return
	}

	d.logger.ErrorContext(ctx, "event handler failed after all retries",
		slog.String("event_type", evt.EventType()),
		slog.String("aggregate_id", evt.AggregateID()),
		slog.Int("handler_index", handlerIndex),
		slog.Int("max_retries", d.retryConfig.MaxRetries),
		slog.String("error", lastErr.Error()),
	)
}
