package event

import (
	"context"
	"time"
)

// DomainEvent represents a domain event
type DomainEvent interface {
	// EventType returns the event type
	EventType() string

	// AggregateID returns the aggregate ID
	AggregateID() string

	// AggregateType returns the aggregate type
	AggregateType() string

	// OccurredAt returns the time when the event occurred
	OccurredAt() time.Time

	// Metadata returns the event metadata
	Metadata() Metadata
}

// Bus is an interface for publishing events
type Bus interface {
	// Publish publishes an event
	Publish(ctx context.Context, event DomainEvent) error
}

// BaseEvent базовая реализация DomainEvent
type BaseEvent struct {
	eventType     string
	aggregateID   string
	aggregateType string
	occurredAt    time.Time
	metadata      Metadata
}

// NewBaseEvent создает новое базовое событие
func NewBaseEvent(eventType, aggregateID, aggregateType string, metadata Metadata) BaseEvent {
	return BaseEvent{
		eventType:     eventType,
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
		occurredAt:    time.Now().UTC(),
		metadata:      metadata,
	}
}

// EventType возвращает тип события
func (e BaseEvent) EventType() string {
	return e.eventType
}

// AggregateID возвращает ID агрегата
func (e BaseEvent) AggregateID() string {
	return e.aggregateID
}

// AggregateType возвращает тип агрегата
func (e BaseEvent) AggregateType() string {
	return e.aggregateType
}

// OccurredAt возвращает время возникновения события
func (e BaseEvent) OccurredAt() time.Time {
	return e.occurredAt
}

// Metadata возвращает метаданные события
func (e BaseEvent) Metadata() Metadata {
	return e.metadata
}
