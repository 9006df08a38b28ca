package eventbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lllypuk/threadline/internal/domain/event"
)

// PayloadEvent is implemented by events delivered through a bus.
// Subscribers use it to decode event-specific fields such as channel_id.
type PayloadEvent interface {
	event.DomainEvent

	EventID() string
	Payload() json.RawMessage
}

// eventEnvelope wraps a domain event with metadata for serialization.
type eventEnvelope struct {
	ID            string          `json:"id"`
	EventType     string          `json:"event_type"`
	AggregateID   string          `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Metadata      metadataJSON    `json:"metadata"`
	Payload       json.RawMessage `json:"payload"`
}

// metadataJSON is a JSON-serializable version of event.Metadata.
type metadataJSON struct {
	UserID        string    `json:"user_id"`
	WorkspaceID   string    `json:"workspace_id"`
	CorrelationID string    `json:"correlation_id"`
	Timestamp     time.Time `json:"timestamp"`
}

func toMetadataJSON(m event.Metadata) metadataJSON {
	return metadataJSON{
		UserID:        m.UserID,
		WorkspaceID:   m.WorkspaceID,
		CorrelationID: m.CorrelationID,
		Timestamp:     m.Timestamp,
	}
}

func (m metadataJSON) toMetadata() event.Metadata {
	return event.Metadata{
		UserID:        m.UserID,
		WorkspaceID:   m.WorkspaceID,
		CorrelationID: m.CorrelationID,
		Timestamp:     m.Timestamp,
	}
}

// newEnvelope wraps a domain event in an envelope for serialization.
func newEnvelope(evt event.DomainEvent) (eventEnvelope, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return eventEnvelope{}, fmt.Errorf("failed to marshal event payload: %w", err)
	}

	return eventEnvelope{
		ID:            uuid.New().String(),
		EventType:     evt.EventType(),
		AggregateID:   evt.AggregateID(),
		AggregateType: evt.AggregateType(),
		OccurredAt:    evt.OccurredAt(),
		Metadata:      toMetadataJSON(evt.Metadata()),
		Payload:       payload,
	}, nil
}

// deliveredEvent is the DomainEvent handed to subscribers.
type deliveredEvent struct {
	envelope eventEnvelope
}

func (e *deliveredEvent) EventID() string          { return e.envelope.ID }
func (e *deliveredEvent) EventType() string        { return e.envelope.EventType }
func (e *deliveredEvent) AggregateID() string      { return e.envelope.AggregateID }
func (e *deliveredEvent) AggregateType() string    { return e.envelope.AggregateType }
func (e *deliveredEvent) OccurredAt() time.Time    { return e.envelope.OccurredAt }
func (e *deliveredEvent) Payload() json.RawMessage { return e.envelope.Payload }

func (e *deliveredEvent) Metadata() event.Metadata {
	return e.envelope.Metadata.toMetadata()
}
