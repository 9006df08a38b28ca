package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lllypuk/threadline/internal/domain/event"
	"github.com/lllypuk/threadline/internal/domain/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// EventBus defines the interface for subscribing to domain events.
type EventBus interface {
	Subscribe(eventType string, handler func(ctx context.Context, event event.DomainEvent) error) error
}

// PayloadProvider is implemented by events that carry a JSON payload.
type PayloadProvider interface {
	Payload() json.RawMessage
}

// BroadcastRecorder receives push metrics.
type BroadcastRecorder interface {
	EventBroadcast(eventType string)
}

// Outbound message types.
const (
	TypeMessageNew       = "message.new"
	TypeMessageUpdated   = "message.updated"
	TypeReactionsChanged = "reactions.changed"
)

// OutboundMessage is a change notification sent to subscribed clients.
type OutboundMessage struct {
	Type      string          `json:"type"`
	ChannelID string          `json:"channel_id"`
	MessageID string          `json:"message_id"`
	ThreadID  string          `json:"thread_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// feedPayload holds the routing fields shared by message events.
type feedPayload struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	ThreadID  string `json:"thread_id"`
}

var errMissingChannel = errors.New("event payload has no channel_id")

// Broadcaster forwards message events from the bus to channel rooms.
type Broadcaster struct {
	hub      *Hub
	eventBus EventBus
	logger   *slog.Logger
	recorder BroadcastRecorder

	eventTypes map[string]string

	running   bool
	runningMu sync.RWMutex
}

// BroadcasterOption configures a Broadcaster.
type BroadcasterOption func(*Broadcaster)

// WithBroadcasterLogger sets the logger for the broadcaster.
func WithBroadcasterLogger(logger *slog.Logger) BroadcasterOption {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithBroadcastRecorder sets the push metrics recorder.
func WithBroadcastRecorder(recorder BroadcastRecorder) BroadcasterOption {
	return func(b *Broadcaster) {
		b.recorder = recorder
	}
}

// DefaultEventTypes maps domain event types to outbound message types.
func DefaultEventTypes() map[string]string {
	return map[string]string{
		message.EventTypeMessageCreated:  TypeMessageNew,
		message.EventTypeMessageUpdated:  TypeMessageUpdated,
		message.EventTypeReactionToggled: TypeReactionsChanged,
	}
}

// NewBroadcaster creates a new Broadcaster.
func NewBroadcaster(hub *Hub, eventBus EventBus, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		hub:        hub,
		eventBus:   eventBus,
		logger:     slog.Default(),
		eventTypes: DefaultEventTypes(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Start subscribes to the event bus. It does not block.
func (b *Broadcaster) Start(ctx context.Context) error {
	b.runningMu.Lock()
	defer b.runningMu.Unlock()

	if b.running {
		return nil
	}

	for eventType := range b.eventTypes {
		if err := b.eventBus.Subscribe(eventType, b.HandleEvent); err != nil {
			return fmt.Errorf("subscribe to %s: %w", eventType, err)
		}
	}
	b.running = true

	b.logger.InfoContext(ctx, "websocket broadcaster started",
		slog.Int("event_types", len(b.eventTypes)),
	)

	return nil
}

// IsRunning returns whether the broadcaster is running.
func (b *Broadcaster) IsRunning() bool {
	b.runningMu.RLock()
	defer b.runningMu.RUnlock()
	return b.running
}

// HandleEvent routes one event to the room of its channel.
// Malformed events are logged and acknowledged so the bus does not retry them.
func (b *Broadcaster) HandleEvent(ctx context.Context, evt event.DomainEvent) error {
	wsType, ok := b.eventTypes[evt.EventType()]
	if !ok {
		return nil
	}

	room, out, err := b.transform(evt, wsType)
	if err != nil {
		b.logger.WarnContext(ctx, "event not routable",
			slog.String("event_type", evt.EventType()),
			slog.String("aggregate_id", evt.AggregateID()),
			slog.String("error", err.Error()),
		)
		return nil
	}

	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("marshal websocket message: %w", err)
	}

	b.hub.BroadcastToRoom(room, data)
	if b.recorder != nil {
		b.recorder.EventBroadcast(evt.EventType())
	}

	b.logger.DebugContext(ctx, "broadcast message to channel",
		slog.String("event_type", evt.EventType()),
		slog.String("channel_id", out.ChannelID),
	)

	return nil
}

func (b *Broadcaster) transform(evt event.DomainEvent, wsType string) (Room, OutboundMessage, error) {
	provider, ok := evt.(PayloadProvider)
	if !ok {
		return Room{}, OutboundMessage{}, errMissingChannel
	}

	var payload feedPayload
	if err := json.Unmarshal(provider.Payload(), &payload); err != nil {
		return Room{}, OutboundMessage{}, fmt.Errorf("decode payload: %w", err)
	}

	channelID, err := uuid.ParseUUID(payload.ChannelID)
	if err != nil {
		return Room{}, OutboundMessage{}, errMissingChannel
	}

	messageID := payload.MessageID
	if messageID == "" {
		messageID = evt.AggregateID()
	}

	room := Room{WorkspaceID: evt.Metadata().WorkspaceID, ChannelID: channelID}
	out := OutboundMessage{
		Type:      wsType,
		ChannelID: channelID.String(),
		MessageID: messageID,
		ThreadID:  payload.ThreadID,
		Data:      provider.Payload(),
	}
	return room, out, nil
}
