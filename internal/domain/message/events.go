package message

import (
	"github.com/lllypuk/threadline/internal/domain/event"
)

const (
	// EventTypeMessageCreated событие создания сообщения или ответа
	EventTypeMessageCreated = "message.created"
	// EventTypeMessageUpdated событие редактирования сообщения
	EventTypeMessageUpdated = "message.updated"
	// EventTypeReactionToggled событие переключения реакции
	EventTypeReactionToggled = "message.reaction_toggled"

	aggregateType = "message"
)

// Created событие создания сообщения
type Created struct {
	event.BaseEvent

	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	ThreadID  string `json:"thread_id,omitempty"`
	AuthorID  string `json:"author_id"`
}

// NewCreated создает событие Created
func NewCreated(m *Message, metadata event.Metadata) *Created {
	return &Created{
		BaseEvent: event.NewBaseEvent(EventTypeMessageCreated, m.ID().String(), aggregateType, metadata),
		MessageID: m.ID().String(),
		ChannelID: m.ChannelID().String(),
		ThreadID:  m.ThreadID().String(),
		AuthorID:  m.Author().ID,
	}
}

// Updated событие редактирования сообщения
type Updated struct {
	event.BaseEvent

	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	ThreadID  string `json:"thread_id,omitempty"`
}

// NewUpdated создает событие Updated
func NewUpdated(m *Message, metadata event.Metadata) *Updated {
	return &Updated{
		BaseEvent: event.NewBaseEvent(EventTypeMessageUpdated, m.ID().String(), aggregateType, metadata),
		MessageID: m.ID().String(),
		ChannelID: m.ChannelID().String(),
		ThreadID:  m.ThreadID().String(),
	}
}

// ReactionToggled событие переключения реакции
type ReactionToggled struct {
	event.BaseEvent

	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
	ThreadID  string `json:"thread_id,omitempty"`
	UserID    string `json:"user_id"`
	Emoji     string `json:"emoji"`
	Added     bool   `json:"added"`
}

// NewReactionToggled создает событие ReactionToggled
func NewReactionToggled(m *Message, userID, emoji string, added bool, metadata event.Metadata) *ReactionToggled {
	return &ReactionToggled{
		BaseEvent: event.NewBaseEvent(EventTypeReactionToggled, m.ID().String(), aggregateType, metadata),
		MessageID: m.ID().String(),
		ChannelID: m.ChannelID().String(),
		ThreadID:  m.ThreadID().String(),
		UserID:    userID,
		Emoji:     emoji,
		Added:     added,
	}
}
