package message

import (
	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// CreateMessageCommand creates a root message or, with ThreadID set, a reply.
type CreateMessageCommand struct {
	Caller    appcore.Caller
	ChannelID uuid.UUID
	Content   string
	ImageURL  string
	ThreadID  uuid.UUID
}

// CommandName returns command name
func (c CreateMessageCommand) CommandName() string { return "CreateMessage" }

// UpdateMessageCommand replaces message content.
type UpdateMessageCommand struct {
	Caller    appcore.Caller
	MessageID uuid.UUID
	Content   string
}

// CommandName returns command name
func (c UpdateMessageCommand) CommandName() string { return "UpdateMessage" }

// ToggleReactionCommand flips the caller's reaction on a message.
type ToggleReactionCommand struct {
	Caller    appcore.Caller
	MessageID uuid.UUID
	Emoji     string
}

// CommandName returns command name
func (c ToggleReactionCommand) CommandName() string { return "ToggleReaction" }
