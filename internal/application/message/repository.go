package message

import (
	"context"

	"github.com/lllypuk/threadline/internal/domain/channel"
	"github.com/lllypuk/threadline/internal/domain/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// PageQuery describes one keyset batch of root messages.
type PageQuery struct {
	ChannelID uuid.UUID
	Cursor    uuid.UUID
	Limit     int
}

// MessageRepository is the store contract for messages (consumer-side interface).
type MessageRepository interface {
	// FindByID returns errs.ErrNotFound when the message is missing or belongs to another workspace.
	FindByID(ctx context.Context, workspaceID string, id uuid.UUID) (*message.Message, error)

	// FindPage returns root messages of a channel ordered by (created_at desc, id desc),
	// starting strictly after the cursor row. A cursor that no longer exists falls back
	// to id ordering, which UUIDv7 keeps aligned with creation time.
	FindPage(ctx context.Context, query PageQuery) ([]*message.Message, error)

	// FindThread returns replies of a root message ordered by (created_at asc, id asc).
	FindThread(ctx context.Context, parentID uuid.UUID) ([]*message.Message, error)

	// CountReplies counts child rows per parent at read time. Missing keys mean zero.
	CountReplies(ctx context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int, error)

	// Save inserts or replaces a message.
	Save(ctx context.Context, msg *message.Message) error
}

// ReactionRepository is the store contract for reaction rows.
type ReactionRepository interface {
	// Insert adds a row and returns errs.ErrAlreadyExists when the
	// (message, user, emoji) unique constraint suppressed the insert.
	Insert(ctx context.Context, reaction message.Reaction) error

	// Delete removes the row for the triple. Deleting a missing row is not an error.
	Delete(ctx context.Context, messageID uuid.UUID, userID, emoji string) error

	// FindByMessageIDs returns rows ordered by creation, oldest first.
	FindByMessageIDs(ctx context.Context, messageIDs []uuid.UUID) ([]message.Reaction, error)
}

// ChannelRepository resolves channels within a workspace.
type ChannelRepository interface {
	FindByID(ctx context.Context, workspaceID string, id uuid.UUID) (*channel.Channel, error)
}
