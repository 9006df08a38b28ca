package channel

import (
	"context"

	"github.com/lllypuk/threadline/internal/domain/channel"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// Repository is the store contract for channels (consumer-side interface).
type Repository interface {
	// FindByID returns errs.ErrNotFound when the channel is missing or belongs to another workspace.
	FindByID(ctx context.Context, workspaceID string, id uuid.UUID) (*channel.Channel, error)

	// ListByWorkspace returns channels ordered by creation time.
	ListByWorkspace(ctx context.Context, workspaceID string) ([]*channel.Channel, error)

	// Save inserts a channel and returns errs.ErrAlreadyExists on a duplicate name.
	Save(ctx context.Context, ch *channel.Channel) error
}
