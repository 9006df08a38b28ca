package message

import (
	"context"
	"errors"
	"fmt"

	"github.com/lllypuk/threadline/internal/domain/channel"
	"github.com/lllypuk/threadline/internal/domain/errs"
	"github.com/lllypuk/threadline/internal/domain/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// findChannel resolves a channel inside the caller's workspace.
// Missing and foreign channels are both reported as ErrChannelNotFound.
func findChannel(
	ctx context.Context,
	repo ChannelRepository,
	workspaceID string,
	channelID uuid.UUID,
) (*channel.Channel, error) {
	ch, err := repo.FindByID(ctx, workspaceID, channelID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, ErrChannelNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load channel: %w", err)
	}
	if ch.WorkspaceID() != workspaceID {
		return nil, ErrChannelNotFound
	}
	return ch, nil
}

// findMessage resolves a message inside the caller's workspace.
func findMessage(
	ctx context.Context,
	repo MessageRepository,
	workspaceID string,
	messageID uuid.UUID,
) (*message.Message, error) {
	msg, err := repo.FindByID(ctx, workspaceID, messageID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}
	if msg.WorkspaceID() != workspaceID {
		return nil, ErrMessageNotFound
	}
	return msg, nil
}
