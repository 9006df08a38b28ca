package message

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/domain/errs"
	"github.com/lllypuk/threadline/internal/domain/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// ToggleReactionUseCase flips one (message, user, emoji) row and returns the grouped view.
//
// The toggle is insert-then-delete: the unique index on the triple decides whether the
// insert takes effect, so there is no read-before-write. Two concurrent toggles of the
// same triple resolve in store order (last write wins).
type ToggleReactionUseCase struct {
	messages  MessageRepository
	reactions ReactionRepository
	gate      Gate
	opts      options
}

// NewToggleReactionUseCase creates a new ToggleReactionUseCase
func NewToggleReactionUseCase(
	messages MessageRepository,
	reactions ReactionRepository,
	gate Gate,
	opts ...Option,
) *ToggleReactionUseCase {
	return &ToggleReactionUseCase{
		messages:  messages,
		reactions: reactions,
		gate:      gate,
		opts:      buildOptions(opts),
	}
}

// Execute toggles the caller's reaction.
func (uc *ToggleReactionUseCase) Execute(ctx context.Context, cmd ToggleReactionCommand) (ReactionsView, error) {
	if err := uc.validate(cmd); err != nil {
		return ReactionsView{}, err
	}

	if err := uc.gate.Check(ctx, GateRequest{
		UserID:      cmd.Caller.UserID,
		WorkspaceID: cmd.Caller.WorkspaceID,
		Action:      ActionToggleReaction,
	}); err != nil {
		return ReactionsView{}, err
	}

	msg, err := findMessage(ctx, uc.messages, cmd.Caller.WorkspaceID, cmd.MessageID)
	if err != nil {
		return ReactionsView{}, err
	}

	added, err := uc.toggle(ctx, msg.ID(), cmd.Caller.UserID, cmd.Emoji)
	if err != nil {
		return ReactionsView{}, err
	}

	rows, err := uc.reactions.FindByMessageIDs(ctx, []uuid.UUID{msg.ID()})
	if err != nil {
		return ReactionsView{}, fmt.Errorf("failed to load reactions: %w", err)
	}

	uc.opts.logger.DebugContext(ctx, "reaction toggled",
		slog.String("message_id", msg.ID().String()),
		slog.String("emoji", cmd.Emoji),
		slog.Bool("added", added),
	)
	uc.opts.metrics.ReactionToggled(added)
	uc.opts.publish(ctx, message.NewReactionToggled(msg, cmd.Caller.UserID, cmd.Emoji, added, eventMetadata(ctx, cmd.Caller)))

	return ReactionsView{
		MessageID: msg.ID().String(),
		Reactions: message.GroupReactions(rows, cmd.Caller.UserID).Slice(),
	}, nil
}

// toggle reports whether the row now exists.
func (uc *ToggleReactionUseCase) toggle(ctx context.Context, messageID uuid.UUID, userID, emoji string) (bool, error) {
	reaction, err := message.NewReaction(messageID, userID, emoji)
	if err != nil {
		return false, ErrInvalidEmoji
	}

	insertErr := uc.reactions.Insert(ctx, reaction)
	if insertErr == nil {
		return true, nil
	}
	if !errors.Is(insertErr, errs.ErrAlreadyExists) {
		return false, fmt.Errorf("failed to insert reaction: %w", insertErr)
	}

	if deleteErr := uc.reactions.Delete(ctx, messageID, userID, emoji); deleteErr != nil {
		return false, fmt.Errorf("failed to delete reaction: %w", deleteErr)
	}
	return false, nil
}

func (uc *ToggleReactionUseCase) validate(cmd ToggleReactionCommand) error {
	if err := appcore.ValidateRequired("userID", cmd.Caller.UserID); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := appcore.ValidateUUID("messageID", cmd.MessageID); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := message.ValidateEmoji(cmd.Emoji); err != nil {
		return ErrInvalidEmoji
	}
	return nil
}
