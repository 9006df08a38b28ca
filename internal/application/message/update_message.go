package message

import (
	"context"
	"errors"
	"fmt"

	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/domain/errs"
	"github.com/lllypuk/threadline/internal/domain/message"
)

// UpdateMessageUseCase edits message content. Only the original author may edit.
type UpdateMessageUseCase struct {
	messages MessageRepository
	enricher enricher
	gate     Gate
	opts     options
}

// NewUpdateMessageUseCase creates a new UpdateMessageUseCase
func NewUpdateMessageUseCase(
	messages MessageRepository,
	reactions ReactionRepository,
	gate Gate,
	opts ...Option,
) *UpdateMessageUseCase {
	return &UpdateMessageUseCase{
		messages: messages,
		enricher: enricher{messages: messages, reactions: reactions},
		gate:     gate,
		opts:     buildOptions(opts),
	}
}

// Execute performs the edit and returns the enriched message.
func (uc *UpdateMessageUseCase) Execute(ctx context.Context, cmd UpdateMessageCommand) (UpdateResult, error) {
	if err := uc.validate(cmd); err != nil {
		return UpdateResult{}, err
	}

	if err := uc.gate.Check(ctx, GateRequest{
		UserID:      cmd.Caller.UserID,
		WorkspaceID: cmd.Caller.WorkspaceID,
		Action:      ActionUpdateMessage,
		Content:     cmd.Content,
	}); err != nil {
		return UpdateResult{}, err
	}

	msg, err := findMessage(ctx, uc.messages, cmd.Caller.WorkspaceID, cmd.MessageID)
	if err != nil {
		return UpdateResult{}, err
	}

	if editErr := msg.EditContent(cmd.Content, cmd.Caller.UserID); editErr != nil {
		if errors.Is(editErr, errs.ErrForbidden) {
			return UpdateResult{}, ErrNotAuthor
		}
		return UpdateResult{}, ErrInvalidContent
	}

	if saveErr := uc.messages.Save(ctx, msg); saveErr != nil {
		return UpdateResult{}, fmt.Errorf("failed to save message: %w", saveErr)
	}

	uc.opts.publish(ctx, message.NewUpdated(msg, eventMetadata(ctx, cmd.Caller)))

	view, err := uc.enricher.view(ctx, msg, cmd.Caller.UserID)
	if err != nil {
		return UpdateResult{}, err
	}

	return UpdateResult{
		Message: view,
		CanEdit: msg.CanBeEditedBy(cmd.Caller.UserID),
	}, nil
}

func (uc *UpdateMessageUseCase) validate(cmd UpdateMessageCommand) error {
	if err := appcore.ValidateRequired("userID", cmd.Caller.UserID); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := appcore.ValidateUUID("messageID", cmd.MessageID); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := message.ValidateContent(cmd.Content); err != nil {
		return ErrInvalidContent
	}
	return nil
}
