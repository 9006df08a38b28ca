package message

import (
	"context"
	"fmt"

	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/domain/message"
)

// ListThreadUseCase returns a root message with its replies, oldest first.
type ListThreadUseCase struct {
	messages MessageRepository
	enricher enricher
}

// NewListThreadUseCase creates a new ListThreadUseCase
func NewListThreadUseCase(messages MessageRepository, reactions ReactionRepository) *ListThreadUseCase {
	return &ListThreadUseCase{
		messages: messages,
		enricher: enricher{messages: messages, reactions: reactions},
	}
}

// Execute loads the thread. Only a root message has one; a reply is reported as not found.
func (uc *ListThreadUseCase) Execute(ctx context.Context, query ListThreadQuery) (ThreadView, error) {
	if err := appcore.ValidateUUID("messageID", query.MessageID); err != nil {
		return ThreadView{}, fmt.Errorf("validation failed: %w", err)
	}

	parent, err := findMessage(ctx, uc.messages, query.Caller.WorkspaceID, query.MessageID)
	if err != nil {
		return ThreadView{}, err
	}

	if parent.IsReply() {
		return ThreadView{}, ErrMessageNotFound
	}

	replies, err := uc.messages.FindThread(ctx, parent.ID())
	if err != nil {
		return ThreadView{}, fmt.Errorf("failed to list thread: %w", err)
	}

	views, err := uc.enricher.views(ctx, append([]*message.Message{parent}, replies...), query.Caller.UserID)
	if err != nil {
		return ThreadView{}, err
	}

	return ThreadView{
		Parent:   views[0],
		Messages: views[1:],
	}, nil
}
