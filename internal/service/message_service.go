// Package service provides business logic services that orchestrate use cases.
package service

import (
	"context"

	messageapp "github.com/lllypuk/threadline/internal/application/message"
	httphandler "github.com/lllypuk/threadline/internal/handler/http"
)

// Compile-time assertion that MessageService implements httphandler.MessageService.
var _ httphandler.MessageService = (*MessageService)(nil)

// ListMessagesUseCase defines interface for use case listing a page of root messages.
type ListMessagesUseCase interface {
	Execute(ctx context.Context, query messageapp.ListMessagesQuery) (messageapp.Page, error)
}

// ListThreadUseCase defines interface for use case loading a thread.
type ListThreadUseCase interface {
	Execute(ctx context.Context, query messageapp.ListThreadQuery) (messageapp.ThreadView, error)
}

// CreateMessageUseCase defines interface for use case posting a message.
type CreateMessageUseCase interface {
	Execute(ctx context.Context, cmd messageapp.CreateMessageCommand) (messageapp.MessageView, error)
}

// UpdateMessageUseCase defines interface for use case editing a message.
type UpdateMessageUseCase interface {
	Execute(ctx context.Context, cmd messageapp.UpdateMessageCommand) (messageapp.UpdateResult, error)
}

// ToggleReactionUseCase defines interface for use case toggling a reaction.
type ToggleReactionUseCase interface {
	Execute(ctx context.Context, cmd messageapp.ToggleReactionCommand) (messageapp.ReactionsView, error)
}

// MessageService реализует httphandler.MessageService поверх use cases ленты.
type MessageService struct {
	listUC   ListMessagesUseCase
	threadUC ListThreadUseCase
	createUC CreateMessageUseCase
	updateUC UpdateMessageUseCase
	toggleUC ToggleReactionUseCase
}

// MessageServiceConfig contains зависимости for MessageService.
type MessageServiceConfig struct {
	ListUC   ListMessagesUseCase
	ThreadUC ListThreadUseCase
	CreateUC CreateMessageUseCase
	UpdateUC UpdateMessageUseCase
	ToggleUC ToggleReactionUseCase
}

// NewMessageService создаёт MessageService.
func NewMessageService(cfg MessageServiceConfig) *MessageService {
	return &MessageService{
		listUC:   cfg.ListUC,
		threadUC: cfg.ThreadUC,
		createUC: cfg.CreateUC,
		updateUC: cfg.UpdateUC,
		toggleUC: cfg.ToggleUC,
	}
}

// ListMessages returns one page of root messages.
func (s *MessageService) ListMessages(
	ctx context.Context,
	query messageapp.ListMessagesQuery,
) (messageapp.Page, error) {
	return s.listUC.Execute(ctx, query)
}

// ListThread returns the root message and its replies.
func (s *MessageService) ListThread(
	ctx context.Context,
	query messageapp.ListThreadQuery,
) (messageapp.ThreadView, error) {
	return s.threadUC.Execute(ctx, query)
}

// CreateMessage posts a root message or a reply.
func (s *MessageService) CreateMessage(
	ctx context.Context,
	cmd messageapp.CreateMessageCommand,
) (messageapp.MessageView, error) {
	return s.createUC.Execute(ctx, cmd)
}

// UpdateMessage edits a message.
func (s *MessageService) UpdateMessage(
	ctx context.Context,
	cmd messageapp.UpdateMessageCommand,
) (messageapp.UpdateResult, error) {
	return s.updateUC.Execute(ctx, cmd)
}

// ToggleReaction flips a reaction.
func (s *MessageService) ToggleReaction(
	ctx context.Context,
	cmd messageapp.ToggleReactionCommand,
) (messageapp.ReactionsView, error) {
	return s.toggleUC.Execute(ctx, cmd)
}
