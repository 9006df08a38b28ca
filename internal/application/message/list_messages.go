package message

import (
	"context"
	"fmt"

	"github.com/lllypuk/threadline/internal/application/appcore"
)

// ListMessagesUseCase serves keyset pages of root messages, newest first.
type ListMessagesUseCase struct {
	channels ChannelRepository
	messages MessageRepository
	enricher enricher
	opts     options
}

// NewListMessagesUseCase creates a new ListMessagesUseCase
func NewListMessagesUseCase(
	channels ChannelRepository,
	messages MessageRepository,
	reactions ReactionRepository,
	opts ...Option,
) *ListMessagesUseCase {
	return &ListMessagesUseCase{
		channels: channels,
		messages: messages,
		enricher: enricher{messages: messages, reactions: reactions},
		opts:     buildOptions(opts),
	}
}

// Execute returns one page. NextCursor is set only when the page is full.
func (uc *ListMessagesUseCase) Execute(ctx context.Context, query ListMessagesQuery) (Page, error) {
	limit, err := uc.validate(query)
	if err != nil {
		return Page{}, err
	}

	if _, err = findChannel(ctx, uc.channels, query.Caller.WorkspaceID, query.ChannelID); err != nil {
		return Page{}, err
	}

	batch, err := uc.messages.FindPage(ctx, PageQuery{
		ChannelID: query.ChannelID,
		Cursor:    query.Cursor,
		Limit:     limit,
	})
	if err != nil {
		return Page{}, fmt.Errorf("failed to list messages: %w", err)
	}

	items, err := uc.enricher.views(ctx, batch, query.Caller.UserID)
	if err != nil {
		return Page{}, err
	}

	page := Page{Items: items}
	if len(items) == limit {
		cursor := items[len(items)-1].ID
		page.NextCursor = &cursor
	}

	uc.opts.metrics.PageServed(len(items))
	return page, nil
}

func (uc *ListMessagesUseCase) validate(query ListMessagesQuery) (int, error) {
	if err := appcore.ValidateUUID("channelID", query.ChannelID); err != nil {
		return 0, fmt.Errorf("validation failed: %w", err)
	}
	if err := appcore.ValidateOptionalUUID("cursor", query.Cursor); err != nil {
		return 0, ErrInvalidCursor
	}
	return NormalizeLimit(query.Limit)
}
