package message

import (
	"context"
	"fmt"

	"github.com/lllypuk/threadline/internal/domain/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// enricher attaches derived data to messages: reply counts for root messages
// and the caller-relative grouped reaction view.
type enricher struct {
	messages  MessageRepository
	reactions ReactionRepository
}

func (e enricher) views(ctx context.Context, msgs []*message.Message, callerID string) ([]MessageView, error) {
	views := make([]MessageView, 0, len(msgs))
	if len(msgs) == 0 {
		return views, nil
	}

	ids := make([]uuid.UUID, 0, len(msgs))
	roots := make([]uuid.UUID, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID())
		if !m.IsReply() {
			roots = append(roots, m.ID())
		}
	}

	replyCounts := map[uuid.UUID]int{}
	if len(roots) > 0 {
		counts, err := e.messages.CountReplies(ctx, roots)
		if err != nil {
			return nil, fmt.Errorf("failed to count replies: %w", err)
		}
		replyCounts = counts
	}

	rows, err := e.reactions.FindByMessageIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load reactions: %w", err)
	}
	rowsByMessage := make(map[uuid.UUID][]message.Reaction, len(msgs))
	for _, r := range rows {
		rowsByMessage[r.MessageID()] = append(rowsByMessage[r.MessageID()], r)
	}

	for _, m := range msgs {
		view := ToMessageView(m)
		view.ReplyCount = replyCounts[m.ID()]
		view.Reactions = message.GroupReactions(rowsByMessage[m.ID()], callerID).Slice()
		views = append(views, view)
	}
	return views, nil
}

func (e enricher) view(ctx context.Context, m *message.Message, callerID string) (MessageView, error) {
	views, err := e.views(ctx, []*message.Message{m}, callerID)
	if err != nil {
		return MessageView{}, err
	}
	return views[0], nil
}
