// Package memory provides an in-process store used by tests and mock mode.
// It honors the same ordering and uniqueness rules as the MongoDB repositories.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/domain/channel"
	"github.com/lllypuk/threadline/internal/domain/errs"
	domainmessage "github.com/lllypuk/threadline/internal/domain/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

type reactionKey struct {
	messageID uuid.UUID
	userID    string
	emoji     string
}

// Store keeps channels, messages and reactions in memory.
type Store struct {
	mu        sync.RWMutex
	channels  map[uuid.UUID]channel.Channel
	messages  map[uuid.UUID]domainmessage.Message
	reactions []domainmessage.Reaction
	unique    map[reactionKey]struct{}
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		channels: make(map[uuid.UUID]channel.Channel),
		messages: make(map[uuid.UUID]domainmessage.Message),
		unique:   make(map[reactionKey]struct{}),
	}
}

// Channels returns the channel repository view of the store.
func (s *Store) Channels() *ChannelRepository { return &ChannelRepository{s: s} }

// Messages returns the message repository view of the store.
func (s *Store) Messages() *MessageRepository { return &MessageRepository{s: s} }

// Reactions returns the reaction repository view of the store.
func (s *Store) Reactions() *ReactionRepository { return &ReactionRepository{s: s} }

// ChannelRepository stores channels.
type ChannelRepository struct{ s *Store }

// FindByID returns the channel if it exists in the workspace.
func (r *ChannelRepository) FindByID(_ context.Context, workspaceID string, id uuid.UUID) (*channel.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ch, ok := r.s.channels[id]
	if !ok || ch.WorkspaceID() != workspaceID {
		return nil, errs.ErrNotFound
	}
	return &ch, nil
}

// ListByWorkspace returns channels ordered by creation.
func (r *ChannelRepository) ListByWorkspace(_ context.Context, workspaceID string) ([]*channel.Channel, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*channel.Channel, 0)
	for _, ch := range r.s.channels {
		if ch.WorkspaceID() == workspaceID {
			c := ch
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *channel.Channel) int {
		return cmp.Or(a.CreatedAt().Compare(b.CreatedAt()), cmp.Compare(a.ID(), b.ID()))
	})
	return out, nil
}

// Save inserts a channel. Names are unique per workspace.
func (r *ChannelRepository) Save(_ context.Context, ch *channel.Channel) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, existing := range r.s.channels {
		if id != ch.ID() && existing.WorkspaceID() == ch.WorkspaceID() && existing.Name() == ch.Name() {
			return errs.ErrAlreadyExists
		}
	}
	r.s.channels[ch.ID()] = *ch
	return nil
}

// MessageRepository stores messages.
type MessageRepository struct{ s *Store }

// FindByID returns the message if it exists in the workspace.
func (r *MessageRepository) FindByID(
	_ context.Context,
	workspaceID string,
	id uuid.UUID,
) (*domainmessage.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.messages[id]
	if !ok || m.WorkspaceID() != workspaceID {
		return nil, errs.ErrNotFound
	}
	return &m, nil
}

// FindPage returns root messages newest first, strictly after the cursor.
func (r *MessageRepository) FindPage(_ context.Context, query message.PageQuery) ([]*domainmessage.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows := make([]*domainmessage.Message, 0)
	for _, m := range r.s.messages {
		if m.ChannelID() == query.ChannelID && !m.IsReply() {
			row := m
			rows = append(rows, &row)
		}
	}
	slices.SortFunc(rows, func(a, b *domainmessage.Message) int {
		return -compareMessages(a, b)
	})

	if !query.Cursor.IsZero() {
		after := func(m *domainmessage.Message) bool { return m.ID() < query.Cursor }
		if c, ok := r.s.messages[query.Cursor]; ok && c.ChannelID() == query.ChannelID {
			after = func(m *domainmessage.Message) bool { return compareMessages(m, &c) < 0 }
		}
		rows = slices.DeleteFunc(rows, func(m *domainmessage.Message) bool { return !after(m) })
	}

	if query.Limit > 0 && len(rows) > query.Limit {
		rows = rows[:query.Limit]
	}
	return rows, nil
}

// FindThread returns replies oldest first.
func (r *MessageRepository) FindThread(_ context.Context, parentID uuid.UUID) ([]*domainmessage.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	rows := make([]*domainmessage.Message, 0)
	for _, m := range r.s.messages {
		if m.ThreadID() == parentID {
			row := m
			rows = append(rows, &row)
		}
	}
	slices.SortFunc(rows, compareMessages)
	return rows, nil
}

// CountReplies counts replies per parent.
func (r *MessageRepository) CountReplies(_ context.Context, parentIDs []uuid.UUID) (map[uuid.UUID]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	wanted := make(map[uuid.UUID]struct{}, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = struct{}{}
	}

	counts := make(map[uuid.UUID]int)
	for _, m := range r.s.messages {
		if _, ok := wanted[m.ThreadID()]; ok && m.IsReply() {
			counts[m.ThreadID()]++
		}
	}
	return counts, nil
}

// Save upserts a message.
func (r *MessageRepository) Save(_ context.Context, msg *domainmessage.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.messages[msg.ID()] = *msg
	return nil
}

// Delete removes a message. Used to exercise cursors that point at deleted rows.
func (r *MessageRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.messages[id]; !ok {
		return errs.ErrNotFound
	}
	delete(r.s.messages, id)
	return nil
}

// ReactionRepository stores reaction rows.
type ReactionRepository struct{ s *Store }

// Insert adds a row unless the triple already exists.
func (r *ReactionRepository) Insert(_ context.Context, reaction domainmessage.Reaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := reactionKey{messageID: reaction.MessageID(), userID: reaction.UserID(), emoji: reaction.Emoji()}
	if _, ok := r.s.unique[key]; ok {
		return errs.ErrAlreadyExists
	}
	r.s.unique[key] = struct{}{}
	r.s.reactions = append(r.s.reactions, reaction)
	return nil
}

// Delete removes the row for the triple if present.
func (r *ReactionRepository) Delete(_ context.Context, messageID uuid.UUID, userID, emoji string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := reactionKey{messageID: messageID, userID: userID, emoji: emoji}
	if _, ok := r.s.unique[key]; !ok {
		return nil
	}
	delete(r.s.unique, key)
	r.s.reactions = slices.DeleteFunc(r.s.reactions, func(row domainmessage.Reaction) bool {
		return row.MessageID() == messageID && row.UserID() == userID && row.Emoji() == emoji
	})
	return nil
}

// FindByMessageIDs returns rows in insertion order.
func (r *ReactionRepository) FindByMessageIDs(
	_ context.Context,
	messageIDs []uuid.UUID,
) ([]domainmessage.Reaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domainmessage.Reaction, 0)
	for _, row := range r.s.reactions {
		if slices.Contains(messageIDs, row.MessageID()) {
			out = append(out, row)
		}
	}
	return out, nil
}

// compareMessages orders by (created_at, id) ascending.
func compareMessages(a, b *domainmessage.Message) int {
	return cmp.Or(a.CreatedAt().Compare(b.CreatedAt()), cmp.Compare(a.ID(), b.ID()))
}

var (
	_ message.MessageRepository  = (*MessageRepository)(nil)
	_ message.ReactionRepository = (*ReactionRepository)(nil)
	_ message.ChannelRepository  = (*ChannelRepository)(nil)
)
