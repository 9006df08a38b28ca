package feedcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lllypuk/threadline/internal/application/appcore"
	messageapp "github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/domain/message"
)

// TempIDPrefix marks ids of entities that exist only in the cache.
const TempIDPrefix = "optimistic-"

// Mutation names reported to the Notifier.
const (
	OpSendMessage    = "send_message"
	OpSendReply      = "send_reply"
	OpToggleReaction = "toggle_reaction"
	OpEditMessage    = "edit_message"
)

// CreateInput is the body of a create request. A non-empty ThreadID posts a reply.
type CreateInput struct {
	Content  string `json:"content"`
	ImageURL string `json:"image_url,omitempty"`
	ThreadID string `json:"thread_id,omitempty"`
}

// Store is the server side of the feed.
type Store interface {
	ListMessages(ctx context.Context, channelID, cursor string, limit int) (messageapp.Page, error)
	ListThread(ctx context.Context, messageID string) (messageapp.ThreadView, error)
	CreateMessage(ctx context.Context, channelID string, input CreateInput) (messageapp.MessageView, error)
	UpdateMessage(ctx context.Context, messageID, content string) (messageapp.UpdateResult, error)
	ToggleReaction(ctx context.Context, messageID, emoji string) (messageapp.ReactionsView, error)
}

// Notifier reports mutation outcomes to the user.
type Notifier interface {
	Success(ctx context.Context, op string)
	Failure(ctx context.Context, op string, err error)
}

type noopNotifier struct{}

func (noopNotifier) Success(context.Context, string)        {}
func (noopNotifier) Failure(context.Context, string, error) {}

// Synchronizer runs feed mutations against the Store and keeps the Cache
// speculatively up to date while they are in flight.
type Synchronizer struct {
	cache    *Cache
	store    Store
	author   message.Author
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// SynchronizerOption configures the Synchronizer.
type SynchronizerOption func(*Synchronizer)

// WithNotifier sets the outcome notifier.
func WithNotifier(notifier Notifier) SynchronizerOption {
	return func(s *Synchronizer) {
		if notifier != nil {
			s.notifier = notifier
		}
	}
}

// WithSyncLogger sets the logger for the synchronizer.
func WithSyncLogger(logger *slog.Logger) SynchronizerOption {
	return func(s *Synchronizer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock sets the time source for placeholder timestamps.
func WithClock(now func() time.Time) SynchronizerOption {
	return func(s *Synchronizer) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSynchronizer creates a synchronizer acting on behalf of caller.
func NewSynchronizer(cache *Cache, store Store, caller appcore.Caller, opts ...SynchronizerOption) *Synchronizer {
	s := &Synchronizer{
		cache:    cache,
		store:    store,
		author:   messageapp.AuthorFromCaller(caller),
		notifier: noopNotifier{},
		logger:   slog.Default(),
		now:      time.Now,
		newID:    func() string { return TempIDPrefix + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cache returns the underlying cache.
func (s *Synchronizer) Cache() *Cache {
	return s.cache
}

// BeginMutation cancels in-flight reads for keys and snapshots them.
func (s *Synchronizer) BeginMutation(keys ...Key) *Mutation {
	return s.cache.BeginMutation(keys...)
}

// LoadFeed returns the channel feed, fetching the newest page on first read.
func (s *Synchronizer) LoadFeed(ctx context.Context, channelID string) (*FeedValue, error) {
	v, err := s.cache.Fetch(ctx, ListKey(channelID), func(ctx context.Context) (Value, error) {
		page, err := s.store.ListMessages(ctx, channelID, "", 0)
		if err != nil {
			return nil, err
		}
		return &FeedValue{Pages: []messageapp.Page{page}}, nil
	})
	if err != nil {
		return nil, err
	}
	feed, _ := v.(*FeedValue)
	return feed, nil
}

// LoadOlder appends the next older page to a loaded feed.
// It returns the feed unchanged when there is nothing older.
func (s *Synchronizer) LoadOlder(ctx context.Context, channelID string) (*FeedValue, error) {
	key := ListKey(channelID)

	current, ok := s.cache.Get(key)
	if !ok {
		return s.LoadFeed(ctx, channelID)
	}
	feed, _ := current.(*FeedValue)
	if feed == nil || feed.NextCursor() == "" {
		return feed, nil
	}

	v, err := s.cache.Refresh(ctx, key, func(ctx context.Context) (Value, error) {
		page, err := s.store.ListMessages(ctx, channelID, feed.NextCursor(), 0)
		if err != nil {
			return nil, err
		}
		feed.Pages = append(feed.Pages, page)
		return feed, nil
	})
	if err != nil {
		return nil, err
	}
	out, _ := v.(*FeedValue)
	return out, nil
}

// LoadThread returns a thread, fetching it on first read.
func (s *Synchronizer) LoadThread(ctx context.Context, messageID string) (*ThreadValue, error) {
	v, err := s.cache.Fetch(ctx, ThreadKey(messageID), func(ctx context.Context) (Value, error) {
		thread, err := s.store.ListThread(ctx, messageID)
		if err != nil {
			return nil, err
		}
		return &ThreadValue{Parent: thread.Parent, Messages: thread.Messages}, nil
	})
	if err != nil {
		return nil, err
	}
	thread, _ := v.(*ThreadValue)
	return thread, nil
}

// SendMessage posts a root message. A placeholder appears at the top of the
// feed immediately and is replaced by the stored message on success.
func (s *Synchronizer) SendMessage(
	ctx context.Context,
	channelID, content, imageURL string,
) (messageapp.MessageView, error) {
	key := ListKey(channelID)
	tempID := s.newID()

	m := s.cache.BeginMutation(key)
	placeholder := s.placeholder(tempID, channelID, content, imageURL, "")
	m.ApplyOptimistic(key, func(current Value) Value {
		feed, _ := current.(*FeedValue)
		if feed == nil {
			feed = &FeedValue{}
		}
		feed.prepend(placeholder)
		return feed
	}, tempID)

	created, err := s.store.CreateMessage(ctx, channelID, CreateInput{Content: content, ImageURL: imageURL})
	if err != nil {
		return messageapp.MessageView{}, s.fail(ctx, m, OpSendMessage, err)
	}

	m.Commit(key, replacePlaceholder(tempID, created))
	s.succeed(ctx, m, OpSendMessage)
	return created, nil
}

// SendReply posts a reply into a thread. The placeholder reply is replaced on
// success; the parent's reply count bump in the channel feed stays as applied.
func (s *Synchronizer) SendReply(
	ctx context.Context,
	channelID, threadID, content, imageURL string,
) (messageapp.MessageView, error) {
	threadKey := ThreadKey(threadID)
	listKey := ListKey(channelID)
	tempID := s.newID()

	m := s.cache.BeginMutation(threadKey, listKey)
	placeholder := s.placeholder(tempID, channelID, content, imageURL, threadID)
	m.ApplyOptimistic(threadKey, func(current Value) Value {
		thread, _ := current.(*ThreadValue)
		if thread == nil {
			return nil
		}
		thread.Messages = append(thread.Messages, placeholder)
		return thread
	}, tempID)
	m.ApplyOptimistic(listKey, func(current Value) Value {
		if current == nil {
			return nil
		}
		current.patchMessage(threadID, func(v *messageapp.MessageView) { v.ReplyCount++ })
		return current
	}, "")

	created, err := s.store.CreateMessage(ctx, channelID, CreateInput{
		Content:  content,
		ImageURL: imageURL,
		ThreadID: threadID,
	})
	if err != nil {
		return messageapp.MessageView{}, s.fail(ctx, m, OpSendReply, err)
	}

	m.Commit(threadKey, replacePlaceholder(tempID, created))
	s.succeed(ctx, m, OpSendReply)
	return created, nil
}

// ToggleReaction flips the caller's reaction in every cached view of the message,
// then overwrites those views with the server's grouping.
func (s *Synchronizer) ToggleReaction(
	ctx context.Context,
	messageID, emoji string,
) (messageapp.ReactionsView, error) {
	keys := s.cache.KeysHolding(messageID)

	m := s.cache.BeginMutation(keys...)
	for _, key := range keys {
		m.ApplyOptimistic(key, patchReactions(messageID, func(groups []message.ReactionGroup) []message.ReactionGroup {
			return message.NewReactionGroups(groups).Bump(emoji).Slice()
		}), "")
	}

	view, err := s.store.ToggleReaction(ctx, messageID, emoji)
	if err != nil {
		return messageapp.ReactionsView{}, s.fail(ctx, m, OpToggleReaction, err)
	}

	for _, key := range keys {
		m.Commit(key, patchReactions(messageID, func([]message.ReactionGroup) []message.ReactionGroup {
			return view.Reactions
		}))
	}
	s.succeed(ctx, m, OpToggleReaction)
	return view, nil
}

// EditMessage replaces the content of the caller's message in every cached view
// and reconciles those views with the stored message.
func (s *Synchronizer) EditMessage(
	ctx context.Context,
	messageID, content string,
) (messageapp.UpdateResult, error) {
	keys := s.cache.KeysHolding(messageID)
	editedAt := s.now()

	m := s.cache.BeginMutation(keys...)
	for _, key := range keys {
		m.ApplyOptimistic(key, func(current Value) Value {
			if current == nil {
				return nil
			}
			current.patchMessage(messageID, func(v *messageapp.MessageView) {
				v.Content = content
				v.UpdatedAt = editedAt
			})
			return current
		}, "")
	}

	result, err := s.store.UpdateMessage(ctx, messageID, content)
	if err != nil {
		return messageapp.UpdateResult{}, s.fail(ctx, m, OpEditMessage, err)
	}

	for _, key := range keys {
		m.Commit(key, func(current Value) Value {
			if current == nil {
				return nil
			}
			current.patchMessage(messageID, func(v *messageapp.MessageView) { *v = cloneView(result.Message) })
			return current
		})
	}
	s.succeed(ctx, m, OpEditMessage)
	return result, nil
}

func (s *Synchronizer) placeholder(tempID, channelID, content, imageURL, threadID string) messageapp.MessageView {
	now := s.now()
	view := messageapp.MessageView{
		ID:           tempID,
		ChannelID:    channelID,
		AuthorID:     s.author.ID,
		AuthorEmail:  s.author.Email,
		AuthorName:   s.author.Name,
		AuthorAvatar: s.author.Avatar,
		Content:      content,
		CreatedAt:    now,
		UpdatedAt:    now,
		Reactions:    []message.ReactionGroup{},
	}
	if imageURL != "" {
		view.ImageURL = &imageURL
	}
	if threadID != "" {
		view.ThreadID = &threadID
	}
	return view
}

func (s *Synchronizer) succeed(ctx context.Context, m *Mutation, op string) {
	m.Done()
	s.notifier.Success(ctx, op)
}

// fail restores the snapshot and reports the failure once.
func (s *Synchronizer) fail(ctx context.Context, m *Mutation, op string, err error) error {
	if m.Rollback() {
		s.logger.WarnContext(ctx, "mutation failed, cache restored",
			slog.String("op", op),
			slog.Int("keys", len(m.Keys())),
			slog.String("error", err.Error()),
		)
		s.notifier.Failure(ctx, op, err)
	}
	return err
}

// replacePlaceholder swaps the placeholder for the stored entity.
// When a refetch already dropped the placeholder, the entity is added unless present.
func replacePlaceholder(tempID string, stored messageapp.MessageView) Patch {
	return func(current Value) Value {
		if current == nil {
			return nil
		}
		if current.patchMessage(tempID, func(v *messageapp.MessageView) { *v = cloneView(stored) }) {
			return current
		}
		if current.Holds(stored.ID) {
			return nil
		}
		switch v := current.(type) {
		case *FeedValue:
			v.prepend(cloneView(stored))
		case *ThreadValue:
			v.Messages = append(v.Messages, cloneView(stored))
		}
		return current
	}
}

func patchReactions(messageID string, fn func([]message.ReactionGroup) []message.ReactionGroup) Patch {
	return func(current Value) Value {
		if current == nil {
			return nil
		}
		current.patchMessage(messageID, func(v *messageapp.MessageView) {
			groups := fn(v.Reactions)
			v.Reactions = make([]message.ReactionGroup, len(groups))
			copy(v.Reactions, groups)
		})
		return current
	}
}
