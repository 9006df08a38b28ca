package feedcache_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/threadline/internal/application/appcore"
	messageapp "github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/client/feedcache"
	"github.com/lllypuk/threadline/internal/domain/message"
)

var alice = appcore.Caller{
	UserID:      "user-alice",
	Email:       "alice@example.com",
	Name:        "Alice",
	WorkspaceID: "org_acme",
}

type syncFixture struct {
	cache    *feedcache.Cache
	store    *fakeStore
	notifier *recordingNotifier
	sync     *feedcache.Synchronizer
}

func newSyncFixture(t *testing.T, caller appcore.Caller) *syncFixture {
	t.Helper()

	cache := feedcache.NewCache(feedcache.WithCacheLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	store := newFakeStore()
	notifier := &recordingNotifier{}
	s := feedcache.NewSynchronizer(cache, store, caller,
		feedcache.WithNotifier(notifier),
		feedcache.WithSyncLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		feedcache.WithClock(func() time.Time { return baseTime.Add(time.Hour) }),
	)
	return &syncFixture{cache: cache, store: store, notifier: notifier, sync: s}
}

func TestSynchronizer_SendMessage(t *testing.T) {
	t.Run("placeholder is visible while in flight and replaced on success", func(t *testing.T) {
		f := newSyncFixture(t, alice)
		seedFeed(f.cache)
		f.store.created = view(serverID, "hello", 2*time.Minute)

		var during *feedcache.FeedValue
		f.store.during = func() { during = feedOf(f.cache.Get(feedcache.ListKey(testChannel))) }

		created, err := f.sync.SendMessage(context.Background(), testChannel, "hello", "")
		require.NoError(t, err)
		assert.Equal(t, serverID, created.ID)

		require.NotNil(t, during)
		require.Equal(t, 3, during.Len())
		placeholder := during.Pages[0].Items[0]
		assert.True(t, strings.HasPrefix(placeholder.ID, feedcache.TempIDPrefix))
		assert.Equal(t, "hello", placeholder.Content)
		assert.Equal(t, "Alice", placeholder.AuthorName)
		assert.Equal(t, "user-alice", placeholder.AuthorID)
		assert.Equal(t, baseTime.Add(time.Hour), placeholder.CreatedAt)
		assert.Nil(t, placeholder.ThreadID)

		feed := feedOf(f.cache.Get(feedcache.ListKey(testChannel)))
		require.NotNil(t, feed)
		require.Equal(t, 3, feed.Len())
		assert.Equal(t, serverID, feed.Pages[0].Items[0].ID)
		assert.Equal(t, rootB, feed.Pages[0].Items[1].ID)
		assert.Equal(t, rootA, feed.Pages[0].Items[2].ID)

		assert.Equal(t, []string{feedcache.OpSendMessage}, f.notifier.successes)
		assert.Empty(t, f.notifier.failures)
		assert.Equal(t, []feedcache.CreateInput{{Content: "hello"}}, f.store.createInputs)
	})

	t.Run("empty cache gets a one-page feed", func(t *testing.T) {
		f := newSyncFixture(t, alice)
		f.store.created = view(serverID, "hello", 0)

		var during *feedcache.FeedValue
		f.store.during = func() { during = feedOf(f.cache.Get(feedcache.ListKey(testChannel))) }

		_, err := f.sync.SendMessage(context.Background(), testChannel, "hello", "https://cdn.example.com/a.png")
		require.NoError(t, err)

		require.NotNil(t, during)
		require.Len(t, during.Pages, 1)
		require.Len(t, during.Pages[0].Items, 1)
		assert.Nil(t, during.Pages[0].NextCursor)
		require.NotNil(t, during.Pages[0].Items[0].ImageURL)
		assert.Equal(t, "https://cdn.example.com/a.png", *during.Pages[0].Items[0].ImageURL)

		feed := feedOf(f.cache.Get(feedcache.ListKey(testChannel)))
		require.NotNil(t, feed)
		assert.Equal(t, serverID, feed.Pages[0].Items[0].ID)
	})

	t.Run("nameless caller gets the default author name", func(t *testing.T) {
		f := newSyncFixture(t, appcore.Caller{UserID: "user-x", Email: "x@example.com"})
		f.store.created = view(serverID, "hi", 0)

		var during *feedcache.FeedValue
		f.store.during = func() { during = feedOf(f.cache.Get(feedcache.ListKey(testChannel))) }

		_, err := f.sync.SendMessage(context.Background(), testChannel, "hi", "")
		require.NoError(t, err)

		require.NotNil(t, during)
		placeholder := during.Pages[0].Items[0]
		assert.Equal(t, messageapp.DefaultAuthorName, placeholder.AuthorName)
		assert.Contains(t, placeholder.AuthorAvatar, "gravatar.com")
	})
}

func TestSynchronizer_RollbackIsDeterministic(t *testing.T) {
	f := newSyncFixture(t, alice)
	seedFeed(f.cache)
	seedThread(f.cache)
	f.store.createErr = errServer

	listKey := feedcache.ListKey(testChannel)
	threadKey := feedcache.ThreadKey(rootA)
	beforeList, _ := f.cache.Get(listKey)
	beforeThread, _ := f.cache.Get(threadKey)

	var duringLen int
	f.store.during = func() { duringLen = feedOf(f.cache.Get(listKey)).Len() }

	_, err := f.sync.SendMessage(context.Background(), testChannel, "hello", "")
	require.ErrorIs(t, err, errServer)

	assert.Equal(t, 3, duringLen)

	afterList, _ := f.cache.Get(listKey)
	afterThread, _ := f.cache.Get(threadKey)
	assert.Equal(t, beforeList, afterList)
	assert.Equal(t, beforeThread, afterThread)

	require.Len(t, f.notifier.failures, 1)
	assert.Equal(t, feedcache.OpSendMessage, f.notifier.failures[0].op)
	require.ErrorIs(t, f.notifier.failures[0].err, errServer)
	assert.Empty(t, f.notifier.successes)
}

func TestSynchronizer_RollbackOfEmptyCache(t *testing.T) {
	f := newSyncFixture(t, alice)
	f.store.createErr = errServer

	_, err := f.sync.SendMessage(context.Background(), testChannel, "hello", "")
	require.ErrorIs(t, err, errServer)

	_, ok := f.cache.Get(feedcache.ListKey(testChannel))
	assert.False(t, ok)
	assert.Len(t, f.notifier.failures, 1)
}

func TestSynchronizer_SendIntoUncachedFeedRefetches(t *testing.T) {
	f := newSyncFixture(t, alice)
	created := view(serverID, "hello", 2*time.Minute)
	f.store.created = created
	f.store.pages[""] = messageapp.Page{Items: []messageapp.MessageView{
		created,
		view(rootB, "second", time.Minute),
		view(rootA, "first", 0),
	}}

	_, err := f.sync.SendMessage(context.Background(), testChannel, "hello", "")
	require.NoError(t, err)

	feed, err := f.sync.LoadFeed(context.Background(), testChannel)
	require.NoError(t, err)

	assert.Equal(t, 1, f.store.listCalls)
	require.Equal(t, 3, feed.Len())
	ids := make([]string, 0, 3)
	for _, item := range feed.Items() {
		ids = append(ids, item.ID)
	}
	assert.Equal(t, []string{rootA, rootB, serverID}, ids)
}

func TestSynchronizer_RollbackKeepsInvalidation(t *testing.T) {
	f := newSyncFixture(t, alice)
	seedFeed(f.cache)
	listKey := feedcache.ListKey(testChannel)
	f.cache.Invalidate(listKey)

	f.store.createErr = errServer
	f.store.pages[""] = messageapp.Page{Items: []messageapp.MessageView{
		view(serverID, "from elsewhere", 2*time.Minute),
		view(rootB, "second", time.Minute),
		view(rootA, "first", 0),
	}}

	_, err := f.sync.SendMessage(context.Background(), testChannel, "hello", "")
	require.ErrorIs(t, err, errServer)

	snap := f.cache.Snapshot(listKey)
	assert.True(t, snap[listKey].Stale)

	feed, err := f.sync.LoadFeed(context.Background(), testChannel)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.listCalls)
	assert.Equal(t, 3, feed.Len())
}

func TestSynchronizer_OptimisticSeedIsStale(t *testing.T) {
	f := newSyncFixture(t, alice)
	f.store.created = view(serverID, "hello", 0)

	_, err := f.sync.SendMessage(context.Background(), testChannel, "hello", "")
	require.NoError(t, err)

	listKey := feedcache.ListKey(testChannel)
	snap := f.cache.Snapshot(listKey)
	require.NotNil(t, snap[listKey].Value)
	assert.True(t, snap[listKey].Stale)

	// A patch on a loaded key keeps it fresh.
	seedFeed(f.cache)
	f.store.updated = messageapp.UpdateResult{Message: view(rootA, "edited", 0), CanEdit: true}
	_, err = f.sync.EditMessage(context.Background(), rootA, "edited")
	require.NoError(t, err)
	snap = f.cache.Snapshot(listKey)
	assert.False(t, snap[listKey].Stale)
}

func TestSynchronizer_SendReply(t *testing.T) {
	t.Run("reply replaced and parent count stays bumped", func(t *testing.T) {
		f := newSyncFixture(t, alice)
		seedFeed(f.cache)
		seedThread(f.cache)
		f.store.created = reply(serverID, rootA, "new reply", time.Hour)

		var during *feedcache.ThreadValue
		f.store.during = func() { during = threadOf(f.cache.Get(feedcache.ThreadKey(rootA))) }

		_, err := f.sync.SendReply(context.Background(), testChannel, rootA, "new reply", "")
		require.NoError(t, err)

		require.NotNil(t, during)
		require.Len(t, during.Messages, 2)
		placeholder := during.Messages[1]
		assert.True(t, strings.HasPrefix(placeholder.ID, feedcache.TempIDPrefix))
		require.NotNil(t, placeholder.ThreadID)
		assert.Equal(t, rootA, *placeholder.ThreadID)

		thread := threadOf(f.cache.Get(feedcache.ThreadKey(rootA)))
		require.NotNil(t, thread)
		require.Len(t, thread.Messages, 2)
		assert.Equal(t, replyA1, thread.Messages[0].ID)
		assert.Equal(t, serverID, thread.Messages[1].ID)

		feed := feedOf(f.cache.Get(feedcache.ListKey(testChannel)))
		require.NotNil(t, feed)
		assert.Equal(t, 2, feed.Pages[0].Items[1].ReplyCount)
		assert.Equal(t, 0, feed.Pages[0].Items[0].ReplyCount)

		assert.Equal(t, []feedcache.CreateInput{{Content: "new reply", ThreadID: rootA}}, f.store.createInputs)
		assert.Equal(t, []string{feedcache.OpSendReply}, f.notifier.successes)
	})

	t.Run("failure restores thread and feed", func(t *testing.T) {
		f := newSyncFixture(t, alice)
		seedFeed(f.cache)
		seedThread(f.cache)
		f.store.createErr = errServer

		beforeList, _ := f.cache.Get(feedcache.ListKey(testChannel))
		beforeThread, _ := f.cache.Get(feedcache.ThreadKey(rootA))

		_, err := f.sync.SendReply(context.Background(), testChannel, rootA, "new reply", "")
		require.ErrorIs(t, err, errServer)

		afterList, _ := f.cache.Get(feedcache.ListKey(testChannel))
		afterThread, _ := f.cache.Get(feedcache.ThreadKey(rootA))
		assert.Equal(t, beforeList, afterList)
		assert.Equal(t, beforeThread, afterThread)
		assert.Len(t, f.notifier.failures, 1)
	})

	t.Run("uncached thread is left empty", func(t *testing.T) {
		f := newSyncFixture(t, alice)
		seedFeed(f.cache)
		f.store.created = reply(serverID, rootA, "new reply", time.Hour)

		_, err := f.sync.SendReply(context.Background(), testChannel, rootA, "new reply", "")
		require.NoError(t, err)

		_, ok := f.cache.Get(feedcache.ThreadKey(rootA))
		assert.False(t, ok)
		feed := feedOf(f.cache.Get(feedcache.ListKey(testChannel)))
		assert.Equal(t, 2, feed.Pages[0].Items[1].ReplyCount)
	})
}

func TestSynchronizer_ToggleReaction(t *testing.T) {
	t.Run("bump everywhere then server view wins", func(t *testing.T) {
		f := newSyncFixture(t, alice)
		seedFeed(f.cache)
		seedThread(f.cache)
		server := []message.ReactionGroup{{Emoji: "👍", Count: 3, ReactedByMe: true}}
		f.store.reactions = messageapp.ReactionsView{MessageID: rootA, Reactions: server}

		var duringFeed *feedcache.FeedValue
		var duringThread *feedcache.ThreadValue
		f.store.during = func() {
			duringFeed = feedOf(f.cache.Get(feedcache.ListKey(testChannel)))
			duringThread = threadOf(f.cache.Get(feedcache.ThreadKey(rootA)))
		}

		_, err := f.sync.ToggleReaction(context.Background(), rootA, "👍")
		require.NoError(t, err)

		optimistic := []message.ReactionGroup{{Emoji: "👍", Count: 2, ReactedByMe: true}}
		assert.Equal(t, optimistic, duringFeed.Pages[0].Items[1].Reactions)
		assert.Equal(t, optimistic, duringThread.Parent.Reactions)

		feed := feedOf(f.cache.Get(feedcache.ListKey(testChannel)))
		thread := threadOf(f.cache.Get(feedcache.ThreadKey(rootA)))
		assert.Equal(t, server, feed.Pages[0].Items[1].Reactions)
		assert.Equal(t, server, thread.Parent.Reactions)
		assert.Empty(t, feed.Pages[0].Items[0].Reactions)
	})

	t.Run("new emoji is appended", func(t *testing.T) {
		f := newSyncFixture(t, alice)
		seedFeed(f.cache)
		f.store.toggleErr = errServer

		var during *feedcache.FeedValue
		f.store.during = func() { during = feedOf(f.cache.Get(feedcache.ListKey(testChannel))) }

		_, err := f.sync.ToggleReaction(context.Background(), rootA, "🎉")
		require.ErrorIs(t, err, errServer)

		assert.Equal(t, []message.ReactionGroup{
			{Emoji: "👍", Count: 1, ReactedByMe: false},
			{Emoji: "🎉", Count: 1, ReactedByMe: true},
		}, during.Pages[0].Items[1].Reactions)

		feed := feedOf(f.cache.Get(feedcache.ListKey(testChannel)))
		assert.Equal(t, []message.ReactionGroup{{Emoji: "👍", Count: 1, ReactedByMe: false}},
			feed.Pages[0].Items[1].Reactions)
		assert.Len(t, f.notifier.failures, 1)
	})

	t.Run("message outside the cache still reaches the server", func(t *testing.T) {
		f := newSyncFixture(t, alice)
		f.store.reactions = messageapp.ReactionsView{MessageID: "elsewhere"}

		_, err := f.sync.ToggleReaction(context.Background(), "elsewhere", "👍")
		require.NoError(t, err)
		assert.Equal(t, []string{feedcache.OpToggleReaction}, f.notifier.successes)
	})
}

func TestSynchronizer_EditMessage(t *testing.T) {
	t.Run("edit patched into every view", func(t *testing.T) {
		f := newSyncFixture(t, alice)
		seedFeed(f.cache)
		seedThread(f.cache)

		stored := view(rootA, "edited on server", 0)
		stored.ReplyCount = 1
		stored.UpdatedAt = baseTime.Add(2 * time.Hour)
		f.store.updated = messageapp.UpdateResult{Message: stored, CanEdit: true}

		var during *feedcache.ThreadValue
		f.store.during = func() { during = threadOf(f.cache.Get(feedcache.ThreadKey(rootA))) }

		result, err := f.sync.EditMessage(context.Background(), rootA, "edited")
		require.NoError(t, err)
		assert.True(t, result.CanEdit)

		assert.Equal(t, "edited", during.Parent.Content)
		assert.Equal(t, baseTime.Add(time.Hour), during.Parent.UpdatedAt)

		feed := feedOf(f.cache.Get(feedcache.ListKey(testChannel)))
		thread := threadOf(f.cache.Get(feedcache.ThreadKey(rootA)))
		assert.Equal(t, stored, feed.Pages[0].Items[1])
		assert.Equal(t, stored, thread.Parent)
		assert.Equal(t, "second", feed.Pages[0].Items[0].Content)
	})

	t.Run("failure restores content", func(t *testing.T) {
		f := newSyncFixture(t, alice)
		seedFeed(f.cache)
		f.store.updateErr = errServer

		_, err := f.sync.EditMessage(context.Background(), rootA, "edited")
		require.ErrorIs(t, err, errServer)

		feed := feedOf(f.cache.Get(feedcache.ListKey(testChannel)))
		assert.Equal(t, "first", feed.Pages[0].Items[1].Content)
		assert.Len(t, f.notifier.failures, 1)
	})
}

func TestSynchronizer_BeginMutationCancelsReads(t *testing.T) {
	f := newSyncFixture(t, alice)
	key := feedcache.ListKey(testChannel)
	started := make(chan struct{})

	result := make(chan error, 1)
	go func() {
		_, err := f.cache.Fetch(context.Background(), key, func(ctx context.Context) (feedcache.Value, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})
		result <- err
	}()

	<-started
	m := f.sync.BeginMutation(key)
	require.ErrorIs(t, <-result, feedcache.ErrSuperseded)

	m.ApplyOptimistic(key, func(feedcache.Value) feedcache.Value {
		return &feedcache.FeedValue{Pages: []messageapp.Page{{Items: []messageapp.MessageView{view("optimistic-1", "x", 0)}}}}
	}, "optimistic-1")
	assert.Equal(t, "optimistic-1", m.TempID(key))

	assert.True(t, m.Rollback())
	assert.False(t, m.Rollback())
	_, ok := f.cache.Get(key)
	assert.False(t, ok)
}

func TestSynchronizer_Loads(t *testing.T) {
	f := newSyncFixture(t, alice)
	cursor := rootA
	f.store.pages[""] = messageapp.Page{
		Items:      []messageapp.MessageView{view(rootB, "second", time.Minute), view(rootA, "first", 0)},
		NextCursor: &cursor,
	}
	f.store.pages[rootA] = messageapp.Page{
		Items: []messageapp.MessageView{view(serverID, "zeroth", -time.Minute)},
	}
	f.store.thread = messageapp.ThreadView{
		Parent:   view(rootA, "first", 0),
		Messages: []messageapp.MessageView{reply(replyA1, rootA, "reply", time.Second)},
	}

	ctx := context.Background()

	feed, err := f.sync.LoadFeed(ctx, testChannel)
	require.NoError(t, err)
	assert.Equal(t, 2, feed.Len())

	_, err = f.sync.LoadFeed(ctx, testChannel)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.listCalls)

	older, err := f.sync.LoadOlder(ctx, testChannel)
	require.NoError(t, err)
	require.Len(t, older.Pages, 2)
	assert.Equal(t, []string{"zeroth", "first", "second"}, contents(older.Items()))
	assert.Empty(t, older.NextCursor())

	exhausted, err := f.sync.LoadOlder(ctx, testChannel)
	require.NoError(t, err)
	assert.Equal(t, 3, exhausted.Len())
	assert.Equal(t, 2, f.store.listCalls)

	thread, err := f.sync.LoadThread(ctx, rootA)
	require.NoError(t, err)
	assert.Equal(t, rootA, thread.Parent.ID)
	require.Len(t, thread.Messages, 1)

	_, err = f.sync.LoadThread(ctx, rootA)
	require.NoError(t, err)
	assert.Equal(t, 1, f.store.threadCalls)
}

func TestSynchronizer_LoadFeedError(t *testing.T) {
	f := newSyncFixture(t, alice)
	f.store.listErr = errServer

	_, err := f.sync.LoadFeed(context.Background(), testChannel)
	require.ErrorIs(t, err, errServer)
	assert.Empty(t, f.notifier.failures)
}

func contents(items []messageapp.MessageView) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.Content)
	}
	return out
}
