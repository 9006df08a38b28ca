package feedcache_test

import (
	"context"
	"errors"
	"sync"
	"time"

	messageapp "github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/client/feedcache"
	"github.com/lllypuk/threadline/internal/domain/message"
)

const (
	testChannel = "0190a6f0-0000-7000-8000-000000000001"
	rootA       = "0190a6f0-0000-7000-8000-0000000000a1"
	rootB       = "0190a6f0-0000-7000-8000-0000000000b1"
	replyA1     = "0190a6f0-0000-7000-8000-0000000000a2"
	serverID    = "0190a6f0-0000-7000-8000-0000000000c1"
)

var (
	baseTime  = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	errServer = errors.New("server unavailable")
)

func view(id, content string, offset time.Duration) messageapp.MessageView {
	at := baseTime.Add(offset)
	return messageapp.MessageView{
		ID:         id,
		ChannelID:  testChannel,
		AuthorID:   "user-alice",
		AuthorName: "Alice",
		Content:    content,
		CreatedAt:  at,
		UpdatedAt:  at,
		Reactions:  []message.ReactionGroup{},
	}
}

func reply(id, threadID, content string, offset time.Duration) messageapp.MessageView {
	v := view(id, content, offset)
	v.ThreadID = &threadID
	return v
}

// seedFeed stores a one-page feed, newest first: B then A (A has one reply).
func seedFeed(cache *feedcache.Cache) {
	a := view(rootA, "first", 0)
	a.ReplyCount = 1
	a.Reactions = []message.ReactionGroup{{Emoji: "👍", Count: 1, ReactedByMe: false}}
	b := view(rootB, "second", time.Minute)
	cache.Set(feedcache.ListKey(testChannel), &feedcache.FeedValue{
		Pages: []messageapp.Page{{Items: []messageapp.MessageView{b, a}}},
	})
}

// seedThread stores the thread of root A.
func seedThread(cache *feedcache.Cache) {
	a := view(rootA, "first", 0)
	a.ReplyCount = 1
	a.Reactions = []message.ReactionGroup{{Emoji: "👍", Count: 1, ReactedByMe: false}}
	cache.Set(feedcache.ThreadKey(rootA), &feedcache.ThreadValue{
		Parent:   a,
		Messages: []messageapp.MessageView{reply(replyA1, rootA, "reply", 30*time.Second)},
	})
}

func feedOf(v feedcache.Value, ok bool) *feedcache.FeedValue {
	if !ok {
		return nil
	}
	feed, _ := v.(*feedcache.FeedValue)
	return feed
}

func threadOf(v feedcache.Value, ok bool) *feedcache.ThreadValue {
	if !ok {
		return nil
	}
	thread, _ := v.(*feedcache.ThreadValue)
	return thread
}

// fakeStore is an in-memory Store. during runs inside every mutation call,
// while the optimistic state is visible.
type fakeStore struct {
	mu sync.Mutex

	pages     map[string]messageapp.Page
	listCalls int
	listErr   error

	thread      messageapp.ThreadView
	threadCalls int

	created      messageapp.MessageView
	createErr    error
	createInputs []feedcache.CreateInput

	updated   messageapp.UpdateResult
	updateErr error

	reactions messageapp.ReactionsView
	toggleErr error

	during func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{pages: make(map[string]messageapp.Page)}
}

func (s *fakeStore) ListMessages(_ context.Context, _, cursor string, _ int) (messageapp.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listCalls++
	if s.listErr != nil {
		return messageapp.Page{}, s.listErr
	}
	return s.pages[cursor], nil
}

func (s *fakeStore) ListThread(_ context.Context, _ string) (messageapp.ThreadView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.threadCalls++
	return s.thread, nil
}

func (s *fakeStore) CreateMessage(
	_ context.Context,
	_ string,
	input feedcache.CreateInput,
) (messageapp.MessageView, error) {
	s.runDuring()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createInputs = append(s.createInputs, input)
	if s.createErr != nil {
		return messageapp.MessageView{}, s.createErr
	}
	return s.created, nil
}

func (s *fakeStore) UpdateMessage(_ context.Context, _, _ string) (messageapp.UpdateResult, error) {
	s.runDuring()
	if s.updateErr != nil {
		return messageapp.UpdateResult{}, s.updateErr
	}
	return s.updated, nil
}

func (s *fakeStore) ToggleReaction(_ context.Context, _, _ string) (messageapp.ReactionsView, error) {
	s.runDuring()
	if s.toggleErr != nil {
		return messageapp.ReactionsView{}, s.toggleErr
	}
	return s.reactions, nil
}

func (s *fakeStore) runDuring() {
	if s.during != nil {
		s.during()
	}
}

type notification struct {
	op  string
	err error
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	failures  []notification
}

func (n *recordingNotifier) Success(_ context.Context, op string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, op)
}

func (n *recordingNotifier) Failure(_ context.Context, op string, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.failures = append(n.failures, notification{op: op, err: err})
}
