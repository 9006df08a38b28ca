package message_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lllypuk/threadline/internal/application/appcore"
	"github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/domain/channel"
	"github.com/lllypuk/threadline/internal/domain/event"
	domainmessage "github.com/lllypuk/threadline/internal/domain/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
	"github.com/lllypuk/threadline/internal/infrastructure/repository/memory"
)

const (
	testWorkspace  = "org_acme"
	otherWorkspace = "org_other"
)

type fixture struct {
	store   *memory.Store
	channel *channel.Channel
	alice   appcore.Caller
	bob     appcore.Caller
	bus     *recordingBus
	gate    *stubGate
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	ch, err := channel.NewChannel(testWorkspace, "general", "user-alice")
	require.NoError(t, err)
	require.NoError(t, store.Channels().Save(context.Background(), ch))

	return &fixture{
		store:   store,
		channel: ch,
		alice:   appcore.Caller{UserID: "user-alice", Email: "alice@example.com", Name: "Alice", WorkspaceID: testWorkspace},
		bob:     appcore.Caller{UserID: "user-bob", Email: "bob@example.com", WorkspaceID: testWorkspace},
		bus:     &recordingBus{},
		gate:    &stubGate{},
	}
}

// seedRoot stores a root message with an explicit creation time.
func (f *fixture) seedRoot(t *testing.T, content string, at time.Time) *domainmessage.Message {
	t.Helper()
	msg := domainmessage.Reconstruct(
		uuid.NewUUID(), testWorkspace, f.channel.ID(), "",
		domainmessage.Author{ID: f.alice.UserID, Name: f.alice.Name},
		content, "", at, at,
	)
	require.NoError(t, f.store.Messages().Save(context.Background(), msg))
	return msg
}

func (f *fixture) seedReply(t *testing.T, parent *domainmessage.Message, content string, at time.Time) *domainmessage.Message {
	t.Helper()
	msg := domainmessage.Reconstruct(
		uuid.NewUUID(), testWorkspace, parent.ChannelID(), parent.ID(),
		domainmessage.Author{ID: f.bob.UserID, Name: message.DefaultAuthorName},
		content, "", at, at,
	)
	require.NoError(t, f.store.Messages().Save(context.Background(), msg))
	return msg
}

func (f *fixture) options() []message.Option {
	return []message.Option{message.WithEventBus(f.bus)}
}

type recordingBus struct {
	mu     sync.Mutex
	events []event.DomainEvent
}

func (b *recordingBus) Publish(_ context.Context, evt event.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, evt)
	return nil
}

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.events))
	for _, e := range b.events {
		out = append(out, e.EventType())
	}
	return out
}

type stubGate struct {
	err   error
	calls []message.GateRequest
}

func (g *stubGate) Check(_ context.Context, req message.GateRequest) error {
	g.calls = append(g.calls, req)
	return g.err
}

func ids(views []message.MessageView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}
