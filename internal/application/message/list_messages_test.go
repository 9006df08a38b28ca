package message_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/domain/errs"
	domainmessage "github.com/lllypuk/threadline/internal/domain/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
)

func TestListMessagesUseCase_PaginatesNewestFirst(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	seeded := make([]*domainmessage.Message, 0, 5)
	for i := range 5 {
		seeded = append(seeded, f.seedRoot(t, "m", base.Add(time.Duration(i)*time.Minute)))
	}

	uc := message.NewListMessagesUseCase(f.store.Channels(), f.store.Messages(), f.store.Reactions())
	ctx := context.Background()

	first, err := uc.Execute(ctx, message.ListMessagesQuery{Caller: f.alice, ChannelID: f.channel.ID(), Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []string{
		seeded[4].ID().String(), seeded[3].ID().String(), seeded[2].ID().String(),
	}, ids(first.Items))
	require.NotNil(t, first.NextCursor)
	assert.Equal(t, seeded[2].ID().String(), *first.NextCursor)

	second, err := uc.Execute(ctx, message.ListMessagesQuery{
		Caller:    f.alice,
		ChannelID: f.channel.ID(),
		Cursor:    uuid.UUID(*first.NextCursor),
		Limit:     3,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[1].ID().String(), seeded[0].ID().String()}, ids(second.Items))
	assert.Nil(t, second.NextCursor)

	all := message.AssembleAscending([]message.Page{first, second})
	want := make([]string, 0, len(seeded))
	for _, m := range seeded {
		want = append(want, m.ID().String())
	}
	assert.Equal(t, want, ids(all))
}

func TestListMessagesUseCase_FullLastPageStillHasCursor(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	f.seedRoot(t, "a", base)
	f.seedRoot(t, "b", base.Add(time.Second))

	uc := message.NewListMessagesUseCase(f.store.Channels(), f.store.Messages(), f.store.Reactions())
	ctx := context.Background()

	page, err := uc.Execute(ctx, message.ListMessagesQuery{Caller: f.alice, ChannelID: f.channel.ID(), Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotNil(t, page.NextCursor)

	next, err := uc.Execute(ctx, message.ListMessagesQuery{
		Caller: f.alice, ChannelID: f.channel.ID(), Cursor: uuid.UUID(*page.NextCursor), Limit: 2,
	})
	require.NoError(t, err)
	assert.Empty(t, next.Items)
	assert.Nil(t, next.NextCursor)
}

func TestListMessagesUseCase_EmptyChannel(t *testing.T) {
	f := newFixture(t)
	uc := message.NewListMessagesUseCase(f.store.Channels(), f.store.Messages(), f.store.Reactions())

	page, err := uc.Execute(context.Background(), message.ListMessagesQuery{Caller: f.alice, ChannelID: f.channel.ID()})

	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Nil(t, page.NextCursor)
}

func TestListMessagesUseCase_SkipsRepliesAndCountsThem(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	root := f.seedRoot(t, "root", base)
	f.seedReply(t, root, "r1", base.Add(time.Minute))
	f.seedReply(t, root, "r2", base.Add(2*time.Minute))

	uc := message.NewListMessagesUseCase(f.store.Channels(), f.store.Messages(), f.store.Reactions())
	page, err := uc.Execute(context.Background(), message.ListMessagesQuery{Caller: f.alice, ChannelID: f.channel.ID()})

	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, root.ID().String(), page.Items[0].ID)
	assert.Equal(t, 2, page.Items[0].ReplyCount)
	assert.Nil(t, page.Items[0].ThreadID)
}

func TestListMessagesUseCase_DeletedCursorFallsBackToIDOrder(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	older := f.seedRoot(t, "older", base)
	gone := f.seedRoot(t, "gone", base.Add(time.Minute))
	f.seedRoot(t, "newer", base.Add(2*time.Minute))
	require.NoError(t, f.store.Messages().Delete(context.Background(), gone.ID()))

	uc := message.NewListMessagesUseCase(f.store.Channels(), f.store.Messages(), f.store.Reactions())
	page, err := uc.Execute(context.Background(), message.ListMessagesQuery{
		Caller: f.alice, ChannelID: f.channel.ID(), Cursor: gone.ID(),
	})

	require.NoError(t, err)
	assert.Equal(t, []string{older.ID().String()}, ids(page.Items))
}

func TestListMessagesUseCase_Limits(t *testing.T) {
	tests := []struct {
		name    string
		limit   int
		wantErr error
	}{
		{name: "default", limit: 0},
		{name: "min", limit: 1},
		{name: "max", limit: message.MaxLimit},
		{name: "negative", limit: -1, wantErr: message.ErrInvalidLimit},
		{name: "too large", limit: message.MaxLimit + 1, wantErr: message.ErrInvalidLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			uc := message.NewListMessagesUseCase(f.store.Channels(), f.store.Messages(), f.store.Reactions())

			_, err := uc.Execute(context.Background(), message.ListMessagesQuery{
				Caller: f.alice, ChannelID: f.channel.ID(), Limit: tt.limit,
			})

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, errs.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestListMessagesUseCase_ForeignWorkspaceIsNotFound(t *testing.T) {
	f := newFixture(t)
	uc := message.NewListMessagesUseCase(f.store.Channels(), f.store.Messages(), f.store.Reactions())

	stranger := f.alice
	stranger.WorkspaceID = otherWorkspace
	_, err := uc.Execute(context.Background(), message.ListMessagesQuery{Caller: stranger, ChannelID: f.channel.ID()})

	require.ErrorIs(t, err, message.ErrChannelNotFound)
	assert.True(t, errors.Is(err, errs.ErrNotFound))
}

func TestListMessagesUseCase_InvalidCursor(t *testing.T) {
	f := newFixture(t)
	uc := message.NewListMessagesUseCase(f.store.Channels(), f.store.Messages(), f.store.Reactions())

	_, err := uc.Execute(context.Background(), message.ListMessagesQuery{
		Caller: f.alice, ChannelID: f.channel.ID(), Cursor: "not-a-uuid",
	})

	require.ErrorIs(t, err, message.ErrInvalidCursor)
}

func TestAssembleAscending(t *testing.T) {
	page := func(idList ...string) message.Page {
		items := make([]message.MessageView, 0, len(idList))
		for _, id := range idList {
			items = append(items, message.MessageView{ID: id})
		}
		return message.Page{Items: items}
	}

	got := message.AssembleAscending([]message.Page{page("9", "8", "7"), page("6", "5"), page()})

	assert.Equal(t, []string{"5", "6", "7", "8", "9"}, ids(got))
	assert.Empty(t, message.AssembleAscending(nil))
}
