package httphandler_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	messageapp "github.com/lllypuk/threadline/internal/application/message"
	"github.com/lllypuk/threadline/internal/domain/uuid"
	"github.com/lllypuk/threadline/internal/infrastructure/gate"
)

func messagesPath(channelID string) string {
	return "/channels/" + channelID + "/messages"
}

func TestMessageHandler_PaginationRoundTrip(t *testing.T) {
	api := newTestAPI(t, nil)
	ch := api.createChannel("general")

	for i := range 5 {
		api.postMessage(ch.ID, aliceToken, fmt.Sprintf(`{"content":"message %d"}`, i))
	}

	var seen []string
	cursor := ""
	for range 5 {
		path := messagesPath(ch.ID) + "?limit=2"
		if cursor != "" {
			path += "&cursor=" + cursor
		}

		var page messageapp.Page
		api.mustDo(http.MethodGet, path, bobToken, "", http.StatusOK, &page)
		for _, item := range page.Items {
			seen = append(seen, item.Content)
		}
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}

	assert.Equal(t, []string{"message 4", "message 3", "message 2", "message 1", "message 0"}, seen)
}

func TestMessageHandler_ListErrors(t *testing.T) {
	api := newTestAPI(t, nil)
	ch := api.createChannel("general")

	tests := []struct {
		name       string
		path       string
		wantStatus int
		wantCode   string
	}{
		{"limit not a number", messagesPath(ch.ID) + "?limit=ten", http.StatusBadRequest, "INVALID_LIMIT"},
		{"limit too large", messagesPath(ch.ID) + "?limit=101", http.StatusBadRequest, "INVALID_LIMIT"},
		{"cursor not an id", messagesPath(ch.ID) + "?cursor=abc", http.StatusBadRequest, "INVALID_CURSOR"},
		{"invalid channel id", messagesPath("general"), http.StatusBadRequest, "INVALID_CHANNEL_ID"},
		{"unknown channel", messagesPath(uuid.NewUUID().String()), http.StatusNotFound, "CHANNEL_NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := api.do(http.MethodGet, tt.path, aliceToken, "")

			require.Equal(t, tt.wantStatus, status)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestMessageHandler_ThreadFlow(t *testing.T) {
	api := newTestAPI(t, nil)
	ch := api.createChannel("general")

	root := api.postMessage(ch.ID, aliceToken, `{"content":"root"}`)
	assert.Equal(t, "Alice", root.AuthorName)
	assert.Nil(t, root.ThreadID)

	reply := api.postMessage(ch.ID, bobToken, `{"content":"first reply","thread_id":"`+root.ID+`"}`)
	require.NotNil(t, reply.ThreadID)
	assert.Equal(t, root.ID, *reply.ThreadID)
	assert.Equal(t, messageapp.DefaultAuthorName, reply.AuthorName)

	status, resp := api.do(http.MethodPost, messagesPath(ch.ID), aliceToken,
		`{"content":"nested","thread_id":"`+reply.ID+`"}`)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "REPLY_TO_REPLY", resp.Error.Code)

	status, resp = api.do(http.MethodPost, messagesPath(ch.ID), aliceToken,
		`{"content":"bad","thread_id":"nope"}`)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_THREAD_ID", resp.Error.Code)

	var thread messageapp.ThreadView
	api.mustDo(http.MethodGet, "/messages/"+root.ID+"/thread", aliceToken, "", http.StatusOK, &thread)
	assert.Equal(t, root.ID, thread.Parent.ID)
	assert.Equal(t, 1, thread.Parent.ReplyCount)
	require.Len(t, thread.Messages, 1)
	assert.Equal(t, reply.ID, thread.Messages[0].ID)

	status, resp = api.do(http.MethodGet, "/messages/"+reply.ID+"/thread", aliceToken, "")
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "MESSAGE_NOT_FOUND", resp.Error.Code)

	var page messageapp.Page
	api.mustDo(http.MethodGet, messagesPath(ch.ID), aliceToken, "", http.StatusOK, &page)
	require.Len(t, page.Items, 1)
	assert.Equal(t, 1, page.Items[0].ReplyCount)
}

func TestMessageHandler_ToggleReaction(t *testing.T) {
	api := newTestAPI(t, nil)
	ch := api.createChannel("general")
	root := api.postMessage(ch.ID, aliceToken, `{"content":"react to me"}`)
	path := "/messages/" + root.ID + "/reactions"

	var view messageapp.ReactionsView
	api.mustDo(http.MethodPost, path, bobToken, `{"emoji":"🔥"}`, http.StatusOK, &view)
	assert.Equal(t, root.ID, view.MessageID)
	require.Len(t, view.Reactions, 1)
	assert.Equal(t, "🔥", view.Reactions[0].Emoji)
	assert.Equal(t, 1, view.Reactions[0].Count)
	assert.True(t, view.Reactions[0].ReactedByMe)

	api.mustDo(http.MethodPost, path, bobToken, `{"emoji":"🔥"}`, http.StatusOK, &view)
	assert.Empty(t, view.Reactions)

	status, resp := api.do(http.MethodPost, path, bobToken, `{"emoji":""}`)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_EMOJI", resp.Error.Code)

	status, resp = api.do(http.MethodPost, "/messages/"+uuid.NewUUID().String()+"/reactions", bobToken, `{"emoji":"🔥"}`)
	require.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "MESSAGE_NOT_FOUND", resp.Error.Code)
}

func TestMessageHandler_Update(t *testing.T) {
	api := newTestAPI(t, nil)
	ch := api.createChannel("general")
	root := api.postMessage(ch.ID, aliceToken, `{"content":"typo"}`)
	path := "/messages/" + root.ID

	status, resp := api.do(http.MethodPut, path, bobToken, `{"content":"hijack"}`)
	require.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "NOT_AUTHOR", resp.Error.Code)

	var result messageapp.UpdateResult
	api.mustDo(http.MethodPut, path, aliceToken, `{"content":"fixed"}`, http.StatusOK, &result)
	assert.True(t, result.CanEdit)
	assert.Equal(t, "fixed", result.Message.Content)

	status, resp = api.do(http.MethodPut, "/messages/bad-id", aliceToken, `{"content":"x"}`)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID_MESSAGE_ID", resp.Error.Code)
}

func TestMessageHandler_GateRejections(t *testing.T) {
	g := gate.New(gate.NewLocalLimiter(2, time.Hour), gate.NewDetector())
	api := newTestAPI(t, g)
	ch := api.createChannel("general")

	status, resp := api.do(http.MethodPost, messagesPath(ch.ID), aliceToken,
		`{"content":"my card is 4111 1111 1111 1111"}`)
	require.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "SENSITIVE_INFO", resp.Error.Code)

	api.postMessage(ch.ID, aliceToken, `{"content":"fine"}`)

	rec := api.raw(http.MethodPost, messagesPath(ch.ID), aliceToken, `{"content":"one too many"}`)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	api.postMessage(ch.ID, bobToken, `{"content":"bob has his own budget"}`)
}
