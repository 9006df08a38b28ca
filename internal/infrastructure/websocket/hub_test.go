package websocket_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lllypuk/threadline/internal/domain/uuid"
	ws "github.com/lllypuk/threadline/internal/infrastructure/websocket"
)

func TestNewHub(t *testing.T) {
	hub := ws.NewHub(ws.WithHubLogger(nil), ws.WithHubRecorder(nil))

	assert.False(t, hub.IsRunning())
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.RoomCount())
}

func TestHub_Run(t *testing.T) {
	t.Run("stops on context cancellation", func(t *testing.T) {
		hub := ws.NewHub()
		ctx, cancel := context.WithCancel(context.Background())

		done := make(chan struct{})
		go func() {
			hub.Run(ctx)
			close(done)
		}()
		require.Eventually(t, hub.IsRunning, time.Second, 5*time.Millisecond)

		cancel()

		select {
		case <-done:
			assert.False(t, hub.IsRunning())
		case <-time.After(time.Second):
			t.Fatal("hub did not stop in time")
		}
	})

	t.Run("stops with Stop and closes clients", func(t *testing.T) {
		recorder := &countingRecorder{}
		hub := ws.NewHub(ws.WithHubRecorder(recorder))

		done := make(chan struct{})
		go func() {
			hub.Run(context.Background())
			close(done)
		}()
		require.Eventually(t, hub.IsRunning, time.Second, 5*time.Millisecond)

		client, _ := connect(t, hub, "user-1", "org_acme")

		hub.Stop()

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("hub did not stop in time")
		}
		assert.True(t, client.IsClosed())
		assert.Equal(t, 0, hub.ClientCount())
		assert.Equal(t, int32(1), recorder.disconnected.Load())
	})

	t.Run("second Run returns immediately", func(t *testing.T) {
		hub := startHub(t)

		done := make(chan struct{})
		go func() {
			hub.Run(t.Context())
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
			t.Fatal("second Run call did not return immediately")
		}
	})
}

func TestHub_RegisterUnregister(t *testing.T) {
	recorder := &countingRecorder{}
	hub := startHub(t, ws.WithHubRecorder(recorder))

	client, conn := connect(t, hub, "user-1", "org_acme")
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, int32(1), recorder.connected.Load())

	channelID := uuid.NewUUID()
	subscribe(t, conn, channelID.String())
	assert.True(t, client.HasChannel(channelID))
	assert.Equal(t, 1, hub.ClientsInRoom(ws.Room{WorkspaceID: "org_acme", ChannelID: channelID}))

	hub.Unregister(client)
	hub.Unregister(client)

	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, hub.RoomCount())
	assert.True(t, client.IsClosed())
	assert.Equal(t, int32(1), recorder.disconnected.Load())
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := startHub(t)

	_, conn := connect(t, hub, "user-1", "org_acme")
	subscribe(t, conn, uuid.NewUUID().String())

	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, hub.RoomCount())
}

func TestHub_BroadcastToRoom(t *testing.T) {
	hub := startHub(t)
	channelID := uuid.NewUUID()
	room := ws.Room{WorkspaceID: "org_acme", ChannelID: channelID}

	_, alice := connect(t, hub, "alice", "org_acme")
	_, bob := connect(t, hub, "bob", "org_acme")
	_, mallory := connect(t, hub, "mallory", "org_other")
	_, idle := connect(t, hub, "carol", "org_acme")

	subscribe(t, alice, channelID.String())
	subscribe(t, bob, channelID.String())
	subscribe(t, mallory, channelID.String())

	hub.BroadcastToRoom(room, []byte(`{"type":"message.new"}`))

	assert.Equal(t, "message.new", readJSON(t, alice)["type"])
	assert.Equal(t, "message.new", readJSON(t, bob)["type"])
	requireSilent(t, mallory)
	requireSilent(t, idle)
}

func TestHub_Unsubscribe(t *testing.T) {
	hub := startHub(t)
	channelID := uuid.NewUUID()

	_, conn := connect(t, hub, "alice", "org_acme")
	subscribe(t, conn, channelID.String())

	sendJSON(t, conn, ws.ClientMessage{Type: ws.TypeUnsubscribe, ChannelID: channelID.String()})
	ack := readJSON(t, conn)
	assert.Equal(t, "unsubscribed", ack["action"])
	assert.Equal(t, channelID.String(), ack["channel_id"])
	assert.Equal(t, 0, hub.RoomCount())

	hub.BroadcastToRoom(ws.Room{WorkspaceID: "org_acme", ChannelID: channelID}, []byte(`{}`))
	requireSilent(t, conn)
}
