package websocket_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	ws "github.com/lllypuk/threadline/internal/infrastructure/websocket"
)

const readTimeout = time.Second

// countingRecorder implements both hub and broadcaster recorders.
type countingRecorder struct {
	connected    atomic.Int32
	disconnected atomic.Int32
	broadcasts   atomic.Int32
}

func (r *countingRecorder) ClientConnected()        { r.connected.Add(1) }
func (r *countingRecorder) ClientDisconnected()     { r.disconnected.Add(1) }
func (r *countingRecorder) EventBroadcast(_ string) { r.broadcasts.Add(1) }

func startHub(t *testing.T, opts ...ws.HubOption) *ws.Hub {
	t.Helper()

	hub := ws.NewHub(opts...)
	go hub.Run(t.Context())
	require.Eventually(t, hub.IsRunning, readTimeout, 5*time.Millisecond)
	return hub
}

// createWSConnPair returns the server and client ends of a live connection.
func createWSConnPair(t *testing.T) (*websocket.Conn, *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{
		CheckOrigin: func(_ *http.Request) bool { return true },
	}
	serverChan := make(chan *websocket.Conn, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverChan <- conn
	}))
	t.Cleanup(server.Close)

	clientConn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[4:], nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = clientConn.Close() })

	select {
	case serverConn := <-serverChan:
		t.Cleanup(func() { _ = serverConn.Close() })
		return serverConn, clientConn
	case <-time.After(readTimeout):
		t.Fatal("timeout waiting for server connection")
		return nil, nil
	}
}

// connect registers a pumping client with the hub and returns it with the
// remote end of its connection.
func connect(t *testing.T, hub *ws.Hub, userID, workspaceID string) (*ws.Client, *websocket.Conn) {
	t.Helper()

	serverConn, clientConn := createWSConnPair(t)
	client := ws.NewClient(hub, serverConn, userID, workspaceID)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()

	return client, clientConn
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readTimeout)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

// requireSilent asserts nothing arrives. The connection is unusable afterwards.
func requireSilent(t *testing.T, conn *websocket.Conn) {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, data, err := conn.ReadMessage()
	require.Error(t, err, "unexpected message: %s", data)
}

func subscribe(t *testing.T, conn *websocket.Conn, channelID string) {
	t.Helper()

	sendJSON(t, conn, ws.ClientMessage{Type: ws.TypeSubscribe, ChannelID: channelID})
	ack := readJSON(t, conn)
	require.Equal(t, "ack", ack["type"])
	require.Equal(t, "subscribed", ack["action"])
}
