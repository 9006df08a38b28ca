package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lllypuk/threadline/internal/domain/uuid"
)

// Default client configuration constants.
const (
	defaultReadBufferSize  = 1024
	defaultWriteBufferSize = 1024
	defaultPingInterval    = 30 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultWriteWait       = 10 * time.Second
	defaultMaxMessageSize  = 4096
	defaultSendBufferSize  = 256
)

// Client message types.
const (
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypePing        = "ping"
)

// ClientConfig holds configuration for WebSocket clients.
type ClientConfig struct {
	ReadBufferSize  int
	WriteBufferSize int

	// PingInterval must be shorter than PongWait.
	PingInterval time.Duration
	PongWait     time.Duration
	WriteWait    time.Duration

	MaxMessageSize int64
}

// DefaultClientConfig returns sensible default configuration.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ReadBufferSize:  defaultReadBufferSize,
		WriteBufferSize: defaultWriteBufferSize,
		PingInterval:    defaultPingInterval,
		PongWait:        defaultPongWait,
		WriteWait:       defaultWriteWait,
		MaxMessageSize:  defaultMaxMessageSize,
	}
}

// ClientMessage represents a message from client to server.
type ClientMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channel_id,omitempty"`
}

// Client represents a single WebSocket connection of an authenticated user.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	userID      string
	workspaceID string

	// channelIDs are the channels this client is subscribed to.
	channelIDs map[uuid.UUID]bool
	mu         sync.RWMutex

	config ClientConfig
	logger *slog.Logger

	closed   bool
	closedMu sync.RWMutex
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientConfig sets the client configuration.
func WithClientConfig(config ClientConfig) ClientOption {
	return func(c *Client) {
		c.config = config
	}
}

// WithClientLogger sets the logger for the client.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client bound to one workspace.
func NewClient(hub *Hub, conn *websocket.Conn, userID, workspaceID string, opts ...ClientOption) *Client {
	c := &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, defaultSendBufferSize),
		userID:      userID,
		workspaceID: workspaceID,
		channelIDs:  make(map[uuid.UUID]bool),
		config:      DefaultClientConfig(),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// UserID returns the user ID associated with this client.
func (c *Client) UserID() string {
	return c.userID
}

// WorkspaceID returns the workspace the client is scoped to.
func (c *Client) WorkspaceID() string {
	return c.workspaceID
}

// ChannelIDs returns a copy of the channels this client is subscribed to.
func (c *Client) ChannelIDs() []uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(c.channelIDs))
	for id := range c.channelIDs {
		ids = append(ids, id)
	}
	return ids
}

// HasChannel reports whether the client is subscribed to a channel.
func (c *Client) HasChannel(channelID uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channelIDs[channelID]
}

func (c *Client) addChannel(channelID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.channelIDs[channelID] = true
}

func (c *Client) removeChannel(channelID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.channelIDs, channelID)
}

// IsClosed returns whether the client connection has been closed.
func (c *Client) IsClosed() bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()
	return c.closed
}

// ReadPump reads messages from the WebSocket connection.
// It should be run as a goroutine and unregisters the client on exit.
func (c *Client) ReadPump() {
	defer c.hub.Unregister(c)

	c.conn.SetReadLimit(c.config.MaxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait)); err != nil {
		c.logger.Error("failed to set read deadline", slog.String("error", err.Error()))
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error",
					slog.String("user_id", c.userID),
					slog.String("error", err.Error()),
				)
			}
			return
		}

		c.handleClientMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection.
// It should be run as a goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}

			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("websocket write error",
					slog.String("user_id", c.userID),
					slog.String("error", err.Error()),
				)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleClientMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger.Warn("invalid client message",
			slog.String("user_id", c.userID),
			slog.String("error", err.Error()),
		)
		c.sendError("invalid message format")
		return
	}

	switch msg.Type {
	case TypeSubscribe, TypeUnsubscribe:
		channelID, err := uuid.ParseUUID(msg.ChannelID)
		if err != nil {
			c.sendError("channel_id is required for " + msg.Type)
			return
		}
		if msg.Type == TypeSubscribe {
			c.hub.JoinChannel(c, channelID)
			c.sendAck("subscribed", channelID)
		} else {
			c.hub.LeaveChannel(c, channelID)
			c.sendAck("unsubscribed", channelID)
		}

	case TypePing:
		c.sendJSON(map[string]string{"type": "pong"})

	default:
		c.sendError("unknown message type: " + msg.Type)
	}
}

func (c *Client) sendError(message string) {
	c.sendJSON(map[string]string{
		"type":    "error",
		"message": message,
	})
}

func (c *Client) sendAck(action string, channelID uuid.UUID) {
	c.sendJSON(map[string]string{
		"type":       "ack",
		"action":     action,
		"channel_id": channelID.String(),
	})
}

func (c *Client) sendJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Send(data)
}

// Send queues a message for the client. It never blocks.
func (c *Client) Send(message []byte) {
	if !c.trySend(message) {
		c.logger.Warn("client send buffer full",
			slog.String("user_id", c.userID),
		)
	}
}

// trySend reports false only when the buffer is full.
func (c *Client) trySend(message []byte) bool {
	c.closedMu.RLock()
	defer c.closedMu.RUnlock()

	if c.closed {
		return true
	}

	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Close closes the client connection.
func (c *Client) Close() {
	c.closedMu.Lock()
	defer c.closedMu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	close(c.send)
	_ = c.conn.Close()
}
