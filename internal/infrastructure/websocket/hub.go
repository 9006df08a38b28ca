// Package websocket pushes feed change notifications to connected clients.
package websocket

import (
	"context"
	"log/slog"
	"sync"

	"github.com/lllypuk/threadline/internal/domain/uuid"
)

const defaultBroadcastBufferSize = 256

// Room identifies a channel feed inside a workspace.
// Workspace is part of the key so a subscription never crosses tenants.
type Room struct {
	WorkspaceID string
	ChannelID   uuid.UUID
}

// Recorder receives connection metrics.
type Recorder interface {
	ClientConnected()
	ClientDisconnected()
}

type noopRecorder struct{}

func (noopRecorder) ClientConnected()    {}
func (noopRecorder) ClientDisconnected() {}

// Hub manages WebSocket connections and channel room subscriptions.
type Hub struct {
	// clients holds all connected clients.
	clients map[*Client]bool

	// rooms maps a workspace channel to its subscribed clients.
	rooms map[Room]map[*Client]bool

	// broadcast carries messages to the run loop.
	broadcast chan *broadcastMessage

	// mu protects clients and rooms.
	mu sync.RWMutex

	logger   *slog.Logger
	recorder Recorder

	done      chan struct{}
	running   bool
	runningMu sync.RWMutex
}

type broadcastMessage struct {
	room    Room
	message []byte
}

// HubOption configures the Hub.
type HubOption func(*Hub)

// WithHubLogger sets the logger for the hub.
func WithHubLogger(logger *slog.Logger) HubOption {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHubRecorder sets the connection metrics recorder.
func WithHubRecorder(recorder Recorder) HubOption {
	return func(h *Hub) {
		if recorder != nil {
			h.recorder = recorder
		}
	}
}

// NewHub creates a new Hub with the given options.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:   make(map[*Client]bool),
		rooms:     make(map[Room]map[*Client]bool),
		broadcast: make(chan *broadcastMessage, defaultBroadcastBufferSize),
		logger:    slog.Default(),
		recorder:  noopRecorder{},
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Run starts the hub's delivery loop. It should be run as a goroutine.
func (h *Hub) Run(ctx context.Context) {
	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		return
	}
	h.running = true
	h.runningMu.Unlock()

	h.logger.InfoContext(ctx, "websocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case <-h.done:
			h.shutdown()
			return

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop signals the hub to stop.
func (h *Hub) Stop() {
	h.runningMu.Lock()
	defer h.runningMu.Unlock()

	if !h.running {
		return
	}

	select {
	case <-h.done:
	default:
		close(h.done)
	}
}

func (h *Hub) shutdown() {
	h.runningMu.Lock()
	h.running = false
	h.runningMu.Unlock()

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		client.Close()
		h.recorder.ClientDisconnected()
	}

	h.clients = make(map[*Client]bool)
	h.rooms = make(map[Room]map[*Client]bool)

	h.logger.Info("websocket hub stopped")
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client] {
		return
	}
	h.clients[client] = true
	h.recorder.ClientConnected()

	h.logger.Debug("client registered",
		slog.String("user_id", client.userID),
		slog.String("workspace_id", client.workspaceID),
		slog.Int("total_clients", len(h.clients)),
	)
}

// Unregister removes a client from the hub and all of its rooms.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	for _, channelID := range client.ChannelIDs() {
		h.leave(client, Room{WorkspaceID: client.workspaceID, ChannelID: channelID})
	}

	delete(h.clients, client)
	client.Close()
	h.recorder.ClientDisconnected()

	h.logger.Debug("client unregistered",
		slog.String("user_id", client.userID),
		slog.Int("total_clients", len(h.clients)),
	)
}

// JoinChannel subscribes a registered client to a channel of its workspace.
func (h *Hub) JoinChannel(client *Client, channelID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; !ok {
		return
	}

	room := Room{WorkspaceID: client.workspaceID, ChannelID: channelID}
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]bool)
	}
	h.rooms[room][client] = true
	client.addChannel(channelID)

	h.logger.Debug("client joined channel",
		slog.String("user_id", client.userID),
		slog.String("channel_id", channelID.String()),
	)
}

// LeaveChannel unsubscribes a client from a channel.
func (h *Hub) LeaveChannel(client *Client, channelID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.leave(client, Room{WorkspaceID: client.workspaceID, ChannelID: channelID})
}

func (h *Hub) leave(client *Client, room Room) {
	if members, ok := h.rooms[room]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	client.removeChannel(room.ChannelID)
}

// BroadcastToRoom queues a message for every client subscribed to room.
// The message is dropped when the queue is full.
func (h *Hub) BroadcastToRoom(room Room, message []byte) {
	select {
	case h.broadcast <- &broadcastMessage{room: room, message: message}:
	default:
		h.logger.Warn("broadcast queue full, dropping message",
			slog.String("workspace_id", room.WorkspaceID),
			slog.String("channel_id", room.ChannelID.String()),
		)
	}
}

func (h *Hub) deliver(msg *broadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.rooms[msg.room] {
		if !client.trySend(msg.message) {
			h.logger.Warn("client send buffer full, dropping message",
				slog.String("user_id", client.userID),
				slog.String("channel_id", msg.room.ChannelID.String()),
			)
		}
	}
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomCount returns the number of rooms with at least one subscriber.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ClientsInRoom returns the number of clients subscribed to room.
func (h *Hub) ClientsInRoom(room Room) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// IsRunning returns whether the hub is currently running.
func (h *Hub) IsRunning() bool {
	h.runningMu.RLock()
	defer h.runningMu.RUnlock()
	return h.running
}
