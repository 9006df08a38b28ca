package feedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Push message types sent by the server.
const (
	PushMessageNew       = "message.new"
	PushMessageUpdated   = "message.updated"
	PushReactionsChanged = "reactions.changed"
)

// PushMessage is a change notification received over the websocket.
type PushMessage struct {
	Type      string          `json:"type"`
	ChannelID string          `json:"channel_id"`
	MessageID string          `json:"message_id"`
	ThreadID  string          `json:"thread_id,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ListenerConfig contains configuration for Listener.
type ListenerConfig struct {
	// BaseURL is the server root, e.g. http://localhost:8080. http(s) is rewritten to ws(s).
	BaseURL string

	// WorkspaceID selects the workspace socket.
	WorkspaceID string

	// Token is sent as a bearer token during the handshake.
	Token string

	// Dialer is an optional custom dialer.
	Dialer *websocket.Dialer
}

// Listener invalidates cached feeds when the server pushes changes.
type Listener struct {
	cache   *Cache
	config  ListenerConfig
	logger  *slog.Logger
	onPush  func(PushMessage)
	writeMu sync.Mutex
}

// ListenerOption configures the Listener.
type ListenerOption func(*Listener)

// WithListenerLogger sets the logger for the listener.
func WithListenerLogger(logger *slog.Logger) ListenerOption {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithPushHandler registers a callback invoked after each push is applied.
func WithPushHandler(fn func(PushMessage)) ListenerOption {
	return func(l *Listener) {
		l.onPush = fn
	}
}

// NewListener creates a listener for cache.
func NewListener(cache *Cache, config ListenerConfig, opts ...ListenerOption) *Listener {
	if config.Dialer == nil {
		config.Dialer = websocket.DefaultDialer
	}
	l := &Listener{
		cache:  cache,
		config: config,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// URL returns the websocket endpoint of the workspace.
func (l *Listener) URL() (string, error) {
	u, err := url.Parse(strings.TrimSuffix(l.config.BaseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path += "/api/v1/workspaces/" + url.PathEscape(l.config.WorkspaceID) + "/ws"
	return u.String(), nil
}

// Run connects, subscribes to channelIDs and applies pushes until ctx is done
// or the connection drops. It returns nil when stopped through ctx.
func (l *Listener) Run(ctx context.Context, channelIDs ...string) error {
	endpoint, err := l.URL()
	if err != nil {
		return err
	}

	header := http.Header{}
	if l.config.Token != "" {
		header.Set("Authorization", "Bearer "+l.config.Token)
	}

	conn, resp, err := l.config.Dialer.DialContext(ctx, endpoint, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		l.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		l.writeMu.Unlock()
		_ = conn.Close()
	})
	defer stop()

	for _, channelID := range channelIDs {
		if subErr := l.send(conn, map[string]string{"type": "subscribe", "channel_id": channelID}); subErr != nil {
			return fmt.Errorf("subscribe %s: %w", channelID, subErr)
		}
	}

	l.logger.InfoContext(ctx, "feed listener connected",
		slog.String("workspace_id", l.config.WorkspaceID),
		slog.Int("channels", len(channelIDs)),
	)

	for {
		_, data, readErr := conn.ReadMessage()
		if readErr != nil {
			if ctx.Err() != nil || websocket.IsCloseError(readErr, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("websocket read: %w", readErr)
		}

		var msg PushMessage
		if jsonErr := json.Unmarshal(data, &msg); jsonErr != nil {
			l.logger.WarnContext(ctx, "invalid push message", slog.String("error", jsonErr.Error()))
			continue
		}
		l.Apply(msg)
	}
}

// Apply invalidates the cache keys a push affects.
// Acks, pongs and unknown types are ignored.
func (l *Listener) Apply(msg PushMessage) {
	keys := AffectedKeys(msg)
	for _, key := range keys {
		l.cache.Invalidate(key)
	}
	if len(keys) > 0 {
		l.logger.Debug("push applied",
			slog.String("type", msg.Type),
			slog.String("message_id", msg.MessageID),
			slog.Int("keys", len(keys)),
		)
	}
	if l.onPush != nil {
		l.onPush(msg)
	}
}

// AffectedKeys returns the cache keys whose content a push changes.
func AffectedKeys(msg PushMessage) []Key {
	if msg.ChannelID == "" {
		return nil
	}

	switch msg.Type {
	case PushMessageNew:
		// A reply changes its thread and the parent's reply count in the feed.
		keys := []Key{ListKey(msg.ChannelID)}
		if msg.ThreadID != "" {
			keys = append(keys, ThreadKey(msg.ThreadID))
		}
		return keys

	case PushMessageUpdated, PushReactionsChanged:
		keys := []Key{ListKey(msg.ChannelID)}
		if msg.ThreadID != "" {
			keys = append(keys, ThreadKey(msg.ThreadID))
		} else if msg.MessageID != "" {
			keys = append(keys, ThreadKey(msg.MessageID))
		}
		return keys

	default:
		return nil
	}
}

func (l *Listener) send(conn *websocket.Conn, v any) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	if err := conn.WriteJSON(v); err != nil {
		if errors.Is(err, websocket.ErrCloseSent) {
			return nil
		}
		return err
	}
	return nil
}
