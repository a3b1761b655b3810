package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"

	"github.com/SahiDemon/Aiden-sub001/internal/domain"
)

// wsTransport adapts a websocket connection to the Transport interface.
// Writes use their own context because the connection outlives the
// upgrade request.
type wsTransport struct {
	conn   *websocket.Conn
	closed atomic.Bool
}

func (t *wsTransport) Send(ctx context.Context, data []byte) error {
	err := t.conn.Write(ctx, websocket.MessageText, data)
	t.noteClosure(err)
	return err
}

func (t *wsTransport) Ping(ctx context.Context) error {
	err := t.conn.Ping(ctx)
	t.noteClosure(err)
	return err
}

func (t *wsTransport) Open() bool {
	return !t.closed.Load()
}

func (t *wsTransport) Close() error {
	t.closed.Store(true)
	return t.conn.Close(websocket.StatusNormalClosure, "connection closed")
}

// noteClosure marks the transport closed once the peer has sent a close
// frame, so the sweep can skip probing it.
func (t *wsTransport) noteClosure(err error) {
	if err != nil && websocket.CloseStatus(err) != -1 {
		t.closed.Store(true)
	}
}

// WebSocketHandler upgrades dashboard clients and keeps them registered
// for event broadcasts.
type WebSocketHandler struct {
	registry      *Registry
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a WebSocket handler bound to a registry.
func NewWebSocketHandler(registry *Registry, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		registry:      registry,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Info("WebSocket connection request", "ip", r.RemoteAddr)

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "ip", r.RemoteAddr)
		return
	}

	transport := &wsTransport{conn: ws}
	id := h.registry.Connect(transport)
	defer h.registry.Disconnect(id)

	hello := domain.NewEvent(domain.EventConnected, map[string]any{"connection_id": id})
	writeCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	if err := h.registry.SendTo(writeCtx, id, hello); err != nil {
		slog.Debug("Failed to send connected event", "connection_id", id, "error", err)
	}
	cancel()

	h.readLoop(r.Context(), ws, id)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

// readLoop drains client messages so close frames are processed. The
// only client-initiated message is an application-level ping.
func (h *WebSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, id string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "connection_id", id)
			} else {
				slog.Debug("WebSocket read error", "connection_id", id, "error", err)
			}
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == domain.EventPing {
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := h.registry.SendTo(writeCtx, id, domain.NewEvent(domain.EventPong, nil)); err != nil {
				slog.Debug("Failed to send pong", "connection_id", id, "error", err)
			}
			cancel()
		}
	}
}
