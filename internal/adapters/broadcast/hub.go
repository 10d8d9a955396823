// Package broadcast fans refreshed leaderboard payloads out to connected
// websocket observers. Delivery is best effort: no retained queue, no
// per-client topic filtering, and slow clients drop messages rather than
// block the publisher.
package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gideonadeti/realtime-leaderboard/pkg/logger"
	"github.com/gideonadeti/realtime-leaderboard/pkg/metrics"
)

// Broadcaster is the engine's outbound boundary.
type Broadcaster interface {
	// Publish delivers payload to every currently connected observer.
	// Observers connecting later catch up with a fresh query instead.
	Publish(ctx context.Context, topic string, payload any) error
}

// Default hub configuration constants.
const (
	defaultSendBuffer = 64
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = 50 * time.Second
	maxInboundSize    = 512
)

// envelope is the wire shape pushed to observers.
type envelope struct {
	Topic string `json:"topic"`
	Data  any    `json:"data"`
}

// client is one connected observer with a bounded outbound buffer.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub implements Broadcaster over a registry of websocket clients.
type Hub struct {
	mu         sync.RWMutex
	clients    map[*client]struct{}
	upgrader   websocket.Upgrader
	sendBuffer int
	logger     logger.Logger
}

// Option applies a configuration option to the Hub.
type Option func(*Hub)

// WithSendBuffer sets the per-client outbound buffer size.
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.sendBuffer = n
		}
	}
}

// WithLogger sets a custom logger for the hub.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub constructs a hub with no connected clients.
func NewHub(opts ...Option) *Hub {
	h := &Hub{
		clients:    make(map[*client]struct{}),
		sendBuffer: defaultSendBuffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.Get().Named("broadcast"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Publish implements Broadcaster. A full client buffer drops the message for
// that client only; the publisher never blocks on a slow observer.
func (h *Hub) Publish(ctx context.Context, topic string, payload any) error {
	raw, err := json.Marshal(envelope{Topic: topic, Data: payload})
	if err != nil {
		return fmt.Errorf("marshal broadcast payload: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		select {
		case c.send <- raw:
		default:
			metrics.RecordBroadcastDropped()
		}
	}
	metrics.RecordBroadcast(topic)
	return nil
}

// SubscriberCount returns the number of connected observers.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS upgrades GET /ws requests and registers the client until its
// connection closes.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, h.sendBuffer)}
	h.register(c)
	h.logger.Debug(r.Context(), "observer connected", logger.String("remote", conn.RemoteAddr().String()))

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateSubscriberCount(n)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	n := len(h.clients)
	h.mu.Unlock()
	metrics.UpdateSubscriberCount(n)
}

// writePump drains the client's buffer onto the wire and keeps the
// connection alive with pings.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames (observers are read-only) and tears the
// client down when the connection drops.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// CloseAll disconnects every observer, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
	metrics.UpdateSubscriberCount(0)
}
