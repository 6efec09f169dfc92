// Package ws bridges the in-process event bus to WebSocket clients so
// dashboards can watch detections and trade lifecycle events live.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"streamarb/internal/bus"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod sends pings at this interval. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds incoming subscription messages.
	maxMessageSize = 4096

	// sendBufferSize is the per-client outgoing buffer.
	sendBufferSize = 256
)

// upgrader configures the WebSocket upgrade parameters.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Origin enforcement happens at the reverse proxy.
		return true
	},
}

// frame is the JSON envelope sent to clients for every bus event.
type frame struct {
	Type    string    `json:"type"`
	TxID    string    `json:"tx_id,omitempty"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload,omitempty"`
}

// subscribeMsg is the message a client sends to adjust its topic filter.
// Topic names may end in '*' for prefix matching, e.g. "trade.*".
type subscribeMsg struct {
	Subscribe   []string `json:"subscribe"`
	Unsubscribe []string `json:"unsubscribe"`
}

// broadcastMsg carries a serialized frame along with its topic so the hub
// routes it only to clients subscribed to that topic.
type broadcastMsg struct {
	topic string
	data  []byte
}

// client is one WebSocket connection.
type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool
	mu   sync.RWMutex
}

// Config captures metadata reported to clients on connect.
type Config struct {
	Mode      string
	StartedAt time.Time
}

// Hub manages the connected clients and fans bus events out to them.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	logger     *slog.Logger
	mode       string
	startedAt  time.Time
}

// NewHub creates a Hub and registers it on the bus for every topic.
func NewHub(events *bus.Bus, logger *slog.Logger, cfg Config) *Hub {
	mode := strings.TrimSpace(strings.ToLower(cfg.Mode))
	if mode == "" {
		mode = "unknown"
	}
	startedAt := cfg.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now().UTC()
	}

	h := &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		logger:     logger.With(slog.String("component", "ws_hub")),
		mode:       mode,
		startedAt:  startedAt,
	}
	events.SubscribeAll(h.enqueue)
	return h
}

// enqueue serializes one bus event into a frame and hands it to the
// broadcast loop. The bus dispatches on the pipeline goroutine, so a full
// broadcast channel drops the frame rather than stalling detection.
func (h *Hub) enqueue(ctx context.Context, ev bus.Event) {
	data, err := json.Marshal(frame{
		Type:    string(ev.Topic),
		TxID:    ev.TxID,
		At:      ev.At,
		Payload: ev.Payload,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "marshal frame failed",
			slog.String("topic", string(ev.Topic)),
			slog.String("error", err.Error()),
		)
		return
	}

	select {
	case h.broadcast <- broadcastMsg{topic: string(ev.Topic), data: data}:
	default:
		h.logger.Warn("broadcast buffer full, dropping frame",
			slog.String("topic", string(ev.Topic)),
		)
	}
}

// Run is the hub's main loop: registration, unregistration, and fan-out. It
// exits when the context is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			return ctx.Err()

		case c := <-h.register:
			h.clients[c] = true
			h.logger.Info("client connected",
				slog.Int("total_clients", len(h.clients)),
			)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.logger.Info("client disconnected",
				slog.Int("total_clients", len(h.clients)),
			)

		case msg := <-h.broadcast:
			for c := range h.clients {
				if !c.isSubscribed(msg.topic) {
					continue
				}
				select {
				case c.send <- msg.data:
				default:
					h.logger.Warn("dropping frame for slow client")
				}
			}
		}
	}
}

// HandleWS upgrades the request and registers the client. New clients start
// subscribed to every topic.
// GET /ws
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", slog.String("error", err.Error()))
		return
	}

	c := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool, len(bus.Topics)),
	}
	for _, topic := range bus.Topics {
		c.subs[string(topic)] = true
	}

	h.register <- c
	c.sendHello()

	go c.writePump()
	go c.readPump()
}

// readPump consumes subscription messages until the connection drops.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("unexpected close error",
					slog.String("error", err.Error()),
				)
			}
			return
		}

		var sub subscribeMsg
		if err := json.Unmarshal(message, &sub); err == nil {
			c.applySubscription(sub)
		}
	}
}

func (c *client) applySubscription(msg subscribeMsg) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, topic := range msg.Subscribe {
		c.subs[topic] = true
	}
	for _, topic := range msg.Unsubscribe {
		delete(c.subs, topic)
	}
}

// isSubscribed matches the topic against the client's filter, honoring a
// trailing '*' prefix wildcard.
func (c *client) isSubscribed(topic string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.subs[topic] {
		return true
	}
	for sub := range c.subs {
		if strings.HasSuffix(sub, "*") && strings.HasPrefix(topic, sub[:len(sub)-1]) {
			return true
		}
	}
	return false
}

// sendHello pushes a status frame so clients can mark the connection healthy
// before any pipeline events flow.
func (c *client) sendHello() {
	uptime := int64(time.Since(c.hub.startedAt).Seconds())
	if uptime < 0 {
		uptime = 0
	}

	data, err := json.Marshal(frame{
		Type: "status",
		At:   time.Now().UTC(),
		Payload: map[string]any{
			"mode":           c.hub.mode,
			"uptime_seconds": uptime,
		},
	})
	if err != nil {
		return
	}

	select {
	case c.send <- data:
	default:
	}
}

// writePump writes frames and keepalive pings to the connection.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
