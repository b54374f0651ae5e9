// Package events' Hub is the gorilla/websocket broadcast fan-out (C12),
// grounded on _examples/mbd888-alancoin/internal/realtime/hub.go's
// register/unregister/broadcast channel pattern, adapted from a
// subscription-filtered trading feed into an escrow event firehose: one
// topic string plus a JSON payload per spec.md §4.12, broadcast to every
// connected client with no filtering (events are observability only,
// per spec.md §4.12 — there is no correctness-relevant subscription
// logic to preserve).
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub fans out published events to every connected websocket client. It
// implements ledger.EventSink via Publish, satisfying the "fire-and-
// forget sink" contract of spec.md §1/§6: Publish never blocks and never
// fails a mutator.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan Envelope
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	log        *slog.Logger
	contract   string
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

func NewHub(log *slog.Logger, contract string) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan Envelope, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		log:        log,
		contract:   contract,
	}
}

// Run drives the hub's register/unregister/broadcast loop until ctx is
// cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("events hub started", "contract", h.contract)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.log.Info("events hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case env := <-h.broadcast:
			data, err := json.Marshal(env)
			if err != nil {
				h.log.Warn("events: failed to marshal envelope", "error", err)
				continue
			}
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- data:
				default:
					h.log.Warn("events: slow client, dropping message")
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Publish implements ledger.EventSink. payload is marshaled to JSON best
// effort; a marshal failure is logged, never returned, per the
// fire-and-forget contract.
func (h *Hub) Publish(topic string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Warn("events: failed to marshal payload", "topic", topic, "error", err)
		return
	}
	env := Envelope{ID: uuid.NewString(), Contract: h.contract, Topic: topic, Timestamp: uint64(time.Now().Unix()), Payload: data}
	select {
	case h.broadcast <- env:
	default:
		h.log.Warn("events: broadcast channel full, dropping event", "topic", topic)
	}
}

// ServeWS upgrades an HTTP request to a websocket event stream.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("events: websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, 64)}
	h.register <- c
	go c.writePump()
	go c.readPump(h)
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(4096)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
