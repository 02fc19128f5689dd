// Package telemetry fans hub and wearable events out to websocket clients.
package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	logs "github.com/danmuck/duploctl/internal/logging"
)

// Envelope is one event as sent to clients.
type Envelope struct {
	ID   string    `json:"id"`
	Kind string    `json:"kind"`
	Time time.Time `json:"time"`
	Data any       `json:"data"`
}

// Hub keeps the set of connected clients and broadcasts to all of them.
// Clients that cannot keep up are dropped.
type Hub struct {
	clients    map[string]*client
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	allowedOrigins []string
	upgrader       websocket.Upgrader
	now            func() time.Time

	mu   sync.RWMutex
	done chan struct{}
}

func NewHub(allowedOrigins []string) *Hub {
	h := &Hub{
		clients:        make(map[string]*client),
		register:       make(chan *client),
		unregister:     make(chan *client),
		broadcast:      make(chan []byte, 256),
		allowedOrigins: allowedOrigins,
		now:            time.Now,
		done:           make(chan struct{}),
	}
	h.upgrader = websocket.Upgrader{CheckOrigin: h.checkOrigin}
	return h
}

// Run serves registrations and broadcasts until ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, c := range h.clients {
				close(c.send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.id] = c
			h.mu.Unlock()
			logs.Infof("telemetry client registered id=%s", c.id)

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c.id]; ok {
				delete(h.clients, c.id)
				close(c.send)
				logs.Infof("telemetry client unregistered id=%s", c.id)
			}
			h.mu.Unlock()

		case msg := <-h.broadcast:
			h.mu.Lock()
			for id, c := range h.clients {
				select {
				case c.send <- msg:
				default:
					logs.Warnf("telemetry dropping slow client id=%s", id)
					close(c.send)
					delete(h.clients, id)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues one event for every connected client. It never blocks; a
// full queue drops the event.
func (h *Hub) Publish(kind string, data any) {
	env := Envelope{ID: uuid.NewString(), Kind: kind, Time: h.now(), Data: data}
	msg, err := json.Marshal(env)
	if err != nil {
		logs.Errf("telemetry.Publish marshal kind=%s: %v", kind, err)
		return
	}
	select {
	case h.broadcast <- msg:
	default:
		logs.Warnf("telemetry.Publish queue full, dropped kind=%s", kind)
	}
}

// ServeWS upgrades r and attaches the connection as a client.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logs.Errf("telemetry websocket upgrade: %v", err)
		return
	}
	c := newClient(h, conn, uuid.NewString())
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
