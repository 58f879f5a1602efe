package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Norvan25/homenest-nous-sub002/internal/domain"
	"github.com/Norvan25/homenest-nous-sub002/internal/ports"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many events a client may lag behind before it is dropped.
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// client is one dashboard connection. Only its writer goroutine touches conn
// for writes; send is closed by the hub when the client is removed.
type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub keeps dashboard websocket connections and broadcasts events to them.
type Hub struct {
	clients map[*client]bool
	lock    sync.Mutex
	logger  *slog.Logger
}

var _ ports.EventPublisher = (*Hub)(nil)

// NewHub builds an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[*client]bool),
		logger:  logger.With("component", "realtime"),
	}
}

// ServeHTTP upgrades the request and holds the connection until the client leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.addClient(c)
	go h.writeLoop(c)
	defer h.removeClient(c)

	// inbound frames are ignored; reading surfaces the close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writeLoop drains the client's buffer onto the socket. A closed buffer
// ends the connection with a going-away frame.
func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("dropping websocket client", "error", err)
			h.removeClient(c)
			return
		}
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutdown"), time.Now().Add(time.Second))
}

// Publish queues the event for every client without waiting on the network.
// Clients whose buffer is full are dropped.
func (h *Hub) Publish(_ context.Context, event domain.Event) error {
	msg, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event.Type, err)
	}

	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("websocket client too slow, dropping")
			h.dropLocked(c)
		}
	}
	return nil
}

// ClientCount reports how many dashboards are connected.
func (h *Hub) ClientCount() int {
	h.lock.Lock()
	defer h.lock.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.lock.Lock()
	defer h.lock.Unlock()
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *Hub) addClient(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.clients[c] = true
}

func (h *Hub) removeClient(c *client) {
	h.lock.Lock()
	defer h.lock.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *client) {
	if !h.clients[c] {
		return
	}
	delete(h.clients, c)
	close(c.send)
}
