// Package ws streams particle frames to browser viewers over websockets.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Frame is the JSON document broadcast for one system per stream tick.
type Frame struct {
	System    string       `json:"system"`
	Tick      uint64       `json:"tick"`
	State     string       `json:"state"`
	Alive     int          `json:"alive"`
	Quota     int          `json:"quota"`
	Particles [][7]float32 `json:"particles"` // x, y, z, r, g, b, a
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans broadcast messages out to every connected viewer. A viewer whose
// send buffer is full is dropped rather than slowing the simulation loop.
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
	buffer  int
	timeout time.Duration
	log     *zap.Logger
	closed  bool
}

// NewHub creates a hub with a per-viewer buffer of buffer messages.
func NewHub(buffer int, writeTimeout time.Duration, log *zap.Logger) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	if writeTimeout <= 0 {
		writeTimeout = 10 * time.Second
	}
	return &Hub{
		clients: make(map[*client]struct{}),
		buffer:  buffer,
		timeout: writeTimeout,
		log:     log,
	}
}

// ServeHTTP upgrades the request and registers the viewer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if _, ok := err.(websocket.HandshakeError); !ok {
			h.log.Warn("websocket upgrade failed", zap.Error(err))
		}
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.log.Info("websocket viewer connected", zap.String("ip", r.RemoteAddr), zap.Int("viewers", n))

	go h.writeLoop(c)
	go h.readLoop(c)
}

// Broadcast marshals v once and queues it for every viewer.
func (h *Hub) Broadcast(v any) error {
	msg, err := json.Marshal(v)
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.log.Warn("websocket viewer too slow, dropping")
			h.removeLocked(c)
		}
	}
	return nil
}

// Len is the number of connected viewers.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every viewer and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.removeLocked(c)
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	h.removeLocked(c)
	h.mu.Unlock()
}

func (h *Hub) removeLocked(c *client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(h.timeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(time.Second))
}

// readLoop only watches for the viewer going away; viewers send nothing.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket read error", zap.Error(err))
			}
			return
		}
	}
}
