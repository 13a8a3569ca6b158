package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"FxCast/internal/domain/models"
	applogger "FxCast/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	TypeChart        = "chart"
	TypeNotification = "notification"
	TypeHealth       = "health"
)

// Message is the envelope pushed to every subscriber.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans chart frames and notifications out to websocket subscribers.
// It satisfies repository.ChartView.
type Hub struct {
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	writeTimeout time.Duration
	bufferSize   int
	log          *applogger.Logger

	mu      sync.RWMutex
	clients map[*client]struct{}
	last    []byte
}

func NewHub(pingInterval time.Duration, log *applogger.Logger) *Hub {
	if log == nil {
		log = applogger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		pingInterval: pingInterval,
		writeTimeout: 10 * time.Second,
		bufferSize:   16,
		log:          log,
		clients:      make(map[*client]struct{}),
	}
}

// Render broadcasts a chart frame and remembers it for late subscribers.
func (h *Hub) Render(_ context.Context, frame *models.ChartFrame) error {
	b, err := json.Marshal(Message{Type: TypeChart, Data: frame})
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.last = b
	h.mu.Unlock()
	h.broadcast(b)
	return nil
}

// Notify broadcasts a user notification.
func (h *Hub) Notify(n models.Notification) {
	h.publish(TypeNotification, n)
}

// PublishHealth broadcasts a connection status change.
func (h *Hub) PublishHealth(st models.HealthStatus) {
	h.publish(TypeHealth, st)
}

func (h *Hub) publish(kind string, data interface{}) {
	b, err := json.Marshal(Message{Type: kind, Data: data})
	if err != nil {
		h.log.Warn("stream encode failed", applogger.String("type", kind), applogger.Error(err))
		return
	}
	h.broadcast(b)
}

// Clients returns the number of connected subscribers.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and streams until the peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", applogger.Error(err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, h.bufferSize)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	last := h.last
	h.mu.Unlock()
	if last != nil {
		c.send <- last
	}
	h.log.Debug("stream subscriber connected", applogger.String("remote", r.RemoteAddr))

	go h.writeLoop(c)
	h.readLoop(c)
}

// Close disconnects every subscriber.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	return nil
}

func (h *Hub) broadcast(b []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			// slow subscriber, drop
		}
	}
}

// readLoop discards inbound frames; it only detects the peer closing.
func (h *Hub) readLoop(c *client) {
	defer h.remove(c)
	c.conn.SetReadLimit(4096)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(h.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case b, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	h.log.Debug("stream subscriber disconnected")
}
