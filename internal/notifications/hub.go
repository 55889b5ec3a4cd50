package notifications

import (
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/insurai/portal/internal/models"
	"github.com/insurai/portal/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10

	defaultBufferSize = 16
)

// Event is the payload pushed to a recipient's connected clients.
type Event struct {
	Event         string                `json:"event"`
	Notifications []models.Notification `json:"notifications,omitempty"`
	UnreadCount   int                   `json:"unread_count"`
}

// Hub fans notification events out to websocket clients keyed by recipient.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]map[*client]struct{}
	upgrader websocket.Upgrader
	log      *zap.Logger
}

// NewHub constructs a notification hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     sameOriginOrLoopback,
		},
		log: logger.WithModule("notifications.hub"),
	}
}

// Serve upgrades the request and blocks until the client disconnects.
func (h *Hub) Serve(recipientKey string, w http.ResponseWriter, r *http.Request) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	cl := &client{hub: h, key: recipientKey, socket: conn, send: make(chan Event, defaultBufferSize)}
	h.add(cl)

	go cl.writeLoop()
	cl.readLoop()
	return nil
}

// Publish delivers an event to every connection of the recipient. Slow
// clients whose buffer is full are disconnected.
func (h *Hub) Publish(recipientKey string, event Event) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[recipientKey]))
	for cl := range h.clients[recipientKey] {
		targets = append(targets, cl)
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		cl.enqueue(event)
	}
}

// Connections reports how many clients are attached for the recipient.
func (h *Hub) Connections(recipientKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[recipientKey])
}

// Disconnect closes every connection of the recipient, used on logout.
func (h *Hub) Disconnect(recipientKey string) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.clients[recipientKey]))
	for cl := range h.clients[recipientKey] {
		targets = append(targets, cl)
	}
	h.mu.RUnlock()

	for _, cl := range targets {
		cl.close()
	}
}

func (h *Hub) add(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[cl.key] == nil {
		h.clients[cl.key] = make(map[*client]struct{})
	}
	h.clients[cl.key][cl] = struct{}{}
}

func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients := h.clients[cl.key]; clients != nil {
		delete(clients, cl)
		if len(clients) == 0 {
			delete(h.clients, cl.key)
		}
	}
}

type client struct {
	hub    *Hub
	key    string
	socket *websocket.Conn
	send   chan Event

	mu     sync.Mutex
	closed bool
}

func (c *client) enqueue(event Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- event:
	default:
		c.hub.log.Warn("dropping slow notification client", zap.String("recipient", c.key))
		c.closeLocked()
	}
}

// readLoop drains client frames so pongs and close frames are processed.
func (c *client) readLoop() {
	defer c.close()

	c.socket.SetReadLimit(maxMessageSize)
	_ = c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.socket.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Debug("notification client closed", zap.String("recipient", c.key), zap.Error(err))
			}
			return
		}
	}
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.socket.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *client) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	c.hub.remove(c)
	close(c.send)
}

func sameOriginOrLoopback(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	parsed, err := url.Parse(origin)
	if err != nil {
		return false
	}
	originHost := hostWithoutPort(parsed.Host)
	return originHost == hostWithoutPort(r.Host) || isLoopback(originHost)
}

func hostWithoutPort(host string) string {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}

func isLoopback(host string) bool {
	if ip := net.ParseIP(host); ip != nil {
		return ip.IsLoopback()
	}
	return strings.EqualFold(host, "localhost")
}
