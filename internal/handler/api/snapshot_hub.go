package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"MarketBrief/internal/domain/models"
	"MarketBrief/internal/service/metrics"
	applogger "MarketBrief/pkg/logger"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	defaultBuffer  = 16
	defaultPingGap = 30 * time.Second
)

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *wsClient) close() {
	c.once.Do(func() { close(c.send) })
}

// SnapshotHub pushes snapshot events to websocket subscribers. Each client has
// a bounded send buffer; events for a full buffer are dropped.
type SnapshotHub struct {
	mu       sync.Mutex
	clients  map[*wsClient]struct{}
	buffer   int
	ping     time.Duration
	upgrader websocket.Upgrader
	l        *applogger.Logger
}

// NewSnapshotHub creates a hub. buffer and ping fall back to defaults when <= 0.
func NewSnapshotHub(buffer int, ping time.Duration, l *applogger.Logger) *SnapshotHub {
	metrics.Register()
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	if ping <= 0 {
		ping = defaultPingGap
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &SnapshotHub{
		clients: make(map[*wsClient]struct{}),
		buffer:  buffer,
		ping:    ping,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		l: l,
	}
}

// Clients returns the number of connected subscribers.
func (h *SnapshotHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends ev to every subscriber without blocking.
func (h *SnapshotHub) Broadcast(ev *models.SnapshotEvent) {
	b, err := json.Marshal(ev)
	if err != nil {
		h.l.Error("encode snapshot event", applogger.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			metrics.WSDropped.Inc()
		}
	}
}

// Serve upgrades the request and streams events until the client goes away.
func (h *SnapshotHub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.l.Warn("websocket upgrade failed", applogger.Error(err))
		return nil
	}
	client := &wsClient{conn: conn, send: make(chan []byte, h.buffer)}
	h.add(client)

	go h.writeLoop(client)
	h.readLoop(client)
	return nil
}

// Close disconnects every subscriber.
func (h *SnapshotHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		c.close()
	}
	metrics.WSClients.Set(0)
}

func (h *SnapshotHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	metrics.WSClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
}

func (h *SnapshotHub) remove(c *wsClient) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	metrics.WSClients.Set(float64(len(h.clients)))
	h.mu.Unlock()
}

// readLoop only handles control frames; any read error ends the session.
func (h *SnapshotHub) readLoop(c *wsClient) {
	defer h.remove(c)
	c.conn.SetReadLimit(512)
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

func (h *SnapshotHub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(h.ping)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.remove(c)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(c)
				return
			}
		}
	}
}
