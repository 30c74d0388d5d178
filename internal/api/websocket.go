package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// upgrader permits any origin, matching the teacher's own
// internal/api/websocket.go dev-mode comment — CORS on the HTTP routes
// already gates browser access via AllowedOrigins, and WS /ws/signals is a
// read-only broadcast feed with no mutating side effects.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsClient is one connected subscriber to the signals feed, adapted from
// the teacher's WSClient/WSHub pair down to a single broadcast channel
// (the teacher fans out several event kinds; this surface only ever
// broadcasts TradingSignal messages).
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// wsHub tracks connected clients and fans a single broadcast channel out
// to all of them, dropping any client whose send buffer is full rather
// than blocking the feed for the rest.
type wsHub struct {
	mu         sync.RWMutex
	clients    map[*wsClient]struct{}
	broadcastC chan []byte
	register   chan *wsClient
	unregister chan *wsClient
}

func newWSHub() *wsHub {
	return &wsHub{
		clients:    make(map[*wsClient]struct{}),
		broadcastC: make(chan []byte, 256),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
}

func (h *wsHub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case payload := <-h.broadcastC:
			h.mu.RLock()
			for c := range h.clients {
				select {
				case c.send <- payload:
				default:
					// slow consumer; drop rather than block the feed
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *wsHub) broadcast(payload []byte) {
	select {
	case h.broadcastC <- payload:
	default:
	}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err.Error())
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 32)}
	s.hub.register <- client

	go client.writePump()
	client.readPump(s.hub)
}

// readPump discards any client-sent frames (this feed is broadcast-only)
// and unregisters the client once the connection drops.
func (c *wsClient) readPump(h *wsHub) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
