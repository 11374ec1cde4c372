package ws

import (
	"net/http"
	"strings"
	"time"

	"github.com/dineflow/api/internal/auth"
	"github.com/dineflow/api/internal/enum"
	"github.com/dineflow/api/internal/middleware"
	"github.com/dineflow/api/internal/store"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // access is decided per topic below
	},
}

// Client represents a single WebSocket connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	topics []string
	send   chan []byte
	log    *zap.Logger
}

// ReadPump pumps messages from the WebSocket connection to the hub.
// Subscribers never send data; the loop only detects disconnects.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket error", zap.Error(err))
			}
			break
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
func (c *Client) WritePump() {
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
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
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

// publicCollections may be watched without signing in.
var publicCollections = map[string]bool{
	store.CollOutlets:  true,
	store.CollMenu:     true,
	store.CollSettings: true,
}

// CanSubscribe decides whether claims (nil for guests) may join topic.
// Order rooms are open to anyone holding the order id, the same rule as
// the public tracking endpoint.
func CanSubscribe(claims *auth.Claims, topic string) bool {
	kind, id, ok := strings.Cut(topic, ":")
	if !ok || id == "" {
		return false
	}
	switch kind {
	case "order":
		return true
	case "outlet":
		return claims != nil && enum.IsStaffRole(claims.Role) && middleware.CanAccessOutlet(claims, id)
	case "collection":
		if publicCollections[id] {
			return true
		}
		return claims != nil && enum.IsStaffRole(claims.Role)
	}
	return false
}

// ServeWS handles WebSocket requests from clients.
// Endpoint: GET /ws?topic=outlet:<id>&topic=order:<id>&token=JWT
func ServeWS(hub *Hub, tokens middleware.TokenValidator, log *zap.Logger, w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var topics []string
	for _, raw := range q["topic"] {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				topics = append(topics, t)
			}
		}
	}
	if len(topics) == 0 {
		http.Error(w, "missing topic", http.StatusBadRequest)
		return
	}

	var claims *auth.Claims
	if tokenStr := q.Get("token"); tokenStr != "" {
		c, err := tokens.ValidateToken(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}
		claims = c
	}

	for _, t := range topics {
		if !CanSubscribe(claims, t) {
			if claims == nil {
				http.Error(w, "token required for topic "+t, http.StatusUnauthorized)
			} else {
				http.Error(w, "access denied for topic "+t, http.StatusForbidden)
			}
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	client := &Client{
		hub:    hub,
		conn:   conn,
		topics: topics,
		send:   make(chan []byte, 256),
		log:    log,
	}
	if !hub.Register(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
