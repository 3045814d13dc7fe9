package realtime

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/collabspace/server/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// Client is one authorized websocket connection, bound to a project room
// and the user's personal room.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	router *Router
	send   chan []byte
	rooms  []string

	UserID    uint
	Username  string
	ProjectID uint
}

// NewClient wraps an upgraded connection. The caller joins the client to its
// rooms and starts both pumps.
func NewClient(hub *Hub, router *Router, conn *websocket.Conn, userID uint, username string, projectID uint) *Client {
	return &Client{
		hub:       hub,
		conn:      conn,
		router:    router,
		send:      make(chan []byte, sendBufferSize),
		UserID:    userID,
		Username:  username,
		ProjectID: projectID,
	}
}

// SendEvent queues a frame for this client only. Frames to a slow client
// are dropped rather than blocking the caller.
func (c *Client) SendEvent(event string, payload interface{}) {
	data, err := json.Marshal(Frame{Event: event, Payload: payload})
	if err != nil {
		logger.Errorf("[WS] Failed to marshal %s frame: %v", event, err)
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// ReadPump reads inbound frames until the connection drops, then detaches
// the client from the hub. Runs in its own goroutine per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warnf("[WS] Read error for user %d: %v", c.UserID, err)
			}
			return
		}
		c.router.HandleMessage(c, data)
	}
}

// WritePump drains the send channel to the connection and keeps it alive
// with pings. Runs in its own goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
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
