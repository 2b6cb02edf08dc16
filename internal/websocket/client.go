package websocket

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
)

// Client is a middleman between the websocket connection and the hub. All
// outbound traffic (streamed fragments and hub events alike) goes through
// Send so a single writer owns the connection.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// SessionKey scoping this connection to one conversation cache.
	SessionKey string

	// Buffered channel of outbound messages. Only the hub's unregister path
	// closes it, via shutdown.
	Send chan []byte

	mu     sync.Mutex
	closed bool
}

// SendJSON queues v for delivery. A full buffer drops the client; a consumer
// that cannot keep up with its own chat stream is gone anyway. The drop only
// enqueues the unregistration, leaving the channel close to the hub.
func (c *Client) SendJSON(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("marshal outbound frame for session %s: %v", c.SessionKey, err)
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	select {
	case c.Send <- data:
		c.mu.Unlock()
	default:
		c.mu.Unlock()
		c.Hub.Unregister(c)
	}
}

// shutdown closes Send exactly once. Called only from the hub's unregister
// handler; idempotence covers a client enqueued from several drop paths.
func (c *Client) shutdown() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
	c.mu.Unlock()
}

// writePump pumps messages from the hub to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
