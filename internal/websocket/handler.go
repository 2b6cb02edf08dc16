package websocket

import (
	"time"

	"github.com/gofiber/websocket/v2"
)

// ServeWs wires a raw connection into the hub and blocks until the caller's
// read loop returns. onMessage handles each inbound text frame; outbound
// traffic must go through client.SendJSON.
func ServeWs(hub *Hub, c *websocket.Conn, sessionKey string, onMessage func(client *Client, payload []byte)) {
	client := &Client{Hub: hub, Conn: c, SessionKey: sessionKey, Send: make(chan []byte, 256)}
	client.Hub.Register(client)

	go client.writePump()

	defer func() {
		client.Hub.Unregister(client)
		c.Close()
	}()

	c.SetReadLimit(maxMessageSize)
	c.SetReadDeadline(time.Now().Add(pongWait))
	c.SetPongHandler(func(string) error {
		c.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, payload, err := c.ReadMessage()
		if err != nil {
			break
		}
		onMessage(client, payload)
	}
}
