package websocket

import (
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

// ServeWs runs one bus connection until it closes.
func ServeWs(hub *Hub, c *websocket.Conn) {
	client := &Client{Hub: hub, Conn: c, ID: uuid.New(), Send: make(chan []byte, sendBuffer)}
	if !hub.join(client) {
		c.Close()
		return
	}

	go client.writePump()
	client.readPump() // Run readPump in current goroutine (handler)
}
