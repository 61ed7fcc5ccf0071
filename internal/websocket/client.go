package websocket

import (
	"context"
	"encoding/json"
	"time"

	"auto-replier-be/pkg/events"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 256 * 1024 // e-mail bodies
	sendBuffer     = 256
)

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	// ID identifies this connection in logs.
	ID uuid.UUID

	// Buffered channel of outbound messages.
	Send chan []byte
}

// readPump decodes commands from the connection and dispatches them.
func (c *Client) readPump() {
	defer func() {
		c.Hub.leave(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	log := c.Hub.logger.With(map[string]interface{}{"client_id": c.ID.String()})
	for {
		_, data, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn("Client", "Unexpected close", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		var cmd events.Command
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Type == "" {
			log.Warn("Client", "Ignoring malformed command", map[string]interface{}{"size": len(data)})
			continue
		}
		id := c.Hub.dispatcher.Dispatch(context.Background(), cmd)
		log.Info("Client", "Command dispatched", map[string]interface{}{"type": cmd.Type, "generation_id": id})
		c.Hub.sendTo(c, events.Accepted(cmd.Type, id))
	}
}

// writePump pumps messages from the hub to the websocket connection, one
// event per frame.
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
