package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"auto-replier-be/internal/constant"
	"auto-replier-be/internal/pkg/logger"
	"auto-replier-be/pkg/events"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CommandDispatcher receives commands read from clients.
type CommandDispatcher interface {
	Dispatch(ctx context.Context, cmd events.Command) uint64
}

// Hub fans bus events out to every connected client. Delivery is best effort:
// a client whose buffer is full misses the event.
type Hub struct {
	// Registered clients by connection id.
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	// done is closed when Run returns.
	done chan struct{}

	mu sync.RWMutex

	// Redis connection for cross-instance fan-out, nil when disabled.
	rdb *redis.Client
	// instanceID tags our own Redis messages so they are not delivered twice.
	instanceID string

	dispatcher CommandDispatcher
	logger     logger.ILogger
}

type clusterMessage struct {
	Origin  string          `json:"origin"`
	Message json.RawMessage `json:"message"`
}

func NewHub(rdb *redis.Client, dispatcher CommandDispatcher, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		clients:    make(map[uuid.UUID]*Client),
		rdb:        rdb,
		instanceID: uuid.NewString(),
		dispatcher: dispatcher,
		logger:     log,
	}
}

// Run owns client registration until ctx ends, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, client := range h.clients {
				close(client.Send)
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"client_id": client.ID, "clients": h.Count()})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
			h.logger.Info("Hub", "Client unregistered", map[string]interface{}{"client_id": client.ID})
		}
	}
}

// join registers c and reports false when the hub already stopped.
func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Count is the number of connected local clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Forward broadcasts every event from ch until it closes or ctx ends.
func (h *Hub) Forward(ctx context.Context, ch <-chan events.BusEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			h.Publish(ctx, event)
		}
	}
}

// Publish sends event to local clients and, when Redis is enabled, to every
// other instance.
func (h *Hub) Publish(ctx context.Context, event events.BusEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Hub", "Failed to marshal event", map[string]interface{}{"type": event.Type, "error": err.Error()})
		return
	}

	h.broadcastLocal(data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{Origin: h.instanceID, Message: data})
		if err := h.rdb.Publish(ctx, constant.RedisChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Redis publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (h *Hub) broadcastLocal(data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping message", map[string]interface{}{"client_id": client.ID})
		}
	}
}

// sendTo delivers event to c alone, dropping it when c is gone or full.
func (h *Hub) sendTo(c *Client, event events.BusEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.clients[c.ID] != c {
		return
	}
	select {
	case c.Send <- data:
	default:
		h.logger.Warn("Hub", "Client Send buffer full, dropping ack", map[string]interface{}{"client_id": c.ID})
	}
}

func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, constant.RedisChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload clusterMessage
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			h.logger.Warn("Hub", "Redis message parse error", map[string]interface{}{"error": err.Error()})
			continue
		}
		if payload.Origin == h.instanceID {
			continue
		}
		h.broadcastLocal(payload.Message)
	}
}
