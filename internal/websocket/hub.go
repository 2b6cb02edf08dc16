package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ai-docchat-be/internal/pkg/logger"

	"github.com/redis/go-redis/v9"
)

const clusterChannel = "chat_cluster_events"

// Hub tracks connected clients per session key (a session may hold several
// tabs) and fans chat events out to them. With Redis configured, events also
// cross instance boundaries.
//
// Send channels are closed only in the unregister handler, under the full
// lock; fanout paths hold the read lock while sending, so a send never races
// a close. A stalled client is collected during fanout and unregistered after
// the lock is released, since the unregister channel is serviced by Run, which
// needs the lock itself.
type Hub struct {
	// Registered clients map: session key -> list of clients.
	clients map[string][]*Client

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fanout, nil for single-instance.
	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[string][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionKey] = append(h.clients[client.SessionKey], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"session": client.SessionKey})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.SessionKey]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.SessionKey] = append(clients[:i], clients[i+1:]...)
						client.shutdown()
						break
					}
				}
				if len(h.clients[client.SessionKey]) == 0 {
					delete(h.clients, client.SessionKey)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event frame to every connected client.
func (h *Hub) Broadcast(frame interface{}) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Warn("Hub", "Broadcast marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	var stalled []*Client
	for _, clients := range h.clients {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				stalled = append(stalled, client)
			}
		}
	}
	h.mu.RUnlock()
	h.drop(stalled)

	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_session": "*",
			"message":        json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), clusterChannel, payload)
	}
}

// SendToSession delivers an event frame to every client of one session.
func (h *Hub) SendToSession(sessionKey string, frame interface{}) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Warn("Hub", "SendToSession marshal failed", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	var stalled []*Client
	for _, client := range h.clients[sessionKey] {
		select {
		case client.Send <- data:
		default:
			h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"session": sessionKey})
			stalled = append(stalled, client)
		}
	}
	h.mu.RUnlock()
	h.drop(stalled)

	// Other instances may hold tabs for the same session.
	if h.rdb != nil {
		payload, _ := json.Marshal(map[string]interface{}{
			"target_session": sessionKey,
			"message":        json.RawMessage(data),
		})
		h.rdb.Publish(context.Background(), clusterChannel, payload)
	}
}

// drop enqueues the stalled clients for unregistration. Must be called with
// no lock held.
func (h *Hub) drop(stalled []*Client) {
	for _, client := range stalled {
		h.unregister <- client
	}
}

func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var payload struct {
			TargetSession string          `json:"target_session"`
			Message       json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		h.mu.RLock()
		var stalled []*Client
		deliver := func(client *Client) {
			select {
			case client.Send <- payload.Message:
			default:
				stalled = append(stalled, client)
			}
		}
		if payload.TargetSession == "*" {
			for _, clients := range h.clients {
				for _, client := range clients {
					deliver(client)
				}
			}
		} else {
			for _, client := range h.clients[payload.TargetSession] {
				deliver(client)
			}
		}
		h.mu.RUnlock()
		h.drop(stalled)
	}
}
