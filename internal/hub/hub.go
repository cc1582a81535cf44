package hub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Event types pushed to users.
const (
	EventConnectionRequest  = "connection_request"
	EventConnectionAccepted = "connection_accepted"
)

// Event represents a real-time event to be sent to clients.
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Client represents a single open notification stream.
// It's essentially a channel that the SSE handler will listen to.
type Client chan []byte

// ClientBuffer is the number of events a slow stream may lag behind before
// further events for it are dropped.
const ClientBuffer = 16

// NewClient returns a buffered client channel.
func NewClient() Client {
	return make(Client, ClientBuffer)
}

// Hub tracks the open streams of every connected user.
type Hub struct {
	users map[uint]map[Client]bool
	mu    sync.RWMutex
}

// GlobalHub is the singleton instance of our Hub.
var GlobalHub = NewHub()

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		users: make(map[uint]map[Client]bool),
	}
}

// Subscribe registers a stream for userID.
func (h *Hub) Subscribe(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.users[userID]; !ok {
		h.users[userID] = make(map[Client]bool)
	}
	h.users[userID][client] = true
}

// Unsubscribe removes a stream and closes it.
func (h *Hub) Unsubscribe(userID uint, client Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.users[userID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client) // Close the channel to signal the SSE handler to stop.
			if len(clients) == 0 {
				delete(h.users, userID)
			}
		}
	}
}

// Subscribers reports how many streams userID has open.
func (h *Hub) Subscribers(userID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID])
}

// Notify sends an event to every stream of userID. Delivery is best effort.
func (h *Hub) Notify(userID uint, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.users[userID]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(event)
	if err != nil {
		zap.L().Error("failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	for client := range clients {
		// Non-blocking so a slow stream never stalls the request that triggered the event.
		select {
		case client <- messageBytes:
		default:
			zap.L().Warn("dropping event for slow stream", zap.Uint("user_id", userID), zap.String("type", event.Type))
		}
	}
}
