// internal/messaging/hub.go

package messaging

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Hub maintains active websocket connections. A user may hold several
// connections, one per device.
type Hub struct {
	clients    map[int64]map[*Client]bool
	clientsMux sync.RWMutex

	register   chan *Client
	unregister chan *Client

	logger *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func NewHub(logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())

	return &Hub{
		clients:    make(map[int64]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		logger:     logger.With(zap.String("component", "ws_hub")),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// Run processes registrations until Shutdown is called
func (h *Hub) Run() {
	defer close(h.done)
	defer h.cleanup()

	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case <-h.ctx.Done():
			return
		}
	}
}

// Register adds a client unless the hub is shutting down
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.ctx.Done():
		return false
	}
}

// Unregister removes a client
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

func (h *Hub) registerClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	set, ok := h.clients[client.userID]
	if !ok {
		set = make(map[*Client]bool)
		h.clients[client.userID] = set
	}
	set[client] = true

	h.logger.Debug("client connected", zap.Int64("user_id", client.userID), zap.Int("user_connections", len(set)))
}

func (h *Hub) unregisterClient(client *Client) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	h.removeLocked(client)
}

// removeLocked drops the client and closes its send channel. The caller must
// hold clientsMux for writing.
func (h *Hub) removeLocked(client *Client) {
	set, ok := h.clients[client.userID]
	if !ok || !set[client] {
		return
	}

	delete(set, client)
	client.close()
	if len(set) == 0 {
		delete(h.clients, client.userID)
	}

	h.logger.Debug("client disconnected", zap.Int64("user_id", client.userID))
}

func (h *Hub) cleanup() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()

	for _, set := range h.clients {
		for client := range set {
			client.close()
		}
	}
	h.clients = make(map[int64]map[*Client]bool)
}

// SendToUser queues a frame on every connection of the user. Slow
// connections whose buffer is full are dropped.
func (h *Hub) SendToUser(userID int64, message WSMessage) {
	data, err := json.Marshal(message)
	if err != nil {
		h.logger.Warn("failed to marshal ws message", zap.Error(err))
		return
	}

	var stale []*Client

	h.clientsMux.RLock()
	for client := range h.clients[userID] {
		select {
		case client.send <- data:
		default:
			stale = append(stale, client)
		}
	}
	h.clientsMux.RUnlock()

	if len(stale) > 0 {
		h.clientsMux.Lock()
		for _, client := range stale {
			h.removeLocked(client)
		}
		h.clientsMux.Unlock()
	}
}

// SendEvent wraps data in a frame of the given type and sends it to the user
func (h *Hub) SendEvent(userID int64, eventType string, data interface{}) {
	h.SendToUser(userID, WSMessage{
		Type:      eventType,
		Data:      mustMarshal(data),
		Timestamp: time.Now().UTC(),
	})
}

// SendToConversation sends the frame to every participant except excludeUserID
func (h *Hub) SendToConversation(conv *Conversation, message WSMessage, excludeUserID int64) {
	for _, userID := range conv.Participants() {
		if userID != excludeUserID {
			h.SendToUser(userID, message)
		}
	}
}

// Connections returns the number of open connections of a user
func (h *Hub) Connections(userID int64) int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients[userID])
}

// Shutdown closes every connection and stops Run
func (h *Hub) Shutdown() {
	h.cancel()
	<-h.done
}
