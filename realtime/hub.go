package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024
	sendBuffer     = 64
)

// Envelope is the JSON frame pushed to clients.
type Envelope struct {
	Type           string    `json:"type"`
	ConversationID uuid.UUID `json:"conversationId"`
	Data           any       `json:"data"`
}

// Hub tracks the open sockets of each user.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]map[*Client]struct{}
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{clients: make(map[uuid.UUID]map[*Client]struct{}), logger: logger}
}

func (h *Hub) Join(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c.userID] == nil {
		h.clients[c.userID] = make(map[*Client]struct{})
	}
	h.clients[c.userID][c] = struct{}{}
}

func (h *Hub) Leave(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.clients[c.userID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.clients, c.userID)
		}
	}
}

// Connections returns how many sockets the user has open.
func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// Broadcast pushes an event to every socket of the given users. Clients
// whose buffer is full are disconnected.
func (h *Hub) Broadcast(userIDs []uuid.UUID, conversationID uuid.UUID, event string, payload any) {
	b, err := json.Marshal(Envelope{Type: event, ConversationID: conversationID, Data: payload})
	if err != nil {
		h.logger.Warn("realtime: encode event failed", zap.String("event", event), zap.Error(err))
		return
	}

	var targets []*Client
	seen := make(map[uuid.UUID]bool, len(userIDs))
	h.mu.RLock()
	for _, id := range userIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		for c := range h.clients[id] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		select {
		case c.send <- b:
		default:
			h.logger.Debug("realtime: dropping slow client", zap.String("userId", c.userID.String()))
			go c.Close()
		}
	}
}
