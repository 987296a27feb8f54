package ws

import (
	"log/slog"
	"sync"

	"github.com/duelpit/duelserver/internal/model"
)

// Hub tracks connected clients by connection id and delivers frames to them.
// Frames queued for one client are written in queue order, so relay payloads
// from a given sender reach the peer in the order sent.
type Hub struct {
	mu      sync.RWMutex
	clients map[model.ConnID]*Client
	logger  *slog.Logger
}

// NewHub creates an empty Hub
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[model.ConnID]*Client),
		logger:  logger.With(slog.String("component", "ws")),
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected",
		slog.String("conn_id", string(client.id)),
		slog.Int("total_clients", total))
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if current, ok := h.clients[client.id]; ok && current == client {
		delete(h.clients, client.id)
	}
	total := len(h.clients)
	h.mu.Unlock()

	client.close()
	h.logger.Info("client disconnected",
		slog.String("conn_id", string(client.id)),
		slog.Int("total_clients", total))
}

// SendTo queues a frame for one connection. Unknown connections and clients
// with a full send buffer drop the frame.
func (h *Hub) SendTo(conn model.ConnID, frame []byte) bool {
	h.mu.RLock()
	client, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return false
	}

	select {
	case client.send <- frame:
		return true
	default:
		h.logger.Warn("frame dropped, send buffer full",
			slog.String("conn_id", string(conn)))
		return false
	}
}

// SendToEach queues a frame for every listed connection
func (h *Hub) SendToEach(conns []model.ConnID, frame []byte) {
	for _, conn := range conns {
		h.SendTo(conn, frame)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
