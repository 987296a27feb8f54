package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/duelpit/duelserver/internal/dependencies/random"
	"github.com/duelpit/duelserver/internal/model"
)

const (
	connIDLength   = 16
	connIDAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// Gateway upgrades HTTP requests to WebSocket connections and runs the
// per-connection read and write pumps.
type Gateway struct {
	hub        *Hub
	dispatcher *Dispatcher
	random     random.Random
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewGateway creates a Gateway
func NewGateway(hub *Hub, dispatcher *Dispatcher, random random.Random, logger *slog.Logger) *Gateway {
	return &Gateway{
		hub:        hub,
		dispatcher: dispatcher,
		random:     random,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Game clients connect from arbitrary origins
				return true
			},
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

// ServeWS handles a WebSocket upgrade request
func (g *Gateway) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("websocket upgrade failed", slog.Any("error", err))
		return
	}

	id := model.ConnID("c_" + g.random.String(connIDLength, connIDAlphabet))
	client := newClient(id, conn)
	g.hub.register(client)

	go client.writePump(g)
	go client.readPump(g)
}

// handleDisconnect runs session cleanup when a client's read pump exits
func (g *Gateway) handleDisconnect(c *Client) {
	g.hub.unregister(c)
	g.dispatcher.HandleDisconnect(context.Background(), c.id)
}
