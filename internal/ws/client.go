package ws

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/duelpit/duelserver/internal/model"
)

const (
	// Time allowed to write a frame to the peer
	writeWait = 10 * time.Second

	// Read deadline; reset whenever a pong arrives
	pongWait = 60 * time.Second

	// Ping interval, under pongWait so healthy connections never expire
	pingPeriod = 54 * time.Second

	// Inbound frames larger than this indicate a misbehaving client
	maxMessageSize = 64 * 1024

	sendBufferSize = 256
)

// Client is one connected player's WebSocket with its outbound queue
type Client struct {
	id        model.ConnID
	conn      *websocket.Conn
	send      chan []byte
	closeOnce sync.Once
}

func newClient(id model.ConnID, conn *websocket.Conn) *Client {
	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

// readPump reads frames and dispatches them one at a time, so a connection's
// signals are handled to completion in arrival order. A dispatch error is
// fatal to the connection.
func (c *Client) readPump(g *Gateway) {
	defer func() {
		g.handleDisconnect(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.logger.Error("read error",
					slog.String("conn_id", string(c.id)),
					slog.Any("error", err))
			}
			return
		}

		if err := g.dispatcher.HandleMessage(context.Background(), c.id, raw); err != nil {
			g.logger.Error("fatal dispatch error, closing connection",
				slog.String("conn_id", string(c.id)),
				slog.Any("error", err))
			return
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings
func (c *Client) writePump(g *Gateway) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
