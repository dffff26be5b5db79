package main

import (
	"log/slog"
	"net/netip"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"sharedcanvas/internal/config"
)

// Client wraps a [websocket.Conn] for one participant. writePump is the only
// goroutine that writes to the connection; the server loop hands it frames
// through send.
type Client struct {
	*websocket.Conn
	ID   string
	Addr netip.Addr

	send    chan []byte
	dropped bool // set by the server loop once the client is being removed
	logger  *slog.Logger
}

func newClient(conn *websocket.Conn, addr netip.Addr, buffer int, logger *slog.Logger) *Client {
	id := uuid.NewString()
	return &Client{
		Conn:   conn,
		ID:     id,
		Addr:   addr,
		send:   make(chan []byte, buffer),
		logger: logger.With(slog.String("connID", id), slog.String("ip", addr.String())),
	}
}

// enqueue queues msg without blocking and reports whether there was room.
// Only the server loop may call it, since the loop is also the one that
// closes send.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func pingPeriod(pongWait time.Duration) time.Duration {
	return pongWait * 9 / 10
}

// writePump drains send onto the connection and keeps it alive with pings.
// It returns, closing the connection, when send is closed or a write fails.
func (c *Client) writePump(cfg config.TransportConfig) {
	ticker := time.NewTicker(pingPeriod(cfg.PongWait))
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if !ok {
				c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("error sending message to client", slog.Any("error", err))
				return
			}

		case <-ticker.C:
			c.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("error sending ping", slog.Any("error", err))
				return
			}
		}
	}
}
