// Package relay implements the group-communication hub layoverd runs:
// it groups connected agents into sessions and fans every data payload
// out to all members except the sender, in the sender's order.
package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrBackpressure = errors.New("backpressure")

// Frame is a raw payload queued for a client.
type Frame []byte

// Conn wraps one agent's websocket with a buffered send queue. TrySend
// never blocks; a full queue is reported as backpressure and handled by
// the hub's policy.
type Conn struct {
	ws   *websocket.Conn
	send chan Frame

	mu     sync.RWMutex
	closed bool
}

func NewConn(ws *websocket.Conn, sendBuffer int) *Conn {
	if sendBuffer <= 0 {
		sendBuffer = 32
	}
	return &Conn{ws: ws, send: make(chan Frame, sendBuffer)}
}

func (c *Conn) TrySend(f Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.ws.Close()
	c.mu.Unlock()
}

func (c *Conn) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "relay.conn").Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.ws.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "relay.conn").Msg("writePump set deadline")
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "relay.conn").Msg("writePump write error")
				return
			}
		}
	}
}
