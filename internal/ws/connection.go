package ws

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = errors.New("send buffer full")

// ErrClosed is returned when sending on a closed connection.
var ErrClosed = errors.New("connection closed")

// Connection wraps one WebSocket connection behind a buffered send channel
// so the hub never blocks on a slow client. It implements hub.Transport.
type Connection struct {
	SessionID string
	UserID    string

	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func newConnection(ws *websocket.Conn) *Connection {
	return &Connection{
		ws:   ws,
		send: make(chan []byte, 256),
	}
}

// Send queues data for the write pump. A full buffer counts as a transport
// failure so the hub tears the session down instead of blocking a run.
func (c *Connection) Send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close shuts the connection down; later calls are no-ops.
func (c *Connection) Close(reason string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	log.Printf("Closing connection (session %s): %s", c.SessionID, reason)
	return c.ws.Close()
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.ws.SetReadDeadline(t)
}
