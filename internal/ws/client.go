package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const sendQueueSize = 64

type clientConn struct {
	id      string
	rawConn *websocket.Conn
	mu      sync.Mutex
	send    chan []byte
	done    chan struct{}
	once    sync.Once
}

func newClientConn(id string, rawConn *websocket.Conn) *clientConn {
	return &clientConn{
		id:      id,
		rawConn: rawConn,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
	}
}

// enqueue never blocks; false means the client is not keeping up.
func (c *clientConn) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close stops the write pump and the underlying socket. Safe to call twice.
func (c *clientConn) close() {
	c.once.Do(func() {
		close(c.done)
		if c.rawConn != nil {
			_ = c.rawConn.Close()
		}
	})
}

func (c *clientConn) write(mt int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = c.rawConn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.rawConn.WriteMessage(mt, data)
}

// writePump is the only writer of the socket.
func (c *clientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.send:
			if err := c.write(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
