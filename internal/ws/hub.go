package ws

import (
	"encoding/json"
	"matchlobby/internal/services/session"
	"sync"

	"go.uber.org/zap"
)

// Hub indexes live connections by id and implements session.Transport.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*clientConn
}

var _ session.Transport = (*Hub)(nil)

func NewHub() *Hub { return &Hub{conns: make(map[string]*clientConn)} }

func (h *Hub) add(c *clientConn) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()
	if ok {
		c.close()
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Send queues an event for one connection.
func (h *Hub) Send(connID, event string, body any) {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	msg, err := encode(event, body)
	if err != nil {
		zap.L().Error("ws.encode", zap.String("event", event), zap.Error(err))
		return
	}
	if !c.enqueue(msg) {
		h.drop(c)
	}
}

// Broadcast queues an event for every connection.
func (h *Hub) Broadcast(event string, body any) {
	msg, err := encode(event, body)
	if err != nil {
		zap.L().Error("ws.encode", zap.String("event", event), zap.Error(err))
		return
	}

	// Take a quick snapshot of the current connections
	h.mu.RLock()
	conns := make([]*clientConn, 0, len(h.conns))
	for _, c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	var failed []*clientConn
	for _, c := range conns {
		if !c.enqueue(msg) {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		h.drop(c)
	}
}

// drop closes a slow client. Its reader then exits and runs the normal
// disconnect path.
func (h *Hub) drop(c *clientConn) {
	zap.L().Warn("ws.slow_client_dropped", zap.String("conn", c.id))
	h.remove(c.id)
}

func encode(event string, body any) ([]byte, error) {
	return json.Marshal(outbound{Event: event, Body: body})
}
