package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

var ErrUnknownEvent = errors.New("unknown_event")

// ConnContext identifies the connection an event arrived on.
type ConnContext struct {
	ConnID string
	Server *WsServer
}

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *ConnContext, body json.RawMessage) error

// Router keeps a map[event]handler, à‑la gin.Engine.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
	validate *validator.Validate
}

func NewRouter() *Router {
	return &Router{handlers: make(map[string]rawHandler), validate: validator.New()}
}

// Handle binds an event to a strongly‑typed handler. Replies, if any, are
// the handler's business.
func Handle[Req any](
	r *Router,
	event string,
	h func(ctx context.Context, c *ConnContext, req Req) error,
) {
	r.bind(event, func(ctx context.Context, c *ConnContext, body json.RawMessage) error {
		req, err := decode[Req](r, body)
		if err != nil {
			return err
		}
		return h(ctx, c, req)
	})
}

func (r *Router) bind(event string, h rawHandler) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[event] = h
}

func decode[Req any](r *Router, body json.RawMessage) (Req, error) {
	var req Req
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return req, err
		}
	}
	if err := r.validate.Struct(&req); err != nil {
		return req, err
	}
	return req, nil
}

// dispatch is called by the server’s reader loop.
func (r *Router) dispatch(ctx context.Context, c *ConnContext, env Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return ErrUnknownEvent
	}
	return h(ctx, c, env.Body)
}
