package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// IService is the set of inbound events the transport can deliver.
type IService interface {
	Connect(connID string)
	Disconnect(connID string)
	ClaimIdentity(connID, name string)
	CreateSession(connID, identity, variant string, ack func(id string)) (string, bool)
	JoinSession(connID, sessionID string)
	LeaveSession(connID string)
	SetReady(connID, sessionID string)
	SetUnready(connID, sessionID string)
	ApplyMove(connID, sessionID string, history []Board, moveIndex int)
	RequestOpenSessions(connID string)
	OpenSessions() []Summary
}

// Engine serializes every inbound event: each call runs to completion,
// including fan-out, before the next one starts.
type Engine struct {
	mu     sync.Mutex
	reg    *Registry
	router *Router
	conns  map[string]*ConnContext
	opts   options
}

var _ IService = (*Engine)(nil)

func NewEngine(t Transport, opts ...Option) *Engine {
	router := NewRouter(t)
	return &Engine{
		reg:    NewRegistry(router, opts...),
		router: router,
		conns:  make(map[string]*ConnContext),
		opts:   buildOptions(opts),
	}
}

func (e *Engine) Connect(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.conns[connID]; !ok {
		e.conns[connID] = newConnContext(connID)
	}
}

// Disconnect runs the same cleanup as LeaveSession and forgets the connection.
func (e *Engine) Disconnect(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cc, ok := e.conns[connID]
	if !ok {
		return
	}
	e.leave(cc)
	delete(e.conns, connID)
}

func (e *Engine) ClaimIdentity(connID, name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cc, ok := e.conns[connID]; ok && !cc.ClaimIdentity(name) {
		zap.L().Debug("claim_identity_ignored", zap.String("conn", connID))
	}
}

// CreateSession returns the new session id; ok is false when nothing was created.
// ack, when set, receives the id before the lobby hears about the session.
func (e *Engine) CreateSession(connID, identity, variant string, ack func(id string)) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.conns[connID]; !ok {
		return "", false
	}
	id, err := e.reg.create(identity, variant)
	if err != nil {
		e.dropped("create_session", connID, err)
		return "", false
	}
	if ack != nil {
		ack(id)
	}
	e.reg.refreshLobby()
	zap.L().Info("session_created", zap.String("session", id), zap.String("variant", string(ParseVariant(variant))))
	return id, true
}

func (e *Engine) JoinSession(connID, sessionID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cc, ok := e.conns[connID]
	if !ok {
		return
	}
	if cc.Identity == "" {
		e.dropped("join_session", connID, ErrInvalidIdentity)
		return
	}
	if _, ok := e.reg.Get(sessionID); !ok {
		e.dropped("join_session", connID, ErrSessionNotFound)
		return
	}
	if cc.InSession() && cc.SessionID != sessionID {
		e.leave(cc)
	}
	if err := e.reg.Join(sessionID, cc.ID, cc.Identity); err != nil {
		e.dropped("join_session", connID, err)
		return
	}
	cc.EnterSession(sessionID)
}

func (e *Engine) LeaveSession(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if cc, ok := e.conns[connID]; ok {
		e.leave(cc)
	}
}

func (e *Engine) SetReady(connID, sessionID string) {
	e.withIdentity("set_ready", connID, func(identity string) error {
		return e.reg.SetReady(sessionID, identity)
	})
}

func (e *Engine) SetUnready(connID, sessionID string) {
	e.withIdentity("set_unready", connID, func(identity string) error {
		return e.reg.SetUnready(sessionID, identity)
	})
}

func (e *Engine) ApplyMove(connID, sessionID string, history []Board, moveIndex int) {
	e.withIdentity("apply_move", connID, func(identity string) error {
		return e.reg.ApplyMove(sessionID, identity, history, moveIndex)
	})
}

// RequestOpenSessions answers only the asking connection.
func (e *Engine) RequestOpenSessions(connID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.conns[connID]; ok {
		e.router.LobbyTo(connID, e.reg.ListOpen())
	}
}

func (e *Engine) OpenSessions() []Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reg.ListOpen()
}

// Snapshot returns the current state of a session, mostly for tests.
func (e *Engine) Snapshot(sessionID string) (Snapshot, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.reg.Get(sessionID)
	if !ok {
		return Snapshot{}, false
	}
	return s.Snapshot(), true
}

// Conn returns a copy of a connection context.
func (e *Engine) Conn(connID string) (ConnContext, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cc, ok := e.conns[connID]
	if !ok {
		return ConnContext{}, false
	}
	return *cc, true
}

// Sweep evicts idle sessions that nobody is connected to.
func (e *Engine) Sweep(ttl time.Duration) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	removed := e.reg.Sweep(ttl)
	for _, id := range removed {
		zap.L().Info("session_evicted", zap.String("session", id), zap.Duration("ttl", ttl))
	}
	return removed
}

// RunSweeper calls Sweep every interval until ctx is done. A zero ttl
// disables eviction.
func (e *Engine) RunSweeper(ctx context.Context, interval, ttl time.Duration) {
	if ttl <= 0 || interval <= 0 {
		return
	}
	tk := e.opts.clock.NewTicker(interval)
	defer tk.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-tk.Chan():
			e.Sweep(ttl)
		}
	}
}

func (e *Engine) withIdentity(op, connID string, f func(identity string) error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cc, ok := e.conns[connID]
	if !ok {
		e.dropped(op, connID, ErrUnknownConn)
		return
	}
	if err := f(cc.Identity); err != nil {
		e.dropped(op, connID, err)
	}
}

// dropped logs a rejected event. Clients never hear about it.
func (e *Engine) dropped(op, connID string, err error) {
	level := zap.DebugLevel
	if errors.Is(err, ErrWrongTurn) || errors.Is(err, ErrMalformedMove) {
		level = zap.InfoLevel
	}
	zap.L().Log(level, op+"_dropped", zap.String("conn", connID), zap.Error(err))
}
