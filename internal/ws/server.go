package ws

import (
	"context"
	"encoding/json"
	"errors"
	"matchlobby/internal/services/session"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must be < pongWait

	// A big-board history is a few KB per move.
	maxMessageSize = 4 << 20

	dispatchTimeout = 1900 * time.Millisecond
)

var errSessionNotCreated = errors.New("session_not_created")

// ConnObserver is told about every opened and closed socket.
type ConnObserver interface {
	ConnOpened()
	ConnClosed()
}

type nopObserver struct{}

func (nopObserver) ConnOpened() {}
func (nopObserver) ConnClosed() {}

type WsServer struct {
	hub      *Hub
	router   *Router
	engine   session.IService
	upgrader websocket.Upgrader
	observer ConnObserver
}

func NewWsServer(h *Hub, engine session.IService, allowedOrigins []string, observer ConnObserver) *WsServer {
	if observer == nil {
		observer = nopObserver{}
	}
	srv := &WsServer{
		hub:    h,
		router: NewRouter(),
		engine: engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		observer: observer,
	}
	srv.registerHandlers() // ← all WS endpoints configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry‑point
// ---------------------------------------------------------------------------

func (s *WsServer) Handle(ginCtx *gin.Context) {
	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}

	conn := newClientConn(uuid.NewString(), rawConn)
	s.hub.add(conn)
	s.engine.Connect(conn.id)
	s.observer.ConnOpened()

	go conn.writePump()
	go s.reader(conn)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	Handle(s.router, "claimIdentity",
		func(_ context.Context, cc *ConnContext, req claimIdentityArgs) error {
			s.engine.ClaimIdentity(cc.ConnID, req.Name)
			return nil
		})

	// the ack goes out before the lobby broadcast
	Handle(s.router, "createSession",
		func(_ context.Context, cc *ConnContext, req createSessionArgs) error {
			ack := func(id string) { s.ack(cc.ConnID, "createSession", id) }
			if _, ok := s.engine.CreateSession(cc.ConnID, req.Identity, req.Variant, ack); !ok {
				return errSessionNotCreated
			}
			return nil
		})

	Handle(s.router, "joinSession",
		func(_ context.Context, cc *ConnContext, req sessionArgs) error {
			s.engine.JoinSession(cc.ConnID, req.SessionID)
			return nil
		})

	Handle(s.router, "leaveSession",
		func(_ context.Context, cc *ConnContext, _ noArgs) error {
			s.engine.LeaveSession(cc.ConnID)
			return nil
		})

	Handle(s.router, "setReady",
		func(_ context.Context, cc *ConnContext, req sessionArgs) error {
			s.engine.SetReady(cc.ConnID, req.SessionID)
			return nil
		})

	Handle(s.router, "setUnready",
		func(_ context.Context, cc *ConnContext, req sessionArgs) error {
			s.engine.SetUnready(cc.ConnID, req.SessionID)
			return nil
		})

	Handle(s.router, "applyMove",
		func(_ context.Context, cc *ConnContext, req applyMoveArgs) error {
			s.engine.ApplyMove(cc.ConnID, req.SessionID, req.History, req.MoveIndex)
			return nil
		})

	Handle(s.router, "listOpenSessionsRequest",
		func(_ context.Context, cc *ConnContext, _ noArgs) error {
			s.engine.RequestOpenSessions(cc.ConnID)
			return nil
		})
}

func (s *WsServer) reader(conn *clientConn) {
	defer func() {
		s.hub.remove(conn.id)
		s.engine.Disconnect(conn.id)
		s.observer.ConnClosed()
	}()

	raw := conn.rawConn
	raw.SetReadLimit(maxMessageSize)
	_ = raw.SetReadDeadline(time.Now().Add(pongWait))
	raw.SetPongHandler(func(string) error {
		return raw.SetReadDeadline(time.Now().Add(pongWait))
	})

	cc := &ConnContext{ConnID: conn.id, Server: s}

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Debug("ws.read", zap.String("conn", conn.id), zap.Error(err))
			}
			return // client closed or errored
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			zap.L().Debug("ws.bad_frame", zap.String("conn", conn.id), zap.Error(err))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		err = s.router.dispatch(ctx, cc, env)
		cancel()

		// Failed events are dropped without a reply.
		if err != nil {
			zap.L().Debug("ws.event_dropped",
				zap.String("conn", conn.id), zap.String("event", env.Event), zap.Error(err))
		}
	}
}

// ack replies {"event":"<evt>-ack", "body":...} to one connection.
func (s *WsServer) ack(connID, event string, body any) {
	s.hub.Send(connID, event+"-ack", body)
}

// checkOrigin admits non-browser clients (no Origin header) and any
// origin on the allow list. "*" admits everything.
func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}
