package session

// Outbound event names.
const (
	EventOpenSessions = "openSessionsUpdate"
	EventSessionState = "sessionStateUpdate"
	EventOpponentLeft = "opponentLeft"
)

// Transport delivers an event to one connection or to every connection.
// Implementations must not block and must not call back into the engine.
type Transport interface {
	Send(connID, event string, body any)
	Broadcast(event string, body any)
}

// Router keeps the lobby channel and the per-session channel apart.
type Router struct {
	t Transport
}

func NewRouter(t Transport) *Router { return &Router{t: t} }

// Lobby pushes the open-session list to every connection.
func (r *Router) Lobby(open []Summary) {
	r.t.Broadcast(EventOpenSessions, open)
}

// LobbyTo answers a single list request.
func (r *Router) LobbyTo(connID string, open []Summary) {
	r.t.Send(connID, EventOpenSessions, open)
}

func (r *Router) State(members []string, snap Snapshot) {
	for _, id := range members {
		r.t.Send(id, EventSessionState, snap)
	}
}

func (r *Router) OpponentLeft(members []string) {
	for _, id := range members {
		r.t.Send(id, EventOpponentLeft, nil)
	}
}
