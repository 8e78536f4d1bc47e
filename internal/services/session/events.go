package session

import (
	"errors"
	"time"
)

var (
	ErrInvalidIdentity = errors.New("identity required")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSeated       = errors.New("identity is not seated in session")
	ErrNotStarted      = errors.New("session not started")
	ErrWrongTurn       = errors.New("invalid turn")
	ErrMalformedMove   = errors.New("malformed move")
	ErrNoSession       = errors.New("connection is not in a session")
	ErrUnknownConn     = errors.New("unknown connection")
)

type EventKind string

const (
	KindCreated      EventKind = "created"
	KindSeated       EventKind = "seated"
	KindReady        EventKind = "ready"
	KindUnready      EventKind = "unready"
	KindStarted      EventKind = "started"
	KindMove         EventKind = "move"
	KindMoveRejected EventKind = "move_rejected"
	KindPlayerLeft   EventKind = "player_left"
	KindClosed       EventKind = "closed"
)

// Close reasons carried by KindClosed events.
const (
	ReasonAbandoned = "abandoned" // a player left a started match
	ReasonEmpty     = "empty"
	ReasonIdle      = "idle"
)

// Event describes one registry transition. Open and Total are the registry
// counts after the transition was applied.
type Event struct {
	Kind        EventKind
	SessionID   string
	Identity    string
	Variant     Variant
	Players     []string
	CurrentMove int
	Reason      string
	Open        int
	Total       int
	At          time.Time
}

// Recorder observes registry transitions. Record is called while the engine
// lock is held, so implementations must not block.
type Recorder interface {
	Record(ev Event)
}

type nopRecorder struct{}

func (nopRecorder) Record(Event) {}

// Recorders fans one event out to several recorders.
type Recorders []Recorder

func (rs Recorders) Record(ev Event) {
	for _, r := range rs {
		r.Record(ev)
	}
}
