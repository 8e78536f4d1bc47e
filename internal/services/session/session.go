package session

import (
	"slices"
	"time"
)

// Variant selects the board shape of a session. It is fixed at creation.
type Variant string

const (
	VariantStandard Variant = "standard"
	VariantBig      Variant = "big"
)

const (
	standardBoardSize = 9
	bigBoardSize      = 900
	maxPlayers        = 2
)

// ParseVariant maps a client supplied game type onto a known variant.
// Anything unrecognised falls back to the standard board.
func ParseVariant(s string) Variant {
	switch Variant(s) {
	case VariantBig:
		return VariantBig
	default:
		return VariantStandard
	}
}

func (v Variant) BoardSize() int {
	if v == VariantBig {
		return bigBoardSize
	}
	return standardBoardSize
}

// Board is one snapshot of the cells; a nil cell is empty.
type Board []*string

func emptyBoard(size int) Board { return make(Board, size) }

// State is derived from membership and the started flag, never stored.
type State string

const (
	StateWaiting      State = "waiting"
	StateReadyPending State = "ready_pending"
	StateInProgress   State = "in_progress"
)

// Session is one match. Only the Registry mutates it.
type Session struct {
	ID          string
	Players     []string
	Variant     Variant
	History     []Board
	CurrentMove int
	Ready       map[string]struct{}
	Started     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func newSession(id, identity string, variant Variant, now time.Time) *Session {
	return &Session{
		ID:        id,
		Players:   []string{identity},
		Variant:   variant,
		History:   []Board{emptyBoard(variant.BoardSize())},
		Ready:     map[string]struct{}{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *Session) State() State {
	switch {
	case s.Started:
		return StateInProgress
	case len(s.Players) == maxPlayers:
		return StateReadyPending
	default:
		return StateWaiting
	}
}

func (s *Session) isOpen() bool { return len(s.Players) < maxPlayers }

// seat returns the player index of identity or -1.
func (s *Session) seat(identity string) int {
	return slices.Index(s.Players, identity)
}

func (s *Session) bothReady() bool {
	if len(s.Players) != maxPlayers {
		return false
	}
	for _, p := range s.Players {
		if _, ok := s.Ready[p]; !ok {
			return false
		}
	}
	return true
}

func (s *Session) removePlayer(identity string) {
	s.Players = slices.DeleteFunc(s.Players, func(p string) bool { return p == identity })
	delete(s.Ready, identity)
}

// readyList keeps seat order so snapshots are deterministic.
func (s *Session) readyList() []string {
	out := make([]string, 0, len(s.Ready))
	for _, p := range s.Players {
		if _, ok := s.Ready[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// Snapshot is the payload of sessionStateUpdate.
type Snapshot struct {
	BoardHistory []Board  `json:"boardHistory"`
	CurrentMove  int      `json:"currentMove"`
	Players      []string `json:"players"`
	ReadyPlayers []string `json:"readyPlayers"`
	Started      bool     `json:"started"`
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		BoardHistory: slices.Clone(s.History),
		CurrentMove:  s.CurrentMove,
		Players:      slices.Clone(s.Players),
		ReadyPlayers: s.readyList(),
		Started:      s.Started,
	}
}

// Summary is how a session appears in the lobby list.
type Summary struct {
	ID          string   `json:"id"`
	Players     []string `json:"players"`
	GameType    Variant  `json:"gameType"`
	BoardSize   int      `json:"boardSize"`
	CurrentMove int      `json:"currentMove"`
	Started     bool     `json:"started"`
	CreatedAt   int64    `json:"createdAt"`
}

func (s *Session) Summary() Summary {
	return Summary{
		ID:          s.ID,
		Players:     slices.Clone(s.Players),
		GameType:    s.Variant,
		BoardSize:   s.Variant.BoardSize(),
		CurrentMove: s.CurrentMove,
		Started:     s.Started,
		CreatedAt:   s.CreatedAt.UnixMilli(),
	}
}
