package session

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

type options struct {
	clock    clockwork.Clock
	recorder Recorder
	newID    func() string
}

type Option func(*options)

// WithClock replaces the wall clock. Tests pass a clockwork.FakeClock.
func WithClock(c clockwork.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithRecorder(r Recorder) Option {
	return func(o *options) { o.recorder = r }
}

func WithIDGenerator(f func() string) Option {
	return func(o *options) { o.newID = f }
}

func buildOptions(opts []Option) options {
	o := options{
		clock:    clockwork.NewRealClock(),
		recorder: nopRecorder{},
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Registry owns every session and the member connections of each one.
// Seats (identities) and members (connections) are tracked separately.
// It is not safe for concurrent use; the Engine serializes access.
type Registry struct {
	sessions map[string]*Session
	order    []string
	members  map[string]map[string]struct{}
	router   *Router
	opts     options
}

func NewRegistry(router *Router, opts ...Option) *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		members:  make(map[string]map[string]struct{}),
		router:   router,
		opts:     buildOptions(opts),
	}
}

func (r *Registry) Get(id string) (*Session, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

func (r *Registry) Len() int { return len(r.sessions) }

// ListOpen returns sessions with a free seat in creation order.
func (r *Registry) ListOpen() []Summary {
	out := make([]Summary, 0, len(r.order))
	for _, id := range r.order {
		if s := r.sessions[id]; s.isOpen() {
			out = append(out, s.Summary())
		}
	}
	return out
}

// Members returns the member connection ids of a session, sorted.
func (r *Registry) Members(id string) []string {
	set := r.members[id]
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	slices.Sort(out)
	return out
}

// Create seats identity in a fresh session and returns its id.
func (r *Registry) Create(identity, variant string) (string, error) {
	id, err := r.create(identity, variant)
	if err != nil {
		return "", err
	}
	r.refreshLobby()
	return id, nil
}

// create is Create without the lobby broadcast.
func (r *Registry) create(identity, variant string) (string, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return "", ErrInvalidIdentity
	}

	id := r.opts.newID()
	for r.sessions[id] != nil {
		id = r.opts.newID()
	}
	s := newSession(id, identity, ParseVariant(variant), r.opts.clock.Now())
	r.sessions[id] = s
	r.order = append(r.order, id)
	r.members[id] = make(map[string]struct{})

	r.record(KindCreated, s, identity, "")
	return id, nil
}

// Join registers connID as a member of the session and seats identity when
// a seat is free. Members that could not be seated still receive state.
func (r *Registry) Join(id, connID, identity string) error {
	if identity == "" {
		return ErrInvalidIdentity
	}
	s, ok := r.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}

	r.members[id][connID] = struct{}{}

	if s.seat(identity) < 0 && s.isOpen() {
		s.Players = append(s.Players, identity)
		s.UpdatedAt = r.opts.clock.Now()
		r.record(KindSeated, s, identity, "")
		r.refreshLobby()
	}
	r.router.State(r.Members(id), s.Snapshot())
	return nil
}

// Remove deletes the session and returns the connections that were still
// members so the caller can clear their references.
func (r *Registry) Remove(id, reason string) []string {
	s, ok := r.sessions[id]
	if !ok {
		return nil
	}
	return r.close(s, reason, slices.Clone(s.Players))
}

// close deletes s and records the closure with seats as the players, so the
// record names who sat at the table even when they already left.
func (r *Registry) close(s *Session, reason string, seats []string) []string {
	orphans := r.Members(s.ID)
	delete(r.sessions, s.ID)
	delete(r.members, s.ID)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == s.ID })

	ev := r.event(KindClosed, s, "", reason)
	ev.Players = seats
	r.opts.recorder.Record(ev)
	return orphans
}

// Sweep removes sessions that have no member connections and have not
// changed for ttl. It returns the removed ids.
func (r *Registry) Sweep(ttl time.Duration) []string {
	now := r.opts.clock.Now()
	var removed []string
	for _, id := range slices.Clone(r.order) {
		s := r.sessions[id]
		if len(r.members[id]) > 0 || now.Sub(s.UpdatedAt) < ttl {
			continue
		}
		r.Remove(id, ReasonIdle)
		removed = append(removed, id)
	}
	if len(removed) > 0 {
		r.refreshLobby()
	}
	return removed
}

func (r *Registry) refreshLobby() {
	r.router.Lobby(r.ListOpen())
}

func (r *Registry) record(kind EventKind, s *Session, identity, reason string) {
	r.opts.recorder.Record(r.event(kind, s, identity, reason))
}

func (r *Registry) event(kind EventKind, s *Session, identity, reason string) Event {
	open := 0
	for _, v := range r.sessions {
		if v.isOpen() {
			open++
		}
	}
	return Event{
		Kind:        kind,
		SessionID:   s.ID,
		Identity:    identity,
		Variant:     s.Variant,
		Players:     slices.Clone(s.Players),
		CurrentMove: s.CurrentMove,
		Reason:      reason,
		Open:        open,
		Total:       len(r.sessions),
		At:          r.opts.clock.Now(),
	}
}
