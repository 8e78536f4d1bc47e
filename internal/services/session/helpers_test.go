package session

import (
	"fmt"
	"testing"

	"github.com/jonboulle/clockwork"
)

const broadcastTarget = "*"

type sent struct {
	to    string
	event string
	body  any
}

// fakeTransport records every delivery instead of writing to sockets.
type fakeTransport struct {
	msgs []sent
}

func (f *fakeTransport) Send(connID, event string, body any) {
	f.msgs = append(f.msgs, sent{to: connID, event: event, body: body})
}

func (f *fakeTransport) Broadcast(event string, body any) {
	f.msgs = append(f.msgs, sent{to: broadcastTarget, event: event, body: body})
}

func (f *fakeTransport) reset() { f.msgs = nil }

func (f *fakeTransport) to(target, event string) []sent {
	var out []sent
	for _, m := range f.msgs {
		if m.to == target && m.event == event {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeTransport) lastState(connID string) (Snapshot, bool) {
	got := f.to(connID, EventSessionState)
	if len(got) == 0 {
		return Snapshot{}, false
	}
	return got[len(got)-1].body.(Snapshot), true
}

func (f *fakeTransport) lastLobby() ([]Summary, bool) {
	got := f.to(broadcastTarget, EventOpenSessions)
	if len(got) == 0 {
		return nil, false
	}
	return got[len(got)-1].body.([]Summary), true
}

// recorder keeps every registry event.
type recorder struct {
	events []Event
}

func (r *recorder) Record(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Kind)
	}
	return out
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("s%d", n)
	}
}

type fixture struct {
	engine *Engine
	tr     *fakeTransport
	rec    *recorder
	clock  *clockwork.FakeClock
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tr:    &fakeTransport{},
		rec:   &recorder{},
		clock: clockwork.NewFakeClock(),
	}
	f.engine = NewEngine(f.tr,
		WithClock(f.clock),
		WithRecorder(f.rec),
		WithIDGenerator(sequentialIDs()),
	)
	return f
}

// player connects a connection and claims name on it.
func (f *fixture) player(conn, name string) {
	f.engine.Connect(conn)
	f.engine.ClaimIdentity(conn, name)
}

// seatedPair returns a session with alice and bob seated and joined.
func (f *fixture) seatedPair(t *testing.T) string {
	t.Helper()
	f.player("c-alice", "alice")
	f.player("c-bob", "bob")
	id, ok := f.engine.CreateSession("c-alice", "alice", "standard", nil)
	if !ok {
		t.Fatalf("create session failed")
	}
	f.engine.JoinSession("c-alice", id)
	f.engine.JoinSession("c-bob", id)
	return id
}

func (f *fixture) startedPair(t *testing.T) string {
	t.Helper()
	id := f.seatedPair(t)
	f.engine.SetReady("c-alice", id)
	f.engine.SetReady("c-bob", id)
	return id
}

func mark(s string) *string { return &s }

// boardWith returns a standard board with one marked cell.
func boardWith(cell int, m string) Board {
	b := emptyBoard(standardBoardSize)
	b[cell] = mark(m)
	return b
}

func openIDs(list []Summary) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		out = append(out, s.ID)
	}
	return out
}

func assertReadySubset(t *testing.T, snap Snapshot) {
	t.Helper()
	for _, r := range snap.ReadyPlayers {
		found := false
		for _, p := range snap.Players {
			if p == r {
				found = true
			}
		}
		if !found {
			t.Fatalf("ready player %q is not seated in %v", r, snap.Players)
		}
	}
}
