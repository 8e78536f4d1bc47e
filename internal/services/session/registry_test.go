package session

import (
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() (*Registry, *fakeTransport, *recorder) {
	tr := &fakeTransport{}
	rec := &recorder{}
	reg := NewRegistry(NewRouter(tr),
		WithClock(clockwork.NewFakeClock()),
		WithRecorder(rec),
		WithIDGenerator(sequentialIDs()),
	)
	return reg, tr, rec
}

func TestRegistryListOpenKeepsCreationOrder(t *testing.T) {
	reg, _, _ := newTestRegistry()
	a, _ := reg.Create("alice", "standard")
	b, _ := reg.Create("bob", "big")
	c, _ := reg.Create("carol", "")

	require.NoError(t, reg.Join(b, "c-dave", "dave"))

	assert.Equal(t, []string{a, c}, openIDs(reg.ListOpen()))
	assert.Equal(t, 3, reg.Len())
}

func TestRegistryMembersAreSeparateFromSeats(t *testing.T) {
	reg, _, _ := newTestRegistry()
	id, _ := reg.Create("alice", "standard")

	require.NoError(t, reg.Join(id, "c2", "bob"))
	require.NoError(t, reg.Join(id, "c1", "alice"))
	require.NoError(t, reg.Join(id, "c3", "carol"))

	s, _ := reg.Get(id)
	assert.Equal(t, []string{"alice", "bob"}, s.Players)
	assert.Equal(t, []string{"c1", "c2", "c3"}, reg.Members(id))
}

func TestRegistryJoinErrors(t *testing.T) {
	reg, tr, _ := newTestRegistry()
	id, _ := reg.Create("alice", "standard")
	tr.reset()

	assert.ErrorIs(t, reg.Join(id, "c1", ""), ErrInvalidIdentity)
	assert.ErrorIs(t, reg.Join("nope", "c1", "bob"), ErrSessionNotFound)
	assert.Empty(t, reg.Members(id))
	assert.Empty(t, tr.msgs)
}

func TestRegistryOperationErrors(t *testing.T) {
	reg, _, _ := newTestRegistry()
	id, _ := reg.Create("alice", "standard")
	require.NoError(t, reg.Join(id, "c2", "bob"))

	assert.ErrorIs(t, reg.SetReady(id, ""), ErrInvalidIdentity)
	assert.ErrorIs(t, reg.SetReady("nope", "alice"), ErrSessionNotFound)
	assert.ErrorIs(t, reg.SetUnready(id, "carol"), ErrNotSeated)
	assert.ErrorIs(t, reg.ApplyMove(id, "alice", []Board{emptyBoard(9)}, 1), ErrNotStarted)

	require.NoError(t, reg.SetReady(id, "alice"))
	require.NoError(t, reg.SetReady(id, "bob"))
	assert.ErrorIs(t, reg.ApplyMove(id, "bob", []Board{emptyBoard(9)}, 1), ErrWrongTurn)
	assert.ErrorIs(t, reg.ApplyMove(id, "carol", []Board{emptyBoard(9)}, 1), ErrNotSeated)
	assert.ErrorIs(t, reg.ApplyMove(id, "alice", []Board{emptyBoard(3)}, 1), ErrMalformedMove)
	assert.NoError(t, reg.ApplyMove(id, "alice", []Board{emptyBoard(9)}, 1))
}

func TestRegistryRecordsLifecycle(t *testing.T) {
	reg, _, rec := newTestRegistry()
	id, _ := reg.Create("alice", "standard")
	require.NoError(t, reg.Join(id, "c1", "alice"))
	require.NoError(t, reg.Join(id, "c2", "bob"))
	require.NoError(t, reg.SetReady(id, "alice"))
	require.NoError(t, reg.SetReady(id, "bob"))
	require.NoError(t, reg.ApplyMove(id, "alice", []Board{emptyBoard(9)}, 1))
	_ = reg.ApplyMove(id, "alice", []Board{emptyBoard(9)}, 2)
	reg.reconcile(id, "c2", "bob")

	assert.Equal(t, []EventKind{
		KindCreated,
		KindSeated,
		KindReady,
		KindReady,
		KindStarted,
		KindMove,
		KindMoveRejected,
		KindPlayerLeft,
		KindClosed,
	}, rec.kinds())

	created := rec.events[0]
	assert.Equal(t, 1, created.Open)
	assert.Equal(t, 1, created.Total)

	seated := rec.events[1]
	assert.Equal(t, 0, seated.Open)
	assert.Equal(t, []string{"alice", "bob"}, seated.Players)

	closed := rec.events[len(rec.events)-1]
	assert.Equal(t, ReasonAbandoned, closed.Reason)
	assert.Equal(t, 0, closed.Total)
	assert.Equal(t, 1, closed.CurrentMove)
	assert.Equal(t, []string{"alice", "bob"}, closed.Players)
}

func TestRegistryEmptyClosureNamesLastSeat(t *testing.T) {
	reg, _, rec := newTestRegistry()
	id, _ := reg.Create("alice", "standard")
	require.NoError(t, reg.Join(id, "c1", "alice"))

	reg.reconcile(id, "c1", "alice")

	closed := rec.events[len(rec.events)-1]
	require.Equal(t, KindClosed, closed.Kind)
	assert.Equal(t, ReasonEmpty, closed.Reason)
	assert.Equal(t, []string{"alice"}, closed.Players)
}

func TestRegistryRemoveReturnsOrphans(t *testing.T) {
	reg, _, _ := newTestRegistry()
	id, _ := reg.Create("alice", "standard")
	require.NoError(t, reg.Join(id, "c1", "alice"))
	require.NoError(t, reg.Join(id, "c9", "zed"))

	assert.Equal(t, []string{"c1", "c9"}, reg.Remove(id, ReasonIdle))
	assert.Nil(t, reg.Remove(id, ReasonIdle))
	_, ok := reg.Get(id)
	assert.False(t, ok)
	assert.Empty(t, reg.ListOpen())
}

func TestSessionState(t *testing.T) {
	s := newSession("s1", "alice", VariantStandard, clockwork.NewFakeClock().Now())
	assert.Equal(t, StateWaiting, s.State())

	s.Players = append(s.Players, "bob")
	assert.Equal(t, StateReadyPending, s.State())

	s.Started = true
	assert.Equal(t, StateInProgress, s.State())
}

func TestParseVariant(t *testing.T) {
	assert.Equal(t, VariantBig, ParseVariant("big"))
	assert.Equal(t, VariantStandard, ParseVariant("standard"))
	assert.Equal(t, VariantStandard, ParseVariant("BIG"))
	assert.Equal(t, 900, VariantBig.BoardSize())
	assert.Equal(t, 9, VariantStandard.BoardSize())
}
