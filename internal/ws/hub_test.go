package ws

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConn(h *Hub, id string) *clientConn {
	c := newClientConn(id, nil)
	h.add(c)
	return c
}

func decodeFrame(t *testing.T, raw []byte) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestHubSendTargetsOneConnection(t *testing.T) {
	h := NewHub()
	a, b := testConn(h, "a"), testConn(h, "b")

	h.Send("a", "createSession-ack", "s1")
	h.Send("missing", "ignored", nil)

	require.Len(t, a.send, 1)
	assert.Empty(t, b.send)
	frame := decodeFrame(t, <-a.send)
	assert.JSONEq(t, `"createSession-ack"`, string(frame["event"]))
	assert.JSONEq(t, `"s1"`, string(frame["body"]))
}

func TestHubBroadcastReachesEveryone(t *testing.T) {
	h := NewHub()
	a, b := testConn(h, "a"), testConn(h, "b")

	h.Broadcast("openSessionsUpdate", []string{})

	require.Len(t, a.send, 1)
	require.Len(t, b.send, 1)
	assert.JSONEq(t, `{"event":"openSessionsUpdate","body":[]}`, string(<-b.send))
}

func TestHubOmitsEmptyBody(t *testing.T) {
	h := NewHub()
	a := testConn(h, "a")

	h.Send("a", "opponentLeft", nil)
	assert.JSONEq(t, `{"event":"opponentLeft"}`, string(<-a.send))
}

func TestHubDropsSlowClients(t *testing.T) {
	h := NewHub()
	slow, fast := testConn(h, "slow"), testConn(h, "fast")
	for i := 0; i < sendQueueSize; i++ {
		require.True(t, slow.enqueue([]byte("x")))
	}

	h.Broadcast("openSessionsUpdate", []string{})

	assert.Equal(t, 1, h.Len())
	assert.Len(t, fast.send, 1)
	select {
	case <-slow.done:
	default:
		t.Fatalf("slow client was not closed")
	}
	assert.False(t, slow.enqueue([]byte("y")))
}

func TestHubRemoveIsIdempotent(t *testing.T) {
	h := NewHub()
	c := testConn(h, "a")

	h.remove("a")
	h.remove("a")
	c.close()

	assert.Zero(t, h.Len())
}
