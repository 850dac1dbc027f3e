package server

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialLive(t *testing.T, srv *Server, session string) *websocket.Conn {
	t.Helper()

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	url := strings.Replace(ts.URL, "http", "ws", 1) + "/sessions/" + session + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func roundTrip(t *testing.T, conn *websocket.Conn, mut Mutation) Reply {
	t.Helper()
	require.NoError(t, conn.WriteJSON(mut))
	var reply Reply
	require.NoError(t, conn.ReadJSON(&reply))
	return reply
}

func TestLivePingPong(t *testing.T) {
	conn := dialLive(t, newTestServer(), "s1")

	reply := roundTrip(t, conn, Mutation{Op: "ping"})
	assert.Equal(t, "pong", reply.Op)
}

func TestLiveMutationFlushes(t *testing.T) {
	conn := dialLive(t, newTestServer(), "s1")

	// The first flush runs the initial render task.
	reply := roundTrip(t, conn, Mutation{Op: "set", Target: "count", Value: 5})
	require.Equal(t, "flushed", reply.Op)
	assert.Equal(t, 1, reply.Ran)

	// Writing the same value again dirties nothing.
	reply = roundTrip(t, conn, Mutation{Op: "set", Target: "count", Value: 5})
	require.Equal(t, "flushed", reply.Op)
	assert.Zero(t, reply.Ran)

	// A tracked store key re-runs the render task.
	reply = roundTrip(t, conn, Mutation{Op: "set", Target: "doc", Key: "title", Value: "draft"})
	require.Equal(t, "flushed", reply.Op)
	assert.Equal(t, 1, reply.Ran)

	// An untracked store key flushes nothing.
	reply = roundTrip(t, conn, Mutation{Op: "set", Target: "doc", Key: "body", Value: "text"})
	require.Equal(t, "flushed", reply.Op)
	assert.Zero(t, reply.Ran)
}

func TestLiveStoreDelete(t *testing.T) {
	conn := dialLive(t, newTestServer(), "s1")

	// Drain the initial render run.
	reply := roundTrip(t, conn, Mutation{Op: "set", Target: "count", Value: 1})
	require.Equal(t, "flushed", reply.Op)

	reply = roundTrip(t, conn, Mutation{Op: "delete", Target: "doc", Key: "title"})
	require.Equal(t, "flushed", reply.Op)
	assert.Equal(t, 1, reply.Ran)
}

func TestLiveRejectsUnknownTarget(t *testing.T) {
	conn := dialLive(t, newTestServer(), "s1")

	reply := roundTrip(t, conn, Mutation{Op: "set", Target: "nope", Value: 1})
	assert.Equal(t, "error", reply.Op)
	assert.Contains(t, reply.Error, "unknown mutation target")

	// The connection stays usable after a rejected mutation.
	reply = roundTrip(t, conn, Mutation{Op: "ping"})
	assert.Equal(t, "pong", reply.Op)
}
