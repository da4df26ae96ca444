//go:build !windows

package daemon_test

import (
	"bufio"
	"context"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-gateway/toolkit/internal/daemon"
	"github.com/mcp-gateway/toolkit/internal/session"
)

func startTestServer(t *testing.T) *daemon.Server {
	t.Helper()
	dir := t.TempDir()
	connector := func(ctx context.Context, spec session.ServerSpec) (session.Session, error) {
		return session.NewInMemorySession(spec.Name, session.ServerInfo{Name: spec.Name},
			session.InMemoryHandlerFunc(func(ctx context.Context, method string, params any) (*session.Result, error) {
				return &session.Result{Content: []map[string]any{{"text": "pong"}}}, nil
			})), nil
	}
	srv, err := daemon.ListenWithOptions(daemon.ListenOptions{
		Config:    daemon.DefaultConfig(),
		Dir:       dir,
		Connector: connector,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = srv.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = srv.Close()
	})
	return srv
}

func rpcRoundTrip(t *testing.T, conn net.Conn, frame daemon.Frame) daemon.Reply {
	t.Helper()
	data, err := json.Marshal(frame)
	require.NoError(t, err)
	data = append(data, '\n')
	_, err = conn.Write(data)
	require.NoError(t, err)

	reader := bufio.NewReader(conn)
	line, err := reader.ReadBytes('\n')
	require.NoError(t, err)

	var reply daemon.Reply
	require.NoError(t, json.Unmarshal(line, &reply))
	return reply
}

func TestServerHealthPingAndSessionRoundTrip(t *testing.T) {
	srv := startTestServer(t)
	time.Sleep(10 * time.Millisecond)

	conn, err := net.Dial("unix", srv.Endpoint())
	require.NoError(t, err)
	defer conn.Close()

	ping := rpcRoundTrip(t, conn, daemon.Frame{ID: "1", Method: daemon.MethodHealthPing, Token: srv.Token()})
	assert.True(t, ping.OK)

	openParams, err := json.Marshal(daemon.SessionOpenParams{Spec: session.ServerSpec{Name: "alpha", Command: "echo"}})
	require.NoError(t, err)
	openReply := rpcRoundTrip(t, conn, daemon.Frame{ID: "2", Method: daemon.MethodSessionOpen, Token: srv.Token(), Params: openParams})
	assert.True(t, openReply.OK)

	execParams, err := json.Marshal(daemon.SessionExecuteParams{Name: "alpha", Method: "tools/call"})
	require.NoError(t, err)
	execReply := rpcRoundTrip(t, conn, daemon.Frame{ID: "3", Method: daemon.MethodSessionExecute, Token: srv.Token(), Params: execParams})
	assert.True(t, execReply.OK)
}

func TestServerRejectsBadToken(t *testing.T) {
	srv := startTestServer(t)
	time.Sleep(10 * time.Millisecond)

	conn, err := net.Dial("unix", srv.Endpoint())
	require.NoError(t, err)
	defer conn.Close()

	reply := rpcRoundTrip(t, conn, daemon.Frame{ID: "1", Method: daemon.MethodHealthPing, Token: "wrong"})
	assert.False(t, reply.OK)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "SESSION_UNAUTHORIZED", reply.Error.Kind)
}

func TestListenRefusesSecondInstance(t *testing.T) {
	srv := startTestServer(t)
	time.Sleep(10 * time.Millisecond)

	_, err := daemon.Listen(daemon.DefaultConfig(), dirOf(srv), nil)
	assert.Error(t, err)
}

func dirOf(srv *daemon.Server) string {
	// The endpoint is <dir>/stateful.sock on POSIX.
	ep := srv.Endpoint()
	return ep[:len(ep)-len("/stateful.sock")]
}
