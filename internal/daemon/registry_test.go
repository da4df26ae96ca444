package daemon_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-gateway/toolkit/internal/daemon"
	"github.com/mcp-gateway/toolkit/internal/gwerrors"
	"github.com/mcp-gateway/toolkit/internal/session"
)

func echoSpec(name string) session.ServerSpec {
	return session.ServerSpec{Name: name, Command: "echo"}
}

func newTestRegistry(t *testing.T, cfg daemon.Config, now func() time.Time) *daemon.Registry {
	t.Helper()
	dir := t.TempDir()
	var opened atomic.Int32
	connector := func(ctx context.Context, spec session.ServerSpec) (session.Session, error) {
		opened.Add(1)
		return session.NewInMemorySession(spec.Name, session.ServerInfo{Name: spec.Name},
			session.InMemoryHandlerFunc(func(ctx context.Context, method string, params any) (*session.Result, error) {
				return &session.Result{Content: []map[string]any{{"text": "ok"}}}, nil
			})), nil
	}
	r, err := daemon.NewRegistry(daemon.RegistryOptions{
		Config:    cfg,
		Dir:       dir,
		Connector: connector,
		Now:       now,
	})
	require.NoError(t, err)
	return r
}

func TestOpenCreatesThenReuses(t *testing.T) {
	cfg := daemon.DefaultConfig()
	r := newTestRegistry(t, cfg, time.Now)

	res1, err := r.Open(context.Background(), echoSpec("alpha"))
	require.NoError(t, err)
	assert.False(t, res1.Reused)

	res2, err := r.Open(context.Background(), echoSpec("alpha"))
	require.NoError(t, err)
	assert.True(t, res2.Reused)
	assert.Equal(t, res1.Entry.ID, res2.Entry.ID)
}

func TestExecuteRefreshesActivity(t *testing.T) {
	cfg := daemon.DefaultConfig()
	r := newTestRegistry(t, cfg, time.Now)

	_, err := r.Open(context.Background(), echoSpec("alpha"))
	require.NoError(t, err)

	sess, err := r.Execute("alpha")
	require.NoError(t, err)
	result, err := sess.Call(context.Background(), "tools/call", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Content[0]["text"])
}

func TestExecuteUnknownSessionNotFound(t *testing.T) {
	r := newTestRegistry(t, daemon.DefaultConfig(), time.Now)
	_, err := r.Execute("missing")
	assert.True(t, gwerrors.Is(err, gwerrors.KindSessionNotFound))
}

// TestReopenAfterIdleExpiry is seed scenario S6: open session alpha with a
// short idle timeout, let it expire, confirm execute fails with
// SESSION_EXPIRED_IDLE, then confirm re-opening succeeds as a fresh session.
func TestReopenAfterIdleExpiry(t *testing.T) {
	cur := time.Now()
	clock := func() time.Time { return cur }

	cfg := daemon.DefaultConfig()
	cfg.IdleTimeoutMs = 20
	cfg.SweepIntervalMs = 600000

	r := newTestRegistry(t, cfg, clock)

	res1, err := r.Open(context.Background(), echoSpec("alpha"))
	require.NoError(t, err)
	assert.False(t, res1.Reused)

	cur = cur.Add(60 * time.Millisecond)

	_, err = r.Execute("alpha")
	assert.True(t, gwerrors.Is(err, gwerrors.KindSessionExpiredIdle))

	res2, err := r.Open(context.Background(), echoSpec("alpha"))
	require.NoError(t, err)
	assert.False(t, res2.Reused)
	assert.NotEqual(t, res1.Entry.ID, res2.Entry.ID)

	_, err = r.Execute("alpha")
	assert.NoError(t, err)
}

func TestStopClosesSession(t *testing.T) {
	r := newTestRegistry(t, daemon.DefaultConfig(), time.Now)
	_, err := r.Open(context.Background(), echoSpec("alpha"))
	require.NoError(t, err)

	require.NoError(t, r.Stop("alpha", "test"))

	_, err = r.Execute("alpha")
	assert.Error(t, err)
}

func TestMaxSessionsEvictsLRU(t *testing.T) {
	cfg := daemon.DefaultConfig()
	cfg.MaxSessions = 1
	r := newTestRegistry(t, cfg, time.Now)

	_, err := r.Open(context.Background(), echoSpec("alpha"))
	require.NoError(t, err)
	_, err = r.Open(context.Background(), echoSpec("beta"))
	require.NoError(t, err)

	_, err = r.Execute("alpha")
	assert.Error(t, err, "alpha should have been evicted to admit beta")

	_, err = r.Execute("beta")
	assert.NoError(t, err)
}
