package daemon_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-gateway/toolkit/internal/daemon"
	"github.com/mcp-gateway/toolkit/internal/session"
)

// TestSessionsFileAlwaysParsesAsWrapperShape is seed invariant #10 (spec §8):
// sessions.json parses as {sessions: [...]} immediately after session.open
// persists it.
func TestSessionsFileAlwaysParsesAsWrapperShape(t *testing.T) {
	dir := t.TempDir()
	cfg := daemon.DefaultConfig()
	cfg.PersistMinIntervalMs = 0

	connector := func(ctx context.Context, spec session.ServerSpec) (session.Session, error) {
		return session.NewInMemorySession(spec.Name, session.ServerInfo{Name: spec.Name},
			session.InMemoryHandlerFunc(func(ctx context.Context, method string, params any) (*session.Result, error) {
				return &session.Result{}, nil
			})), nil
	}

	r, err := daemon.NewRegistry(daemon.RegistryOptions{Config: cfg, Dir: dir, Connector: connector})
	require.NoError(t, err)

	_, err = r.Open(context.Background(), echoSpec("alpha"))
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, "sessions.json"))
	require.NoError(t, err)

	var sf daemon.SessionsFile
	require.NoError(t, json.Unmarshal(raw, &sf))
	require.Len(t, sf.Sessions, 1)
	assert.Equal(t, "alpha", sf.Sessions[0].ServerName)
}

func TestServiceFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "service.json")

	data, err := json.Marshal(daemon.ServiceFile{PID: 123, Endpoint: "/tmp/x.sock", Token: "tok", StartedAt: "2026-01-01T00:00:00Z"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var sf daemon.ServiceFile
	require.NoError(t, json.Unmarshal(raw, &sf))
	assert.Equal(t, 123, sf.PID)
	assert.Equal(t, "tok", sf.Token)
}
