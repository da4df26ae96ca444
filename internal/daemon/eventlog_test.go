package daemon_test

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcp-gateway/toolkit/internal/daemon"
)

func TestEventLogRedactsSensitiveFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")

	log, err := daemon.OpenEventLog(path, 1<<20, 3)
	require.NoError(t, err)

	require.NoError(t, log.Append("2026-01-01T00:00:00Z", "session.open", map[string]any{
		"serverName":    "alpha",
		"authorization": "Bearer sk-abcdefgh12345",
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var rec struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(data[:len(data)-1], &rec))
	assert.Equal(t, "session.open", rec.Type)
	assert.Equal(t, "alpha", rec.Data["serverName"])
	assert.Equal(t, "[REDACTED]", rec.Data["authorization"])
}

func TestEventLogRotatesAtMaxBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")

	log, err := daemon.OpenEventLog(path, 64, 2)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, log.Append("2026-01-01T00:00:00Z", "tick", map[string]any{"i": i}))
	}

	_, err = os.Stat(path + ".1")
	assert.NoError(t, err, "expected at least one rotated generation")

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		lines++
	}
	assert.Less(t, lines, 10, "current log should hold fewer than all appended lines after rotation")
}
