package socket_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mcp-gateway/toolkit/internal/socket"

	"github.com/stretchr/testify/assert"
)

func TestProbe_NoListener(t *testing.T) {
	dir := t.TempDir()
	endpoint := filepath.Join(dir, "does-not-exist.sock")
	assert.False(t, socket.Probe(endpoint))
}

func TestProbe_StaleFileNotAListener(t *testing.T) {
	dir := t.TempDir()
	endpoint := filepath.Join(dir, "stale.sock")
	assert.NoError(t, os.WriteFile(endpoint, []byte("not a socket"), 0o600))
	assert.False(t, socket.Probe(endpoint))
}
