package daemon

import (
	"crypto/sha1" //nolint:gosec // endpoint naming only, not a security boundary
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// sessionsDirName is the directory under $HOME holding every persisted file
// and, on POSIX, the domain socket (spec §4.8/§6).
const sessionsDirName = ".mcp-layer/sessions"

// SessionsDir returns $HOME/.mcp-layer/sessions, creating it (mode 0o700)
// if absent.
func SessionsDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve user home: %w", err)
	}
	dir := filepath.Join(home, sessionsDirName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create sessions dir: %w", err)
	}
	return dir, nil
}

// Endpoint returns the daemon's IPC endpoint: a POSIX unix socket path
// under dir, or a Windows named-pipe path keyed by a hash of the user's
// home directory (spec §4.8/§6).
func Endpoint(dir string) (string, error) {
	if runtime.GOOS == "windows" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve user home: %w", err)
		}
		return windowsPipeName(home), nil
	}
	return filepath.Join(dir, "stateful.sock"), nil
}

func windowsPipeName(userHome string) string {
	sum := sha1.Sum([]byte(userHome)) //nolint:gosec
	h12 := hex.EncodeToString(sum[:])[:12]
	return `\\.\pipe\mcp-layer-stateful-` + h12
}
