// Package socket dials and probes the stateful daemon's single well-known
// IPC endpoint — a Unix domain socket path on POSIX, a named-pipe path on
// Windows — adapted from the teacher's tray-endpoint discovery, which
// searched env/config/default across several candidate tray sockets with
// scheme-prefixed ("unix://", "npipe://") endpoint strings. The gateway has
// exactly one fixed endpoint per user, produced by daemon.Endpoint (spec
// §4.8/§6), as a raw OS path with no scheme, so the multi-source discovery
// and scheme parsing the teacher needed have no work left to do here.
package socket

import (
	"context"
	"net"
	"time"
)

// Dial connects to endpoint, dispatching to the unix-socket or named-pipe
// dialer for the current OS.
func Dial(ctx context.Context, endpoint string) (net.Conn, error) {
	return dial(ctx, endpoint)
}

// probeTimeout bounds the liveness probe used to detect whether a daemon is
// already listening at endpoint.
const probeTimeout = 200 * time.Millisecond

// Probe reports whether a listener is currently live at endpoint. Used by
// the daemon's startup path to detect an already-running instance, and by
// daemonclient's ensureService to decide whether a spawn is needed.
func Probe(endpoint string) bool {
	ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
	defer cancel()
	conn, err := Dial(ctx, endpoint)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
