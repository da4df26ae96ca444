//go:build windows

package daemon

import (
	"fmt"
	"net"

	winio "github.com/Microsoft/go-winio"
)

// listen binds the Windows named-pipe listener at endpoint (spec §4.8),
// adapted from the teacher's use of github.com/Microsoft/go-winio for
// dialing — go-winio's ListenPipe is the listener-side counterpart of the
// DialPipeContext the teacher's socket package already depends on.
func listen(endpoint string) (net.Listener, error) {
	l, err := winio.ListenPipe(endpoint, &winio.PipeConfig{})
	if err != nil {
		return nil, fmt.Errorf("listen on pipe %s: %w", endpoint, err)
	}
	return l, nil
}

// removeEndpoint is a no-op on Windows: named pipes have no filesystem
// entry to clean up.
func removeEndpoint(endpoint string) error {
	return nil
}
