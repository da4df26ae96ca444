//go:build windows

package socket

import (
	"context"
	"net"

	winio "github.com/Microsoft/go-winio"
)

// dial connects to the named pipe at endpoint, a raw \\.\pipe\... path with
// no scheme prefix (spec §4.8).
func dial(ctx context.Context, endpoint string) (net.Conn, error) {
	return winio.DialPipeContext(ctx, endpoint)
}
