//go:build !windows

package socket

import (
	"context"
	"net"
)

// dial connects to the unix domain socket at endpoint, a raw filesystem
// path with no scheme prefix (spec §4.8).
func dial(ctx context.Context, endpoint string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", endpoint)
}
