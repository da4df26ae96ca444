// Package daemonclient is the client-side RPC helper for the stateful
// daemon (spec §4.8 "Client"): it loads/caches service.json per endpoint,
// dials the IPC endpoint, retries once on SESSION_UNAUTHORIZED after a
// fresh service.json reload, and can spawn a detached daemon process when
// none is listening.
package daemonclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mcp-gateway/toolkit/internal/daemon"
	"github.com/mcp-gateway/toolkit/internal/gwerrors"
	"github.com/mcp-gateway/toolkit/internal/socket"
)

// DefaultCallTimeout is applied to a call that doesn't set its own
// TimeoutMs (spec §4.8 "default 3 s").
const DefaultCallTimeout = 3 * time.Second

// spawnPollInterval/spawnPollAttempts implement ensureService's "poll the
// endpoint up to 2.5 s (25x100ms)" (spec §4.8).
const (
	spawnPollInterval = 100 * time.Millisecond
	spawnPollAttempts = 25
)

// SpawnFunc launches a detached daemon process rooted at dir. Overridable
// for tests; the default execs the running binary with `daemon serve`.
type SpawnFunc func(dir string) error

// Client talks to one daemon endpoint, caching its service.json and
// refreshing it once on an auth mismatch.
type Client struct {
	dir   string
	spawn SpawnFunc

	mu      sync.Mutex
	service *daemon.ServiceFile
}

// New constructs a Client for the daemon rooted at dir (normally
// daemon.SessionsDir()'s result).
func New(dir string, spawn SpawnFunc) *Client {
	if spawn == nil {
		spawn = DefaultSpawn(dir)
	}
	return &Client{dir: dir, spawn: spawn}
}

// DefaultSpawn execs the running binary as `<exe> daemon serve --dir <dir>`,
// detached from the current process group so it outlives this invocation.
func DefaultSpawn(dir string) SpawnFunc {
	return func(_ string) error {
		exePath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("resolve executable for daemon spawn: %w", err)
		}
		cmd := exec.Command(exePath, "daemon", "serve", "--dir", dir)
		cmd.Stdin = nil
		cmd.Stdout = nil
		cmd.Stderr = nil
		detach(cmd)
		if err := cmd.Start(); err != nil {
			return fmt.Errorf("spawn daemon process: %w", err)
		}
		return cmd.Process.Release()
	}
}

// ensureService pings the endpoint; on failure it spawns a daemon and polls
// up to spawnPollAttempts*spawnPollInterval before giving up (spec §4.8).
func (c *Client) ensureService(ctx context.Context) (*daemon.ServiceFile, error) {
	if sf, err := c.loadService(); err == nil && socket.Probe(sf.Endpoint) {
		return sf, nil
	}

	if err := c.spawn(c.dir); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindSessionServiceUnavail, "daemonclient", "ensureService",
			"failed to spawn daemon process", nil, err)
	}

	for i := 0; i < spawnPollAttempts; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(spawnPollInterval):
		}
		if sf, err := c.loadService(); err == nil && socket.Probe(sf.Endpoint) {
			return sf, nil
		}
	}
	return nil, gwerrors.New(gwerrors.KindSessionServiceUnavail, "daemonclient", "ensureService",
		"daemon did not become reachable within the spawn-poll window", map[string]any{"dir": c.dir})
}

func (c *Client) loadService() (*daemon.ServiceFile, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reloadServiceLocked()
}

func (c *Client) reloadServiceLocked() (*daemon.ServiceFile, error) {
	sf, err := daemon.ReadServiceFile(c.dir)
	if err != nil {
		return nil, err
	}
	c.service = sf
	return sf, nil
}

// CallOptions configures one RPC invocation.
type CallOptions struct {
	TimeoutMs int64
}

// Call performs one newline-framed RPC round trip (spec §4.8), retrying
// once on SESSION_UNAUTHORIZED after reloading service.json.
func (c *Client) Call(ctx context.Context, method string, params any, opts CallOptions) (json.RawMessage, error) {
	sf, err := c.ensureService(ctx)
	if err != nil {
		return nil, err
	}

	reply, err := c.callOnce(ctx, sf, method, params, opts)
	if err == nil {
		return reply, nil
	}
	if !gwerrors.Is(err, gwerrors.KindSessionUnauthorized) {
		return nil, err
	}

	c.mu.Lock()
	sf, reloadErr := c.reloadServiceLocked()
	c.mu.Unlock()
	if reloadErr != nil {
		return nil, err
	}
	return c.callOnce(ctx, sf, method, params, opts)
}

func (c *Client) callOnce(ctx context.Context, sf *daemon.ServiceFile, method string, params any, opts CallOptions) (json.RawMessage, error) {
	timeout := DefaultCallTimeout
	if opts.TimeoutMs > 0 {
		timeout = time.Duration(opts.TimeoutMs) * time.Millisecond
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := socket.Dial(callCtx, sf.Endpoint)
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindSessionServiceUnavail, "daemonclient", "callOnce",
			"failed to dial daemon endpoint", map[string]any{"endpoint": sf.Endpoint}, err)
	}
	defer conn.Close()

	if deadline, ok := callCtx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	var rawParams json.RawMessage
	if params != nil {
		rawParams, err = json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal call params: %w", err)
		}
	}

	frame := daemon.Frame{ID: uuid.NewString(), Method: method, Params: rawParams, Token: sf.Token}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("marshal request frame: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindSessionRPCError, "daemonclient", "callOnce",
			"failed to write request frame", nil, err)
	}

	reader := bufio.NewReaderSize(conn, 4096)
	line, isPrefix, err := reader.ReadLine()
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindSessionRPCTimeout, "daemonclient", "callOnce",
			"failed to read reply frame", nil, err)
	}
	if isPrefix {
		return nil, gwerrors.New(gwerrors.KindSessionFrameTooLarge, "daemonclient", "callOnce",
			"reply frame exceeded the client's buffer", nil)
	}

	var reply daemon.Reply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindSessionRPCInvalidJSON, "daemonclient", "callOnce",
			"reply frame was not valid JSON", nil, err)
	}
	if !reply.OK {
		kind := gwerrors.KindSessionRPCError
		if reply.Error != nil {
			kind = gwerrors.Kind(reply.Error.Kind)
		}
		msg := ""
		if reply.Error != nil {
			msg = reply.Error.Message
		}
		return nil, gwerrors.New(kind, "daemonclient", "callOnce", msg, nil)
	}

	resultBytes, err := json.Marshal(reply.Result)
	if err != nil {
		return nil, fmt.Errorf("marshal reply result: %w", err)
	}
	return resultBytes, nil
}
