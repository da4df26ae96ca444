package session

import (
	"context"
	"sync"

	"github.com/mcp-gateway/toolkit/internal/gwerrors"
)

// InMemoryHandler implements the upstream side of an in-memory Session pair,
// used by tests to exercise the gateway runtime without a real subprocess or
// network endpoint (spec §4.1's "direct linked channel pair for tests").
type InMemoryHandler interface {
	// Handle processes one call and returns its result or error. Handlers
	// are invoked sequentially per Session by the in-memory transport's
	// internal lock, so implementations need not be concurrency-safe
	// themselves.
	Handle(ctx context.Context, method string, params any) (*Result, error)
}

// InMemoryHandlerFunc adapts a function to InMemoryHandler.
type InMemoryHandlerFunc func(ctx context.Context, method string, params any) (*Result, error)

func (f InMemoryHandlerFunc) Handle(ctx context.Context, method string, params any) (*Result, error) {
	return f(ctx, method, params)
}

type inMemorySession struct {
	base
	mu      sync.Mutex
	handler InMemoryHandler
}

// NewInMemorySession wires a Session directly to handler, bypassing any wire
// transport — the fourth transport variant of spec §4.1, exported for use by
// integration tests (seed scenarios S1-S7 in SPEC_FULL.md §8).
func NewInMemorySession(name string, info ServerInfo, handler InMemoryHandler) Session {
	return &inMemorySession{
		base: base{
			name:   name,
			source: "in-memory",
			info:   info,
			kind:   TransportInMemory,
		},
		handler: handler,
	}
}

func (s *inMemorySession) Call(ctx context.Context, method string, params any) (*Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handler.Handle(ctx, method, params)
}

func (s *inMemorySession) Close(ctx context.Context) error {
	if !s.markClosed() {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// ErrUnsupportedMethod is returned by simple test handlers for methods they
// do not implement.
func ErrUnsupportedMethod(method string) error {
	return gwerrors.New(gwerrors.KindUpstreamError, "session", "Handle",
		"unsupported method in in-memory handler", map[string]any{"method": method})
}
