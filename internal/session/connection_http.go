package session

import (
	"context"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"

	"github.com/mcp-gateway/toolkit/internal/gwerrors"
)

const httpCloseTimeout = 5 * time.Second

type httpSession struct {
	base
	wc wireClient
}

// newHTTPSession connects to a streamable-HTTP or SSE upstream, selected per
// spec §4.1's auto-selection rule (url set → streamable-http unless the
// caller overrides Type to "sse").
func newHTTPSession(ctx context.Context, spec ServerSpec, clientName string) (Session, error) {
	kind := spec.ResolvedTransport()

	var tr mcpclient.Transport
	var err error
	switch kind {
	case TransportSSE:
		tr, err = transport.NewSSE(spec.URL)
	default:
		tr, err = transport.NewStreamableHTTP(spec.URL)
	}
	if err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstreamError, "session", "newHTTPSession",
			"failed to construct HTTP transport", map[string]any{"url": spec.URL}, err)
	}

	client := mcpclient.NewClient(tr)
	wc := newMCPGoClient(client, clientName)
	if err := wc.Start(ctx); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstreamError, "session", "newHTTPSession",
			"failed to start HTTP transport", map[string]any{"url": spec.URL}, err)
	}

	info, err := wc.Initialize(ctx)
	if err != nil {
		_ = wc.Close()
		return nil, err
	}

	s := &httpSession{
		base: base{
			name:   spec.Name,
			source: spec.URL,
			info:   info,
			kind:   kind,
		},
		wc: wc,
	}
	return s, nil
}

func (s *httpSession) Call(ctx context.Context, method string, params any) (*Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return dispatch(ctx, s.wc, method, params)
}

func (s *httpSession) Close(ctx context.Context) error {
	if !s.markClosed() {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- s.wc.Close() }()
	select {
	case err := <-done:
		return err
	case <-time.After(httpCloseTimeout):
		return gwerrors.New(gwerrors.KindUpstreamTimeout, "session", "Close",
			"timed out closing HTTP session", map[string]any{"session": s.name})
	case <-ctx.Done():
		return ctx.Err()
	}
}
