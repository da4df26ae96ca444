package session

import (
	"context"
	"time"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"

	"github.com/mcp-gateway/toolkit/internal/gwerrors"
	"github.com/mcp-gateway/toolkit/internal/secureenv"
)

// stdioGrace is how long Close honours ctx cancellation while waiting for
// the MCP client to close the subprocess transport; once it elapses, Close
// waits for that close to return regardless of ctx. Close sends no signal
// to the subprocess itself.
const stdioGrace = 1 * time.Second

type stdioSession struct {
	base
	wc wireClient
}

// newStdioSession launches spec.Command as a subprocess and speaks MCP over
// its stdin/stdout. Environment variables are filtered through secureenv,
// matching the teacher's stdio connection setup.
func newStdioSession(ctx context.Context, spec ServerSpec, clientName string, envCfg *secureenv.EnvConfig) (Session, error) {
	mergedCfg := mergeEnvConfig(envCfg, spec.Env)
	envMgr := secureenv.NewManager(mergedCfg)
	envList := envMgr.BuildSecureEnvironment()

	stdioTransport := transport.NewStdio(spec.Command, envList, spec.Args...)
	client := mcpclient.NewClient(stdioTransport)

	wc := newMCPGoClient(client, clientName)
	if err := wc.Start(ctx); err != nil {
		return nil, gwerrors.Wrap(gwerrors.KindUpstreamError, "session", "newStdioSession",
			"failed to start stdio subprocess", map[string]any{"command": spec.Command}, err)
	}

	info, err := wc.Initialize(ctx)
	if err != nil {
		_ = wc.Close()
		return nil, err
	}

	s := &stdioSession{
		base: base{
			name:   spec.Name,
			source: spec.Command,
			info:   info,
			kind:   TransportStdio,
		},
		wc: wc,
	}
	return s, nil
}

// mergeEnvConfig layers a ServerSpec's explicit Env on top of the gateway's
// baseline secureenv policy as custom vars, without mutating the shared cfg.
func mergeEnvConfig(envCfg *secureenv.EnvConfig, specEnv map[string]string) *secureenv.EnvConfig {
	base := secureenv.DefaultEnvConfig()
	if envCfg != nil {
		cp := *envCfg
		base = &cp
	}
	merged := map[string]string{}
	for k, v := range base.CustomVars {
		merged[k] = v
	}
	for k, v := range specEnv {
		merged[k] = v
	}
	base.CustomVars = merged
	return base
}

func (s *stdioSession) Call(ctx context.Context, method string, params any) (*Result, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return dispatch(ctx, s.wc, method, params)
}

func (s *stdioSession) Close(ctx context.Context) error {
	if !s.markClosed() {
		return nil
	}
	done := make(chan error, 1)
	go func() { done <- s.wc.Close() }()

	select {
	case err := <-done:
		return err
	case <-time.After(stdioGrace):
		return <-done
	case <-ctx.Done():
		return ctx.Err()
	}
}
