package session

import (
	"context"

	"github.com/mcp-gateway/toolkit/internal/secureenv"
)

// DefaultClientName is used as the MCP client-info name when callers don't
// override it via WithClientName.
const DefaultClientName = "mcp-gateway-toolkit"

// Option configures Connect.
type Option func(*connectOptions)

type connectOptions struct {
	clientName string
	envConfig  *secureenv.EnvConfig
}

// WithClientName overrides the client name reported during MCP initialize.
func WithClientName(name string) Option {
	return func(o *connectOptions) { o.clientName = name }
}

// WithEnvConfig supplies the secureenv policy used to filter environment
// variables passed to stdio subprocesses.
func WithEnvConfig(cfg *secureenv.EnvConfig) Option {
	return func(o *connectOptions) { o.envConfig = cfg }
}

// Connect establishes a Session for spec, applying spec §4.1's transport
// auto-selection: url set → streamable-http (or sse override); command set →
// stdio.
func Connect(ctx context.Context, spec ServerSpec, opts ...Option) (Session, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	o := &connectOptions{clientName: DefaultClientName}
	for _, opt := range opts {
		opt(o)
	}

	switch spec.ResolvedTransport() {
	case TransportStdio:
		return newStdioSession(ctx, spec, o.clientName, o.envConfig)
	default:
		return newHTTPSession(ctx, spec, o.clientName)
	}
}

// TrustSchemas resolves spec §6's "auto" trust-mode rule: true for
// in-memory/stdio sources, false for remote (http/sse) sources, unless the
// ServerSpec or an explicit override says otherwise.
func TrustSchemas(kind TransportKind, override *bool) bool {
	if override != nil {
		return *override
	}
	switch kind {
	case TransportStdio, TransportInMemory:
		return true
	default:
		return false
	}
}
