package session

import "github.com/mcp-gateway/toolkit/internal/gwerrors"

// ServerSpec is the immutable description of how to reach one upstream
// server: either a stdio subprocess (Command/Args/Env) or an HTTP/SSE
// endpoint (URL/Type). Exactly one of the two shapes must be populated.
type ServerSpec struct {
	Name string

	// stdio
	Command string
	Args    []string
	Env     map[string]string

	// streamable-http / sse
	URL  string
	Type string // "http" (default) or "sse"

	// TrustSchemas overrides the validator's trust decision for this
	// upstream (see internal/validator). Nil means "auto" (spec §6).
	TrustSchemas *bool
}

// IsStdio reports whether this spec describes a stdio subprocess.
func (s ServerSpec) IsStdio() bool { return s.Command != "" }

// IsRemote reports whether this spec describes an HTTP/SSE endpoint.
func (s ServerSpec) IsRemote() bool { return s.URL != "" }

// Validate enforces spec §3's "exactly one shape" invariant.
func (s ServerSpec) Validate() error {
	if s.IsStdio() == s.IsRemote() {
		return gwerrors.New(gwerrors.KindSessionServerRequired, "session", "ServerSpec.Validate",
			"ServerSpec must set exactly one of {command} or {url}", map[string]any{"name": s.Name})
	}
	return nil
}

// ResolvedTransport applies spec §4.1's transport auto-selection rules.
func (s ServerSpec) ResolvedTransport() TransportKind {
	if s.IsRemote() {
		if s.Type == "sse" {
			return TransportSSE
		}
		return TransportStreamableHTTP
	}
	return TransportStdio
}
