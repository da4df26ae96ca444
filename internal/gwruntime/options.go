package gwruntime

import (
	"context"

	"github.com/mcp-gateway/toolkit/internal/breaker"
	"github.com/mcp-gateway/toolkit/internal/manager"
	"github.com/mcp-gateway/toolkit/internal/pipeline"
	"github.com/mcp-gateway/toolkit/internal/session"
	"github.com/mcp-gateway/toolkit/internal/validator"
)

// SessionManager is the Runtime construction-time dependency matching spec
// §6's `manager {get(req), close?()}` contract. *manager.Manager satisfies
// this directly.
type SessionManager interface {
	Get(ctx context.Context, req manager.Request) (session.Session, error)
	Close() error
}

// PrefixFunc computes a mount prefix from a Session's derived version, its
// reported ServerInfo, and its name (spec §4.7: "if option is a function,
// invoke (version, info, sessionName)").
type PrefixFunc func(version string, info session.ServerInfo, sessionName string) string

// ValidationOptions mirrors spec §6's `validation{...}` option group.
type ValidationOptions struct {
	TrustSchemas string // "auto" | "true" | "false"; "" defaults to "auto"
	Limits       validator.Limits
}

// ResilienceOptions mirrors spec §6's `resilience{...}` option group.
type ResilienceOptions struct {
	Enabled bool
	Breaker breaker.Options
}

// DefaultResilienceOptions matches spec §6's documented defaults, enabled.
func DefaultResilienceOptions() ResilienceOptions {
	return ResilienceOptions{Enabled: true, Breaker: breaker.DefaultOptions()}
}

// TelemetryOptions mirrors spec §6's `telemetry{...}` option group.
type TelemetryOptions struct {
	Enabled     bool
	ServiceName string
	MetricPrefix string
}

// DefaultTelemetryOptions matches spec §6's documented defaults.
func DefaultTelemetryOptions() TelemetryOptions {
	return TelemetryOptions{Enabled: false, MetricPrefix: "adapter"}
}

// ErrorsOptions mirrors spec §6's `errors{...}` option group.
type ErrorsOptions struct {
	ExposeDetails bool
}

// GuardrailsOptions mirrors spec §6's `guardrails{...}` option group.
type GuardrailsOptions struct {
	Profile string // "baseline" | "strict"
}

// DefaultGuardrailsOptions matches spec §6's documented default ('strict').
func DefaultGuardrailsOptions() GuardrailsOptions {
	return GuardrailsOptions{Profile: "strict"}
}

// PolicyOptions mirrors spec §6's `policy{...}` option group.
type PolicyOptions struct {
	Lock bool
}

// Options configures Runtime construction (spec §6 "Runtime options").
type Options struct {
	Session  session.Session
	Sessions []session.Session

	Manager SessionManager

	Prefix any // nil | string | PrefixFunc

	Validation ValidationOptions
	Resilience ResilienceOptions
	Telemetry  TelemetryOptions
	Errors     ErrorsOptions
	Plugins    []pipeline.Plugin
	Guardrails GuardrailsOptions
	Pipeline   PipelineOptions
	Policy     PolicyOptions
}

// PipelineOptions mirrors spec §6's `pipeline{trace{...}}` option group.
type PipelineOptions struct {
	Trace pipeline.TraceOptions
}

// DefaultOptions returns the spec §6-documented defaults for every optional
// group; Session/Sessions/Manager/Plugins/Prefix are left unset.
func DefaultOptions() Options {
	return Options{
		Validation: ValidationOptions{TrustSchemas: "auto", Limits: validator.DefaultLimits()},
		Resilience: DefaultResilienceOptions(),
		Telemetry:  DefaultTelemetryOptions(),
		Guardrails: DefaultGuardrailsOptions(),
	}
}

// bootstrapSessions returns the sessions this Runtime should seed its
// catalog/validator state from: Sessions if given, else a single-element
// slice wrapping Session.
func (o Options) bootstrapSessions() []session.Session {
	if len(o.Sessions) > 0 {
		return o.Sessions
	}
	if o.Session != nil {
		return []session.Session{o.Session}
	}
	return nil
}
