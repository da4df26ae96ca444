// Package gwerrors defines the single tagged error type used across the
// gateway runtime, daemon, and policy layers.
package gwerrors

import (
	"crypto/sha1" //nolint:gosec // used only for a stable short doc reference, not for security
	"encoding/hex"
	"errors"
	"fmt"
)

// Kind identifies the category of a gateway error. Surfaces use Kind to pick
// an HTTP status / GraphQL extension code via internal/policy.
type Kind string

const (
	// Schema/validation
	KindValidation   Kind = "VALIDATION"
	KindSchemaUnsafe Kind = "SCHEMA_UNSAFE"

	// Transport/upstream
	KindCircuitOpen    Kind = "CIRCUIT_OPEN"
	KindUpstreamTimeout Kind = "UPSTREAM_TIMEOUT"
	KindUpstreamError  Kind = "UPSTREAM_ERROR"

	// Policy/pipeline
	KindGuardrailDenied    Kind = "GUARDRAIL_DENIED"
	KindEgressPolicyDenied Kind = "EGRESS_POLICY_DENIED"
	KindApprovalRequired   Kind = "APPROVAL_REQUIRED"
	KindRateLimited        Kind = "RATE_LIMITED"
	KindPluginBlocked      Kind = "PLUGIN_BLOCKED"
	KindPluginTimeout      Kind = "PLUGIN_TIMEOUT"
	KindPolicyLocked       Kind = "POLICY_LOCKED"

	// Auth/manager
	KindAuthRequired Kind = "AUTH_REQUIRED"
	KindAuthInvalid  Kind = "AUTH_INVALID"

	// Session/daemon
	KindSessionNotFound        Kind = "SESSION_NOT_FOUND"
	KindSessionOrphaned        Kind = "SESSION_ORPHANED"
	KindSessionExpiredIdle     Kind = "SESSION_EXPIRED_IDLE"
	KindSessionExpiredMaxAge   Kind = "SESSION_EXPIRED_MAX_AGE"
	KindSessionServerNotFound  Kind = "SESSION_SERVER_NOT_FOUND"
	KindSessionServerRequired  Kind = "SESSION_SERVER_REQUIRED"
	KindSessionServiceRunning  Kind = "SESSION_SERVICE_RUNNING"
	KindSessionServiceUnavail  Kind = "SESSION_SERVICE_UNAVAILABLE"
	KindSessionUnauthorized    Kind = "SESSION_UNAUTHORIZED"
	KindSessionFrameTooLarge   Kind = "SESSION_RPC_FRAME_TOO_LARGE"
	KindSessionRPCTimeout      Kind = "SESSION_RPC_TIMEOUT"
	KindSessionRPCError        Kind = "SESSION_RPC_ERROR"
	KindSessionInternal        Kind = "SESSION_INTERNAL"
	KindSessionRPCUnknown      Kind = "SESSION_RPC_UNKNOWN"
	KindSessionRPCInvalidJSON  Kind = "SESSION_RPC_INVALID_JSON"

	// Cancellation (concurrency model, §5)
	KindCanceled Kind = "CANCELED"
)

// PassThroughKinds are error kinds that the plugin pipeline must propagate
// unchanged rather than rewrap as PLUGIN_BLOCKED.
var PassThroughKinds = map[Kind]bool{
	KindGuardrailDenied:    true,
	KindEgressPolicyDenied: true,
	KindApprovalRequired:   true,
	KindRateLimited:        true,
	KindPluginTimeout:      true,
}

// Error is the single tagged error type threaded through the gateway.
type Error struct {
	Kind            Kind
	SourcePackage   string
	SourceMethod    string
	MessageTemplate string
	Vars            map[string]any
	Cause           error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.MessageTemplate
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// DocsRef returns a stable six-hex-character reference derived from the
// package, method, and message template, used by surface adapters to link
// to documentation without needing the full error text.
func (e *Error) DocsRef() string {
	return docsRef(e.SourcePackage, e.SourceMethod, e.MessageTemplate)
}

func docsRef(pkg, method, template string) string {
	sum := sha1.Sum([]byte(pkg + "-" + method + "-" + template)) //nolint:gosec
	return hex.EncodeToString(sum[:])[:6]
}

// New constructs an *Error with the given kind, source coordinates, and
// message template. Vars are substituted nowhere automatically — callers
// format MessageTemplate themselves; Vars is carried for structured
// surfaces (e.g. JSON error bodies) that want the raw values.
func New(kind Kind, pkg, method, template string, vars map[string]any) *Error {
	return &Error{
		Kind:            kind,
		SourcePackage:   pkg,
		SourceMethod:    method,
		MessageTemplate: template,
		Vars:            vars,
	}
}

// Wrap constructs an *Error carrying cause as the underlying error.
func Wrap(kind Kind, pkg, method, template string, vars map[string]any, cause error) *Error {
	e := New(kind, pkg, method, template, vars)
	e.Cause = cause
	return e
}

// Is reports whether err (or any error it wraps) is a *Error of kind k.
func Is(err error, k Kind) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind == k
	}
	return false
}

// KindOf extracts the Kind of err if it is (or wraps) a *Error.
func KindOf(err error) (Kind, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind, true
	}
	return "", false
}

// IsPassThrough reports whether err's kind must propagate unchanged through
// the plugin pipeline's error-wrapping step.
func IsPassThrough(err error) bool {
	k, ok := KindOf(err)
	if !ok {
		return false
	}
	return PassThroughKinds[k]
}
