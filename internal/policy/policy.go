// Package policy maps gateway error kinds and upstream MCP JSON-RPC codes
// onto surface-specific status codes (HTTP status, GraphQL extension code).
package policy

import "github.com/mcp-gateway/toolkit/internal/gwerrors"

// Mapping is the HTTP status / GraphQL extension pair for one error kind.
type Mapping struct {
	HTTPStatus       int
	GraphQLExtension string
}

// kindTable implements spec §4.9's policy-code table.
var kindTable = map[gwerrors.Kind]Mapping{
	gwerrors.KindGuardrailDenied:    {403, "FORBIDDEN"},
	gwerrors.KindEgressPolicyDenied: {403, "FORBIDDEN"},
	gwerrors.KindApprovalRequired:   {403, "FORBIDDEN"},
	gwerrors.KindRateLimited:        {429, "TOO_MANY_REQUESTS"},
	gwerrors.KindPluginBlocked:      {403, "FORBIDDEN"},
	gwerrors.KindPluginTimeout:      {504, "TIMEOUT"},

	gwerrors.KindValidation:   {400, "BAD_USER_INPUT"},
	gwerrors.KindSchemaUnsafe: {200, "OK"}, // advisory, not fatal

	gwerrors.KindCircuitOpen:     {503, "SERVICE_UNAVAILABLE"},
	gwerrors.KindUpstreamTimeout: {504, "TIMEOUT"},
	gwerrors.KindUpstreamError:   {502, "INTERNAL_SERVER_ERROR"},

	gwerrors.KindPolicyLocked: {500, "INTERNAL_SERVER_ERROR"},

	gwerrors.KindAuthRequired: {401, "UNAUTHENTICATED"},
	gwerrors.KindAuthInvalid:  {401, "UNAUTHENTICATED"},

	gwerrors.KindSessionNotFound:       {404, "NOT_FOUND"},
	gwerrors.KindSessionOrphaned:       {409, "CONFLICT"},
	gwerrors.KindSessionExpiredIdle:    {410, "GONE"},
	gwerrors.KindSessionExpiredMaxAge:  {410, "GONE"},
	gwerrors.KindSessionServerNotFound: {404, "NOT_FOUND"},
	gwerrors.KindSessionServerRequired: {400, "BAD_USER_INPUT"},
	gwerrors.KindSessionServiceRunning: {409, "CONFLICT"},
	gwerrors.KindSessionServiceUnavail: {503, "SERVICE_UNAVAILABLE"},
	gwerrors.KindSessionUnauthorized:   {401, "UNAUTHENTICATED"},
	gwerrors.KindSessionFrameTooLarge:  {413, "BAD_USER_INPUT"},
	gwerrors.KindSessionRPCTimeout:     {504, "TIMEOUT"},
	gwerrors.KindSessionRPCError:       {500, "INTERNAL_SERVER_ERROR"},
	gwerrors.KindSessionInternal:       {500, "INTERNAL_SERVER_ERROR"},
	gwerrors.KindSessionRPCUnknown:     {400, "BAD_USER_INPUT"},
	gwerrors.KindSessionRPCInvalidJSON: {400, "BAD_REQUEST"},

	gwerrors.KindCanceled: {499, "CANCELED"},
}

// mcpCodeTable implements spec §4.9's numeric JSON-RPC error-code table.
var mcpCodeTable = map[int]Mapping{
	-32700: {400, "BAD_REQUEST"},
	-32600: {400, "BAD_REQUEST"},
	-32601: {404, "NOT_FOUND"},
	-32602: {400, "BAD_USER_INPUT"},
	-32603: {500, "INTERNAL_SERVER_ERROR"},
	-32000: {500, "INTERNAL_SERVER_ERROR"},
	-32001: {504, "TIMEOUT"},
	-32002: {404, "NOT_FOUND"},
}

const defaultHTTPStatus = 500

const defaultGraphQLExtension = "INTERNAL_SERVER_ERROR"

// ForKind returns the mapping for a gateway error kind, falling back to
// 500/INTERNAL_SERVER_ERROR for unknown kinds.
func ForKind(k gwerrors.Kind) Mapping {
	if m, ok := kindTable[k]; ok {
		return m
	}
	return Mapping{defaultHTTPStatus, defaultGraphQLExtension}
}

// ForError resolves the mapping for any error, preferring a *gwerrors.Error
// kind lookup, and returning the default mapping otherwise.
func ForError(err error) Mapping {
	if err == nil {
		return Mapping{200, "OK"}
	}
	if k, ok := gwerrors.KindOf(err); ok {
		return ForKind(k)
	}
	return Mapping{defaultHTTPStatus, defaultGraphQLExtension}
}

// ForMCPCode maps a numeric MCP JSON-RPC error code onto a surface mapping.
// Unrecognized codes fall back to 500/INTERNAL_SERVER_ERROR.
func ForMCPCode(code int) Mapping {
	if m, ok := mcpCodeTable[code]; ok {
		return m
	}
	return Mapping{defaultHTTPStatus, defaultGraphQLExtension}
}
