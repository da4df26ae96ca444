package daemon

import (
	"encoding/json"

	"github.com/mcp-gateway/toolkit/internal/session"
)

// Frame is one newline-framed request (spec §4.8/§6): `{id, method, params,
// token}`.
type Frame struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	Token  string          `json:"token"`
}

// Reply is one newline-framed response: `{id, ok, result?, error?}`.
type Reply struct {
	ID     string      `json:"id"`
	OK     bool        `json:"ok"`
	Result any         `json:"result,omitempty"`
	Error  *ReplyError `json:"error,omitempty"`
}

// ReplyError is the wire shape of a failed RPC call.
type ReplyError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

const (
	MethodHealthPing     = "health.ping"
	MethodSessionOpen    = "session.open"
	MethodSessionExecute = "session.execute"
	MethodSessionCatalog = "session.catalog"
	MethodSessionList    = "session.list"
	MethodSessionStop    = "session.stop"
	MethodSessionStopAll = "session.stopAll"
)

// HealthPingResult is health.ping's result shape (spec §4.8).
type HealthPingResult struct {
	OK       bool   `json:"ok"`
	PID      int    `json:"pid"`
	Endpoint string `json:"endpoint"`
	Sessions int    `json:"sessions"`
}

// SessionOpenParams is session.open's params shape.
type SessionOpenParams struct {
	Spec session.ServerSpec `json:"spec"`
}

// SessionExecuteParams is session.execute's params shape.
type SessionExecuteParams struct {
	Name   string          `json:"name"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// SessionCatalogParams is session.catalog's params shape.
type SessionCatalogParams struct {
	Name string `json:"name"`
}

// SessionStopParams is session.stop's params shape.
type SessionStopParams struct {
	Name string `json:"name"`
}
