// Package callctx defines the mutable PipelineContext threaded through one
// call across the plugin pipeline's phases, and its merge semantics.
package callctx

import (
	"github.com/google/uuid"

	"github.com/mcp-gateway/toolkit/internal/catalog"
)

// TraceEvent is one plugin-hook observation, emitted when tracing is
// enabled (spec §4.5).
type TraceEvent struct {
	At          string
	OperationID string
	Surface     string
	Method      string
	SessionID   string
	Plugin      string
	Phase       string
	Status      string // ok | error | timeout
	DurationMs  int64
	ErrorCode   string
}

// PipelineContext is the per-request record mutated across transport →
// schema → before → execute → after/error (spec §3/§4.5).
type PipelineContext struct {
	OperationID string
	Surface     string
	Method      string
	SessionID   string
	ServerName  string

	Session any // session.Session, kept as `any` to avoid an import cycle with internal/session
	Breaker any // *breaker.Breaker

	Params any
	Result any
	Error  error

	Catalog *catalog.Catalog
	Meta    map[string]any

	PluginTrace []TraceEvent
}

// New creates a PipelineContext and always assigns it a fresh UUID
// OperationID; it takes no operation ID of its own.
func New(surface, method, sessionID, serverName string) *PipelineContext {
	return &PipelineContext{
		OperationID: uuid.NewString(),
		Surface:     surface,
		Method:      method,
		SessionID:   sessionID,
		ServerName:  serverName,
		Meta:        map[string]any{},
	}
}

// Patch is a partial PipelineContext returned by a plugin hook. Result,
// Error and Catalog replace the corresponding ctx field only when set via
// WithResult, WithError or WithCatalog; assigning the exported field alone
// has no effect. A non-empty Meta is always shallow-merged (spec §3/§8
// testable property 6).
type Patch struct {
	Result      any
	Error       error
	Catalog     *catalog.Catalog
	Meta        map[string]any
	resultSet   bool
	errorSet    bool
	catalogSet  bool
}

// WithResult marks Result as explicitly set (so a nil result can still
// replace a prior one, distinct from "hook didn't touch Result").
func (p Patch) WithResult(v any) Patch {
	p.Result = v
	p.resultSet = true
	return p
}

// WithError marks Error as explicitly set.
func (p Patch) WithError(err error) Patch {
	p.Error = err
	p.errorSet = true
	return p
}

// WithCatalog marks Catalog as explicitly set.
func (p Patch) WithCatalog(c *catalog.Catalog) Patch {
	p.Catalog = c
	p.catalogSet = true
	return p
}

// Merge applies patch onto ctx in place, following spec §3/§8's merge law:
// mergeMeta(a,b) = {...a, ...b}; every other key is replace-on-write when
// the patch sets it.
func (ctx *PipelineContext) Merge(patch Patch) {
	if patch.resultSet {
		ctx.Result = patch.Result
	}
	if patch.errorSet {
		ctx.Error = patch.Error
	}
	if patch.catalogSet {
		ctx.Catalog = patch.Catalog
	}
	if len(patch.Meta) > 0 {
		if ctx.Meta == nil {
			ctx.Meta = map[string]any{}
		}
		for k, v := range patch.Meta {
			ctx.Meta[k] = v
		}
	}
}

// AppendTrace records one trace event into ctx.Meta.pluginTrace when
// collect is true, per spec §4.5.
func (ctx *PipelineContext) AppendTrace(ev TraceEvent, collect bool) {
	if !collect {
		return
	}
	ctx.PluginTrace = append(ctx.PluginTrace, ev)
	if ctx.Meta == nil {
		ctx.Meta = map[string]any{}
	}
	ctx.Meta["pluginTrace"] = ctx.PluginTrace
}
