// Package validator compiles JSON Schemas for tool/prompt inputs with safety
// bounds on untrusted schemas, and validates call payloads against them.
package validator

import (
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Kind distinguishes tool input schemas from prompt input schemas, per the
// (kind, name) registry key of spec §3.
type Kind string

const (
	KindTool   Kind = "tool"
	KindPrompt Kind = "prompt"
)

// Limits are spec §4.3's/§6's safety bounds applied to untrusted schemas.
type Limits struct {
	MaxSchemaDepth         int
	MaxSchemaSize          int
	MaxPatternLength       int
	MaxToolNameLength      int
	MaxTemplateParamLength int
}

// DefaultLimits matches spec §6's documented defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxSchemaDepth:         10,
		MaxSchemaSize:          102400,
		MaxPatternLength:       1000,
		MaxToolNameLength:      64,
		MaxTemplateParamLength: 200,
	}
}

// CoerceTypes names a toggle for coercing scalar strings to their declared
// schema type (e.g. "5" -> 5 for {type: "integer"}) before validating.
// Nothing in the Registry reads it: Validate always checks input as given,
// with no coercion.
type CoerceTypes bool

// entry is what the registry stores per (kind, name): either a compiled
// validator, or nil with a reason recorded for diagnostics (spec §4.3:
// "null marks schema intentionally absent or skipped under safety bounds").
type entry struct {
	schema       *jsonschema.Schema
	raw          map[string]any
	skipped      bool
	skippedWhy   string
	registered   bool
}

// Registry maps (kind, name) to a compiled validator or an explicit skip.
type Registry struct {
	limits  Limits
	entries map[string]entry
}

// NewRegistry constructs an empty Registry with the given safety bounds.
func NewRegistry(limits Limits) *Registry {
	return &Registry{limits: limits, entries: map[string]entry{}}
}

func key(k Kind, name string) string { return string(k) + ":" + name }

// Register compiles schema for (kind, name). trusted selects compile mode
// (spec §4.3): trusted schemas compile as-is and permissively; untrusted
// schemas are first checked against r.limits and a ReDoS heuristic — schemas
// that fail those checks are not rejected outright, they are recorded as a
// skipped (null) entry so calls still proceed without validation.
func (r *Registry) Register(k Kind, name string, schema map[string]any, trusted bool) {
	if k == KindTool && r.limits.MaxToolNameLength > 0 && len(name) > r.limits.MaxToolNameLength {
		r.entries[key(k, name)] = entry{registered: true, skipped: true, skippedWhy: "tool name exceeds maxToolNameLength"}
		return
	}

	if schema == nil {
		r.entries[key(k, name)] = entry{registered: true, skipped: true, skippedWhy: "no schema provided"}
		return
	}

	if !trusted {
		if why, unsafe := r.checkSafety(schema); unsafe {
			r.entries[key(k, name)] = entry{registered: true, skipped: true, skippedWhy: why}
			return
		}
	}

	compiled, err := compile(schema)
	if err != nil {
		r.entries[key(k, name)] = entry{registered: true, skipped: true, skippedWhy: "compile error: " + err.Error()}
		return
	}

	r.entries[key(k, name)] = entry{registered: true, schema: compiled, raw: schema}
}

func compile(schema map[string]any) (*jsonschema.Schema, error) {
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	const resource = "mem://schema.json"
	if err := c.AddResource(resource, mustDecode(data)); err != nil {
		return nil, err
	}
	return c.Compile(resource)
}

func mustDecode(data []byte) any {
	var v any
	_ = json.Unmarshal(data, &v)
	return v
}

// Diagnostic describes a registry entry's "skipped with reason" status for
// diagnostics endpoints (spec §4.3).
type Diagnostic struct {
	Kind      Kind
	Name      string
	Skipped   bool
	Reason    string
	Registered bool
}

// Diagnose returns the diagnostic record for (kind, name).
func (r *Registry) Diagnose(k Kind, name string) Diagnostic {
	e, ok := r.entries[key(k, name)]
	if !ok {
		return Diagnostic{Kind: k, Name: name}
	}
	return Diagnostic{Kind: k, Name: name, Skipped: e.skipped, Reason: e.skippedWhy, Registered: e.registered}
}

// ValidationError is one structured validation failure (spec §4.3).
type ValidationError struct {
	Path    string
	Keyword string
	Message string
	Params  map[string]any
}

// Result is the outcome of Validate — always populated, never panics (spec
// §8 testable property 3: validator totality).
type Result struct {
	Valid  bool
	Errors []ValidationError
}

// Validate checks input against the schema registered for (kind, name).
// An unregistered (kind,name) returns a single "unknown" error (spec §4.3).
// A registered-but-skipped entry returns success without inspection.
func (r *Registry) Validate(k Kind, name string, input any) Result {
	e, ok := r.entries[key(k, name)]
	if !ok {
		return Result{Valid: false, Errors: []ValidationError{{
			Path:    "",
			Message: "Unknown " + string(k) + ": " + name,
		}}}
	}
	if e.skipped || e.schema == nil {
		return Result{Valid: true}
	}

	if err := e.schema.Validate(input); err != nil {
		return Result{Valid: false, Errors: toValidationErrors(err, e.raw)}
	}
	return Result{Valid: true}
}

func toValidationErrors(err error, raw map[string]any) []ValidationError {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []ValidationError{{Message: err.Error()}}
	}
	var out []ValidationError
	var walk func(*jsonschema.ValidationError)
	walk = func(v *jsonschema.ValidationError) {
		if len(v.Causes) == 0 {
			out = append(out, ValidationError{
				Path:    v.InstanceLocation,
				Keyword: lastKeyword(v.KeywordLocation),
				Message: v.Message,
				Params:  paramsAtKeyword(raw, v.KeywordLocation),
			})
			return
		}
		for _, c := range v.Causes {
			walk(c)
		}
	}
	walk(ve)
	if len(out) == 0 {
		out = append(out, ValidationError{Message: err.Error()})
	}
	return out
}

func lastKeyword(loc string) string {
	for i := len(loc) - 1; i >= 0; i-- {
		if loc[i] == '/' {
			return loc[i+1:]
		}
	}
	return loc
}

// paramsAtKeyword resolves keywordLocation (a "/"-joined path into the
// schema document, e.g. "/properties/name/maxLength") against the
// originally-registered raw schema and returns the failing keyword's own
// value — e.g. {"enum": [...]} or {"maxLength": 5} — so callers can render
// "expected one of [...]" without re-parsing the schema themselves. Returns
// nil if the path doesn't resolve cleanly (e.g. it crosses into an array
// sub-schema), which just means Params is omitted for that error.
func paramsAtKeyword(raw map[string]any, keywordLocation string) map[string]any {
	if raw == nil {
		return nil
	}
	segs := strings.Split(strings.Trim(keywordLocation, "/"), "/")
	if len(segs) == 0 || segs[0] == "" {
		return nil
	}

	var node any = raw
	for _, seg := range segs[:len(segs)-1] {
		m, ok := node.(map[string]any)
		if !ok {
			return nil
		}
		next, ok := m[seg]
		if !ok {
			return nil
		}
		node = next
	}

	m, ok := node.(map[string]any)
	if !ok {
		return nil
	}
	keyword := segs[len(segs)-1]
	value, ok := m[keyword]
	if !ok {
		return nil
	}
	return map[string]any{keyword: value}
}
