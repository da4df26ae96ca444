// Package gwruntime composes the session, catalog, validator, breaker, and
// pipeline components into the gateway's per-deployment Runtime (spec §4.7).
package gwruntime

import (
	"context"

	"github.com/mcp-gateway/toolkit/internal/breaker"
	"github.com/mcp-gateway/toolkit/internal/callctx"
	"github.com/mcp-gateway/toolkit/internal/catalog"
	"github.com/mcp-gateway/toolkit/internal/gwerrors"
	"github.com/mcp-gateway/toolkit/internal/manager"
	"github.com/mcp-gateway/toolkit/internal/pipeline"
	"github.com/mcp-gateway/toolkit/internal/session"
	"github.com/mcp-gateway/toolkit/internal/validator"
)

// SessionContext is this repo's name for the spec's "per-Session context"
// object: {session, catalog, info, version, prefix, validator}.
type SessionContext struct {
	Session   session.Session
	Catalog   *catalog.Catalog
	Info      session.ServerInfo
	Version   string
	Prefix    string
	Validator *validator.Registry
}

// ResolvedCall is the outcome of Runtime.Resolve: the Session a call should
// target and the Breaker guarding it (spec §4.7).
type ResolvedCall struct {
	Session session.Session
	Breaker *breaker.Breaker
}

// Runtime composes catalog extraction, schema validation, circuit breaking,
// and the plugin pipeline across one or more bootstrap Sessions, optionally
// delegating Session selection to a SessionManager.
type Runtime struct {
	opts     Options
	sessions map[string]*SessionContext
	order    []string // bootstrap session names, in construction order

	manager  SessionManager
	breakers *breaker.Registry
	pipeline *pipeline.Pipeline
}

// New validates opts and constructs a Runtime, extracting a catalog and
// compiling a validator registry for every bootstrap Session (spec §4.7:
// "Inputs validated per §6 option surface").
func New(ctx context.Context, opts Options) (*Runtime, error) {
	bootstrap := opts.bootstrapSessions()
	if len(bootstrap) == 0 && opts.Manager == nil {
		return nil, gwerrors.New(gwerrors.KindSessionServerRequired, "gwruntime", "New",
			"Runtime requires session or sessions unless manager is supplied", nil)
	}

	if opts.Policy.Lock {
		if opts.Guardrails.Profile != "strict" || len(opts.Plugins) > 0 {
			return nil, gwerrors.New(gwerrors.KindPolicyLocked, "gwruntime", "New",
				"policy.lock requires guardrails.profile=strict and no custom plugins", nil)
		}
	}

	resilience := opts.Resilience
	if resilience.Breaker == (breaker.Options{}) {
		resilience = DefaultResilienceOptions()
	}

	rt := &Runtime{
		opts:     opts,
		sessions: map[string]*SessionContext{},
		manager:  opts.Manager,
		breakers: breaker.NewRegistry(resilience.Breaker),
		pipeline: pipeline.New(opts.Plugins, pipeline.Options{Trace: opts.Pipeline.Trace}),
	}

	limits := opts.Validation.Limits
	if limits == (validator.Limits{}) {
		limits = validator.DefaultLimits()
	}

	for _, sess := range bootstrap {
		sc, err := rt.buildSessionContext(ctx, sess, limits)
		if err != nil {
			return nil, err
		}
		rt.sessions[sess.Name()] = sc
		rt.order = append(rt.order, sess.Name())
	}

	return rt, nil
}

func (rt *Runtime) buildSessionContext(ctx context.Context, sess session.Session, limits validator.Limits) (*SessionContext, error) {
	cat, err := catalog.Extract(ctx, sess, limits.MaxTemplateParamLength)
	if err != nil {
		return nil, err
	}

	reg := validator.NewRegistry(limits)
	trusted := rt.resolveTrust(sess)
	for _, item := range cat.Items {
		switch detail := item.Detail.(type) {
		case catalog.ToolDetail:
			reg.Register(validator.KindTool, item.Name, detail.InputSchema, trusted)
		case catalog.PromptDetail:
			reg.Register(validator.KindPrompt, item.Name, detail.InputSchema, trusted)
		}
	}

	info := sess.Info()
	version := deriveVersion(info.Version)
	prefix := resolvePrefix(rt.opts.Prefix, version, info, sess.Name())

	return &SessionContext{
		Session:   sess,
		Catalog:   cat,
		Info:      info,
		Version:   version,
		Prefix:    prefix,
		Validator: reg,
	}, nil
}

// resolveTrust applies spec §6's trust-mode rule, honoring an explicit
// validation.trustSchemas override ("true"/"false") ahead of "auto".
func (rt *Runtime) resolveTrust(sess session.Session) bool {
	switch rt.opts.Validation.TrustSchemas {
	case "true":
		return true
	case "false":
		return false
	default:
		return session.TrustSchemas(sess.Transport(), nil)
	}
}

// PerSession returns the SessionContext bootstrapped for the named Session.
func (rt *Runtime) PerSession(name string) (*SessionContext, error) {
	sc, ok := rt.sessions[name]
	if !ok {
		return nil, gwerrors.New(gwerrors.KindSessionNotFound, "gwruntime", "PerSession",
			"no bootstrap session named "+name, map[string]any{"name": name})
	}
	return sc, nil
}

// Resolve picks the Session a call should target: via the configured
// SessionManager when one is present, else the bootstrap Session named by
// req.ServerName, or the first configured one when ServerName is empty
// (spec §4.7).
func (rt *Runtime) Resolve(ctx context.Context, req manager.Request) (*ResolvedCall, error) {
	if rt.manager != nil {
		sess, err := rt.manager.Get(ctx, req)
		if err != nil {
			return nil, err
		}
		return &ResolvedCall{Session: sess, Breaker: rt.breakers.Get(sess.Name())}, nil
	}

	if len(rt.order) == 0 {
		return nil, gwerrors.New(gwerrors.KindSessionServerRequired, "gwruntime", "Resolve",
			"no bootstrap session is available and no manager is configured", nil)
	}
	name := req.ServerName
	if name == "" {
		name = rt.order[0]
	}
	sc, err := rt.PerSession(name)
	if err != nil {
		return nil, err
	}
	return &ResolvedCall{Session: sc.Session, Breaker: rt.breakers.Get(sc.Session.Name())}, nil
}

// PreHook runs after the transport phase and before the before phase. It is
// the caller's hook into per-call schema validation (spec §4.7's `pre?`
// execute argument): surface adapters that know how to map method/params to
// a (kind, name) validator key wire SessionContext.Validator.Validate here.
// A non-nil error short-circuits execution exactly like a transport/before
// phase failure.
type PreHook func(ctx context.Context, pctx *callctx.PipelineContext) error

// Execute resolves a Session for req, then runs transport -> pre (if given)
// -> before -> session.Call (via the breaker) -> after, in that order. On
// any failure the error phase runs and the original error is returned
// unchanged (spec §4.7). Once a Session is resolved, the returned
// PipelineContext reflects the final observed state, even on failure; if
// Resolve itself fails, the returned PipelineContext is nil.
func (rt *Runtime) Execute(ctx context.Context, req manager.Request, method string, params any, meta map[string]any, pre PreHook) (*callctx.PipelineContext, error) {
	resolved, err := rt.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	pctx := callctx.New("gwruntime", method, req.ServerName, resolved.Session.Name())
	pctx.Session = resolved.Session
	pctx.Breaker = resolved.Breaker
	pctx.Params = params
	for k, v := range meta {
		pctx.Meta[k] = v
	}

	if err := rt.pipeline.Run(ctx, pipeline.PhaseTransport, pctx); err != nil {
		return rt.fail(ctx, pctx, err)
	}
	if pre != nil {
		if err := pre(ctx, pctx); err != nil {
			return rt.fail(ctx, pctx, err)
		}
	}
	if err := rt.pipeline.Run(ctx, pipeline.PhaseBefore, pctx); err != nil {
		return rt.fail(ctx, pctx, err)
	}

	result, callErr := resolved.Breaker.Call(ctx, func(callCtx context.Context) (any, error) {
		return resolved.Session.Call(callCtx, method, pctx.Params)
	})
	if callErr != nil {
		return rt.fail(ctx, pctx, callErr)
	}
	pctx.Result = result

	if err := rt.pipeline.Run(ctx, pipeline.PhaseAfter, pctx); err != nil {
		return rt.fail(ctx, pctx, err)
	}

	return pctx, nil
}

// fail records err on pctx, best-effort runs the error phase (its own
// failures are ignored — the original err always wins), and returns err
// unchanged.
func (rt *Runtime) fail(ctx context.Context, pctx *callctx.PipelineContext, err error) (*callctx.PipelineContext, error) {
	pctx.Error = err
	_ = rt.pipeline.Run(ctx, pipeline.PhaseError, pctx)
	return pctx, err
}

// Close shuts down the Runtime's SessionManager, when one is configured.
// Bootstrap Sessions are owned by the caller that supplied them and are not
// closed here.
func (rt *Runtime) Close() error {
	if rt.manager != nil {
		return rt.manager.Close()
	}
	return nil
}
