// Package pipeline implements the gateway's typed middleware pipeline:
// ordered transport/schema/before/after/error phase stacks with per-hook
// timeouts, mutation merge semantics, and optional tracing.
package pipeline

import (
	"context"
	"time"

	"github.com/mcp-gateway/toolkit/internal/callctx"
	"github.com/mcp-gateway/toolkit/internal/gwerrors"
)

// Hook is one phase function: it may mutate ctx directly and/or return a
// Patch merged into ctx afterward (spec §3/§4.5).
type Hook func(ctx context.Context, pctx *callctx.PipelineContext) (callctx.Patch, error)

// Plugin bundles up to five named hooks. A nil hook is simply skipped for
// that phase (spec §3: "{name, transport?, schema?, before?, after?,
// error?}").
type Plugin struct {
	Name      string
	Transport Hook
	Schema    Hook
	Before    Hook
	After     Hook
	Error     Hook
}

const defaultHookTimeout = 2000 * time.Millisecond

// TraceSink receives trace events in addition to ctx.meta.pluginTrace, when
// configured (spec §4.5). Sink failures must never affect the call outcome.
type TraceSink func(ev callctx.TraceEvent)

// TraceOptions configures pipeline tracing (spec §6 pipeline.trace).
type TraceOptions struct {
	Enabled bool
	Collect bool
	Sink    TraceSink
}

// Pipeline holds the ordered plugin list and tracing/timeout configuration.
type Pipeline struct {
	plugins    []Plugin
	hookTimeout time.Duration
	trace      TraceOptions
}

// Options configures a new Pipeline.
type Options struct {
	HookTimeout time.Duration
	Trace       TraceOptions
}

// New constructs a Pipeline with plugins registered in the given order —
// that order is the execution order within every phase (spec §4.5/§8
// testable property 4).
func New(plugins []Plugin, opts Options) *Pipeline {
	timeout := opts.HookTimeout
	if timeout <= 0 {
		timeout = defaultHookTimeout
	}
	return &Pipeline{plugins: plugins, hookTimeout: timeout, trace: opts.Trace}
}

// Phase identifies one of the five named phase stacks.
type Phase string

const (
	PhaseTransport Phase = "transport"
	PhaseSchema    Phase = "schema"
	PhaseBefore    Phase = "before"
	PhaseAfter     Phase = "after"
	PhaseError     Phase = "error"
)

func (p Plugin) hookFor(phase Phase) Hook {
	switch phase {
	case PhaseTransport:
		return p.Transport
	case PhaseSchema:
		return p.Schema
	case PhaseBefore:
		return p.Before
	case PhaseAfter:
		return p.After
	case PhaseError:
		return p.Error
	default:
		return nil
	}
}

// Run executes every plugin's hook for phase, in registration order, against
// pctx. A later plugin observes mutations from earlier ones in the same
// phase (spec §4.5 rule 1). On the first hook failure, Run stops and returns
// that error — pass-through kinds propagate with identity preserved (spec §8
// testable property 5); all other failures are wrapped as PLUGIN_BLOCKED.
func (pl *Pipeline) Run(ctx context.Context, phase Phase, pctx *callctx.PipelineContext) error {
	for _, plugin := range pl.plugins {
		hook := plugin.hookFor(phase)
		if hook == nil {
			continue
		}

		start := time.Now()
		patch, err := pl.runOne(ctx, hook, pctx)
		duration := time.Since(start)

		status := "ok"
		var code string
		if err != nil {
			status = "error"
			if gwerrors.Is(err, gwerrors.KindPluginTimeout) {
				status = "timeout"
			}
			if k, ok := gwerrors.KindOf(err); ok {
				code = string(k)
			}
		}
		pl.emitTrace(pctx, plugin.Name, phase, status, duration, code)

		if err != nil {
			return pl.classify(err)
		}
		pctx.Merge(patch)
	}
	return nil
}

// runOne races hook against pl.hookTimeout, converting a timeout into
// PLUGIN_TIMEOUT. The hook's own goroutine is abandoned on timeout (soft
// cancellation of the hook only, spec §5/§9 — not of the enclosing call).
func (pl *Pipeline) runOne(ctx context.Context, hook Hook, pctx *callctx.PipelineContext) (callctx.Patch, error) {
	hookCtx, cancel := context.WithTimeout(ctx, pl.hookTimeout)
	defer cancel()

	type outcome struct {
		patch callctx.Patch
		err   error
	}
	ch := make(chan outcome, 1)
	go func() {
		p, err := hook(hookCtx, pctx)
		ch <- outcome{p, err}
	}()

	select {
	case o := <-ch:
		return o.patch, o.err
	case <-hookCtx.Done():
		return callctx.Patch{}, gwerrors.New(gwerrors.KindPluginTimeout, "pipeline", "runOne",
			"plugin hook exceeded its deadline", map[string]any{"timeoutMs": pl.hookTimeout.Milliseconds()})
	}
}

// classify applies spec §4.5's wrapping rule: pass-through kinds propagate
// unchanged (by identity); everything else becomes PLUGIN_BLOCKED with the
// original error as cause.
func (pl *Pipeline) classify(err error) error {
	if gwerrors.IsPassThrough(err) {
		return err
	}
	return gwerrors.Wrap(gwerrors.KindPluginBlocked, "pipeline", "Run",
		"plugin hook failed", nil, err)
}

func (pl *Pipeline) emitTrace(pctx *callctx.PipelineContext, plugin string, phase Phase, status string, d time.Duration, code string) {
	if !pl.trace.Enabled {
		return
	}
	ev := callctx.TraceEvent{
		At:          time.Now().UTC().Format(time.RFC3339Nano),
		OperationID: pctx.OperationID,
		Surface:     pctx.Surface,
		Method:      pctx.Method,
		SessionID:   pctx.SessionID,
		Plugin:      plugin,
		Phase:       string(phase),
		Status:      status,
		DurationMs:  d.Milliseconds(),
		ErrorCode:   code,
	}
	pctx.AppendTrace(ev, pl.trace.Collect)

	if pl.trace.Sink != nil {
		safeSink(pl.trace.Sink, ev)
	}
}

// safeSink isolates a user-supplied sink so its panics/failures never affect
// the request outcome (spec §4.5: "Sink failures must not affect request
// outcome").
func safeSink(sink TraceSink, ev callctx.TraceEvent) {
	defer func() { _ = recover() }()
	sink(ev)
}
