// Package telemetry wires the gateway's optional observability surface
// (spec §6 telemetry{}): a pipeline trace sink that emits OpenTelemetry
// spans, and Prometheus gauges/counters for circuit-breaker state and
// pipeline hook durations. Grounded on the teacher's metrics/tracing setup,
// retargeted from upstream-connection metrics to breaker/pipeline metrics.
package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/mcp-gateway/toolkit/internal/breaker"
	"github.com/mcp-gateway/toolkit/internal/callctx"
)

// Recorder bundles the tracer and metric collectors a Telemetry instance
// exposes to the rest of the gateway.
type Recorder struct {
	serviceName string
	tracer      oteltrace.Tracer
	provider    *trace.TracerProvider

	breakerState    *prometheus.GaugeVec
	breakerTrips    *prometheus.CounterVec
	hookDuration    *prometheus.HistogramVec
	hookErrors      *prometheus.CounterVec
}

// New builds a Recorder registered against reg (pass prometheus.DefaultRegisterer
// for the global registry). serviceName tags every emitted span.
func New(reg prometheus.Registerer, serviceName, metricPrefix string) *Recorder {
	if metricPrefix == "" {
		metricPrefix = "adapter"
	}
	provider := trace.NewTracerProvider()
	otel.SetTracerProvider(provider)

	r := &Recorder{
		serviceName: serviceName,
		tracer:      provider.Tracer("mcp-gateway/" + serviceName),
		provider:    provider,
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: metricPrefix + "_breaker_state",
			Help: "Circuit breaker state per upstream session (0=closed, 1=open, 2=half-open).",
		}, []string{"session"}),
		breakerTrips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "_breaker_trips_total",
			Help: "Circuit breaker open-transitions per upstream session.",
		}, []string{"session"}),
		hookDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: metricPrefix + "_pipeline_hook_duration_seconds",
			Help: "Pipeline hook execution latency by plugin and phase.",
		}, []string{"plugin", "phase"}),
		hookErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "_pipeline_hook_errors_total",
			Help: "Pipeline hook failures by plugin and phase.",
		}, []string{"plugin", "phase"}),
	}

	if reg != nil {
		reg.MustRegister(r.breakerState, r.breakerTrips, r.hookDuration, r.hookErrors)
	}
	return r
}

// Shutdown flushes the tracer provider.
func (r *Recorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

// WatchBreaker subscribes to a Breaker's state transitions and reflects
// them into the breaker_state gauge and breaker_trips counter.
func (r *Recorder) WatchBreaker(b *breaker.Breaker, sessionName string) {
	r.breakerState.WithLabelValues(sessionName).Set(float64(b.State()))
	b.Subscribe(func(name string, from, to breaker.State) {
		r.breakerState.WithLabelValues(name).Set(float64(to))
		if to == breaker.Open {
			r.breakerTrips.WithLabelValues(name).Inc()
		}
	})
}

// TraceSink returns a pipeline.TraceSink (callctx.TraceEvent consumer) that
// emits one OTel span per hook invocation and records hook latency/error
// metrics. Sink failures never propagate (spec §4.5), so this never errors.
func (r *Recorder) TraceSink() func(ev callctx.TraceEvent) {
	return func(ev callctx.TraceEvent) {
		isErr := ev.Status != "" && ev.Status != "ok"
		_, span := r.tracer.Start(context.Background(), ev.Plugin+"."+ev.Phase,
			oteltrace.WithAttributes(
				attribute.String("plugin", ev.Plugin),
				attribute.String("phase", ev.Phase),
				attribute.Bool("error", isErr),
			),
		)
		defer span.End()

		r.hookDuration.WithLabelValues(ev.Plugin, ev.Phase).Observe(float64(ev.DurationMs) / 1000)
		if isErr {
			r.hookErrors.WithLabelValues(ev.Plugin, ev.Phase).Inc()
			span.RecordError(errString(ev.ErrorCode))
		}
	}
}

type errString string

func (e errString) Error() string { return string(e) }
