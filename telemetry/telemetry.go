// Package telemetry instruments runtime.Session's driver loop: one span
// per vm.Step call and one per AI call, and Prometheus counters for step
// and AI-call volume. Grounded on telemetry.go's otel TracerProvider setup, trimmed
// from an HTTP-request-centric exporter (no flow API server exists in
// this build — see DESIGN.md) to the stepper's own unit of work.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"github.com/vibelang/vibe-core/config"
)

var (
	stepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibe_core_steps_total",
			Help: "Total number of VM steps executed.",
		},
		[]string{"status"},
	)
	aiCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vibe_core_ai_calls_total",
			Help: "Total number of AI provider calls (do/vibe) resolved.",
		},
		[]string{"op_kind", "outcome"},
	)
	aiCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vibe_core_ai_call_duration_seconds",
			Help:    "Duration of AI provider calls.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op_kind"},
	)
)

func init() {
	prometheus.MustRegister(stepsTotal, aiCallsTotal, aiCallDuration)
}

var tracer trace.Tracer = otel.Tracer("vibe-core/runtime")

// Init sets up the tracer provider this process uses for StartStep and
// StartAICall below. Supported exporters: "stdout" (default), "otlp".
func Init(cfg *config.Config) {
	serviceName := "vibe-core"
	if cfg.Tracing != nil && cfg.Tracing.ServiceName != "" {
		serviceName = cfg.Tracing.ServiceName
	}
	res, _ := resource.New(
		context.Background(),
		resource.WithAttributes(semconv.ServiceName(serviceName)),
	)

	var tp *sdktrace.TracerProvider
	switch {
	case cfg.Tracing != nil && cfg.Tracing.Exporter == "otlp":
		opts := []otlptracehttp.Option{otlptracehttp.WithInsecure()}
		if cfg.Tracing.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.Tracing.Endpoint))
		}
		exp, err := otlptracehttp.New(context.Background(), opts...)
		if err == nil {
			tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
		}
	default: // stdout fallback
		exp, _ := stdouttrace.New(stdouttrace.WithPrettyPrint())
		tp = sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp), sdktrace.WithResource(res))
	}
	if tp != nil {
		otel.SetTracerProvider(tp)
		tracer = tp.Tracer("vibe-core/runtime")
	}
}

// StartStep opens a span around one vm.Step call. The caller ends it with
// the returned func once the step's resulting status is known.
func StartStep(ctx context.Context) (context.Context, func(status string)) {
	ctx, span := tracer.Start(ctx, "vm.Step")
	return ctx, func(status string) {
		stepsTotal.WithLabelValues(status).Inc()
		span.End()
	}
}

// StartAICall opens a span around one AI provider round trip. The
// returned func records duration and outcome once the call returns.
func StartAICall(ctx context.Context, opKind string) (context.Context, func(outcome string)) {
	ctx, span := tracer.Start(ctx, "ai."+opKind)
	start := time.Now()
	return ctx, func(outcome string) {
		aiCallsTotal.WithLabelValues(opKind, outcome).Inc()
		aiCallDuration.WithLabelValues(opKind).Observe(time.Since(start).Seconds())
		span.End()
	}
}
