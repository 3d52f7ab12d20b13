package tracing

import (
    "context"

    "go.opentelemetry.io/otel"
    "go.opentelemetry.io/otel/attribute"
    "go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
    sdktrace "go.opentelemetry.io/otel/sdk/trace"
    "go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/amirimatin/go-seeder"

var (
    enabled bool
    tracer  trace.Tracer
)

// Setup configures a global tracer provider when enable=true.
// It returns a shutdown function which should be deferred.
func Setup(enable bool) (func(context.Context) error, error) {
    enabled = enable
    if !enable {
        return func(context.Context) error { return nil }, nil
    }
    exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
    if err != nil {
        return nil, err
    }
    tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
    otel.SetTracerProvider(tp)
    tracer = tp.Tracer(tracerName)
    return tp.Shutdown, nil
}

// StartSpan starts a tracing span if tracing is enabled.
func StartSpan(ctx context.Context, name string) (context.Context, func()) {
    if !enabled {
        return ctx, func() {}
    }
    ctx, span := tracer.Start(ctx, name)
    return ctx, func() { span.End() }
}

// Annotate attaches string attributes to the span in ctx, if any.
func Annotate(ctx context.Context, kv ...string) {
    if !enabled { return }
    span := trace.SpanFromContext(ctx)
    for i := 0; i+1 < len(kv); i += 2 {
        span.SetAttributes(attribute.String(kv[i], kv[i+1]))
    }
}

// Enabled reports whether Setup turned tracing on.
func Enabled() bool { return enabled }
