package telemetry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the instrumentation scope for reconciliation spans.
const TracerName = "github.com/erp/ordersync"

// SpanOption configures a span at start.
type SpanOption func(*spanConfig)

type spanConfig struct {
	kind  trace.SpanKind
	attrs []attribute.KeyValue
}

// WithAttribute adds an attribute to the span
func WithAttribute(key string, value any) SpanOption {
	return func(c *spanConfig) {
		c.attrs = append(c.attrs, toAttribute(key, value))
	}
}

// WithSpanKind sets the span kind
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(c *spanConfig) {
		c.kind = kind
	}
}

// StartSpan starts an internal span unless WithSpanKind says otherwise.
// The caller ends the span.
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	cfg := spanConfig{kind: trace.SpanKindInternal}
	for _, opt := range opts {
		opt(&cfg)
	}

	start := []trace.SpanStartOption{trace.WithSpanKind(cfg.kind)}
	if len(cfg.attrs) > 0 {
		start = append(start, trace.WithAttributes(cfg.attrs...))
	}
	return otel.GetTracerProvider().Tracer(TracerName).Start(ctx, name, start...)
}

// StartServiceSpan starts a span named "{service}.{method}", for example
// "order_reconciler.reconcile".
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// StartClientSpan starts a client span for an outbound HTTP call, named
// "{system}.{lowercase method}" and tagged with the method and path.
func StartClientSpan(ctx context.Context, system, method, path string) (context.Context, trace.Span) {
	return StartSpan(ctx, system+"."+strings.ToLower(method),
		WithSpanKind(trace.SpanKindClient),
		WithAttribute("http.request.method", method),
		WithAttribute("url.path", path),
	)
}

// EndClientSpan finishes a span from StartClientSpan. status is recorded
// when positive; err marks the span failed.
func EndClientSpan(span trace.Span, status int, err error) {
	if status > 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", status))
	}
	RecordError(span, err)
	span.End()
}

// SetAttributes adds alternating key/value pairs to span. Non-string keys
// and a trailing unpaired key are skipped.
func SetAttributes(span trace.Span, keyValues ...any) {
	if span == nil {
		return
	}
	span.SetAttributes(pairsToAttributes(keyValues)...)
}

// RecordError records err on the span and marks it failed.
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// SetOK marks the span as successful.
func SetOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// AddEvent adds a timestamped event with key/value attributes to span.
func AddEvent(span trace.Span, name string, keyValues ...any) {
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(pairsToAttributes(keyValues)...))
}

// SpanFromContext returns the current span from the context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// GetTraceID returns the trace id of the span in ctx, or "" without one.
func GetTraceID(ctx context.Context) string {
	traceID := trace.SpanContextFromContext(ctx).TraceID()
	if !traceID.IsValid() {
		return ""
	}
	return traceID.String()
}

func pairsToAttributes(keyValues []any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(keyValues)/2)
	for i := 0; i+1 < len(keyValues); i += 2 {
		if key, ok := keyValues[i].(string); ok {
			attrs = append(attrs, toAttribute(key, keyValues[i+1]))
		}
	}
	return attrs
}

// toAttribute maps a Go value onto the closest attribute type. Money is kept
// as its exact decimal string.
func toAttribute(key string, value any) attribute.KeyValue {
	switch v := value.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case decimal.Decimal:
		return attribute.String(key, v.String())
	case time.Duration:
		return attribute.Float64(key, v.Seconds())
	case []string:
		return attribute.StringSlice(key, v)
	case []int64:
		return attribute.Int64Slice(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	default:
		return attribute.String(key, fmt.Sprint(v))
	}
}
