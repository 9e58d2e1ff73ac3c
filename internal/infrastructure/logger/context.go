package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	// LoggerKey is the context key for the logger
	LoggerKey contextKey = "logger"
	// RunIDKey is the context key for the reconciliation run ID
	RunIDKey contextKey = "run_id"
	// OrderIDKey is the context key for the source order ID
	OrderIDKey contextKey = "order_id"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from context, returns a no-op logger if not found
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRunID tags ctx and logger with a reconciliation run id. The returned
// context carries the tagged logger.
func WithRunID(ctx context.Context, logger *zap.Logger, runID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RunIDKey, runID)
	tagged := logger.With(zap.String("run_id", runID))
	return WithContext(ctx, tagged), tagged
}

// WithOrderID tags ctx and logger with a source order id.
func WithOrderID(ctx context.Context, logger *zap.Logger, orderID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, OrderIDKey, orderID)
	tagged := logger.With(zap.String("order_id", orderID))
	return WithContext(ctx, tagged), tagged
}

// GetRunID retrieves the run ID from context
func GetRunID(ctx context.Context) string {
	runID, _ := ctx.Value(RunIDKey).(string)
	return runID
}

// GetOrderID retrieves the source order ID from context
func GetOrderID(ctx context.Context) string {
	orderID, _ := ctx.Value(OrderIDKey).(string)
	return orderID
}

// WithTraceContext adds trace_id and span_id of the span in ctx to logger.
// Without a valid span the logger is returned unchanged.
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(traceFields(sc)...)
}

// ContextFields returns the correlation fields carried by ctx: trace_id and
// span_id of a valid span, then run_id and order_id when set.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields, traceFields(sc)...)
	}
	if runID := GetRunID(ctx); runID != "" {
		fields = append(fields, zap.String("run_id", runID))
	}
	if orderID := GetOrderID(ctx); orderID != "" {
		fields = append(fields, zap.String("order_id", orderID))
	}
	return fields
}

func traceFields(sc trace.SpanContext) []zap.Field {
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}
