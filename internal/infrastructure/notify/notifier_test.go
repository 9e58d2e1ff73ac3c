package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/erp/ordersync/internal/domain/integration"
)

func sampleNotice() integration.FailureNotice {
	return integration.FailureNotice{
		OrderID:    "1057113",
		ExternalID: "SHOP_1057113",
		Attempts:   3,
		ErrorCode:  "RATE_LIMITED",
		Cause:      errors.New("erp rate limited: HTTP 429"),
		OccurredAt: time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC),
	}
}

func TestLogNotifier_NotifyFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewLogNotifier(zap.New(core))

	require.NoError(t, n.NotifyFailure(context.Background(), sampleNotice()))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, entry.Level)
	assert.Equal(t, "notify", entry.LoggerName)

	fields := entry.ContextMap()
	assert.Equal(t, "1057113", fields["order_id"])
	assert.Equal(t, "SHOP_1057113", fields["external_id"])
	assert.Equal(t, int64(3), fields["attempts"])
	assert.Equal(t, "RATE_LIMITED", fields["error_code"])
	assert.Equal(t, "erp rate limited: HTTP 429", fields["cause"])
}

func TestLogNotifier_NoCause(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n := NewLogNotifier(zap.New(core))

	notice := sampleNotice()
	notice.Cause = nil
	require.NoError(t, n.NotifyFailure(context.Background(), notice))

	assert.NotContains(t, logs.All()[0].ContextMap(), "cause")
}

func TestLogNotifier_NilLogger(t *testing.T) {
	assert.NoError(t, NewLogNotifier(nil).NotifyFailure(context.Background(), sampleNotice()))
}

type notifierFunc func(context.Context, integration.FailureNotice) error

func (f notifierFunc) NotifyFailure(ctx context.Context, n integration.FailureNotice) error {
	return f(ctx, n)
}

func TestMulti_DeliversToAllAndJoinsErrors(t *testing.T) {
	var delivered []string
	failing := errors.New("webhook unreachable")

	m := Multi{
		notifierFunc(func(_ context.Context, n integration.FailureNotice) error {
			delivered = append(delivered, "first:"+n.OrderID)
			return failing
		}),
		nil,
		notifierFunc(func(_ context.Context, n integration.FailureNotice) error {
			delivered = append(delivered, "second:"+n.OrderID)
			return nil
		}),
	}

	err := m.NotifyFailure(context.Background(), sampleNotice())

	assert.Equal(t, []string{"first:1057113", "second:1057113"}, delivered)
	require.Error(t, err)
	assert.ErrorIs(t, err, failing)
	assert.Contains(t, err.Error(), "notifier 0")
}

func TestMulti_Empty(t *testing.T) {
	assert.NoError(t, Multi{}.NotifyFailure(context.Background(), sampleNotice()))
}

func TestSpanNotifier_AddsEvent(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	ctx, span := tp.Tracer("test").Start(context.Background(), "reconcile")
	require.NoError(t, SpanNotifier{}.NotifyFailure(ctx, sampleNotice()))
	span.End()

	events := sr.Ended()[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "reconcile.failure_notified", events[0].Name)
	attrs := map[string]string{}
	for _, kv := range events[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "1057113", attrs["order_id"])
	assert.Equal(t, "3", attrs["attempts"])
	assert.Equal(t, "RATE_LIMITED", attrs["error_code"])
}

func TestSpanNotifier_NoSpan(t *testing.T) {
	assert.NoError(t, SpanNotifier{}.NotifyFailure(context.Background(), sampleNotice()))
}
