// Package notify delivers terminal reconciliation failures to operators.
package notify

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

// LogNotifier reports failures as structured error log entries. It is the
// default sink when no other alerting channel is configured.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier writing to logger.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger.Named("notify")}
}

// NotifyFailure logs the notice. It never fails.
func (n *LogNotifier) NotifyFailure(_ context.Context, notice integration.FailureNotice) error {
	fields := []zap.Field{
		zap.String("order_id", notice.OrderID),
		zap.String("external_id", notice.ExternalID),
		zap.Int("attempts", notice.Attempts),
		zap.String("error_code", notice.ErrorCode),
		zap.Time("occurred_at", notice.OccurredAt),
	}
	if notice.Cause != nil {
		fields = append(fields, zap.String("cause", notice.Cause.Error()))
	}
	n.logger.Error("Order reconciliation failed; operator action required", fields...)
	return nil
}

// SpanNotifier attaches the failure to the active span as an event, so the
// trace of a failed reconciliation carries the notice.
type SpanNotifier struct{}

// NotifyFailure adds a "reconcile.failure_notified" event to the span in ctx.
func (SpanNotifier) NotifyFailure(ctx context.Context, notice integration.FailureNotice) error {
	telemetry.AddEvent(telemetry.SpanFromContext(ctx), "reconcile.failure_notified",
		"order_id", notice.OrderID,
		"attempts", notice.Attempts,
		"error_code", notice.ErrorCode,
	)
	return nil
}

// Multi fans a notice out to several notifiers. Every notifier is tried;
// their errors are joined.
type Multi []integration.FailureNotifier

// NotifyFailure delivers notice to every notifier in order.
func (m Multi) NotifyFailure(ctx context.Context, notice integration.FailureNotice) error {
	var errs []error
	for i, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyFailure(ctx, notice); err != nil {
			errs = append(errs, fmt.Errorf("notifier %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
