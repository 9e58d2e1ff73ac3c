package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"

	"github.com/erp/ordersync/internal/domain/integration"
)

// ErrMeterNil is returned when a metrics set is built without a meter.
var ErrMeterNil = errors.New("telemetry: meter is nil")

// SyncMetrics records reconciliation outcomes, totals drift and item
// downgrades.
type SyncMetrics struct {
	reconciles  *Counter
	duration    *Histogram
	mismatches  *Counter
	mismatchAbs *Histogram
	downgrades  *Counter
}

// NewSyncMetrics registers the reconciliation instruments on meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	b := &instruments{meter: meter}
	m := &SyncMetrics{
		reconciles: b.counter("ordersync_reconcile_total",
			"Storefront orders reconciled, by outcome", "{order}"),
		duration: b.histogram(HistogramOpts{
			Name:        "ordersync_reconcile_duration_seconds",
			Description: "Time spent reconciling a single order, retries included",
			Unit:        "s",
			Boundaries:  ReconcileDurationBuckets,
		}),
		mismatches: b.counter("ordersync_totals_mismatch_total",
			"Orders whose computed total drifted beyond tolerance", "{order}"),
		mismatchAbs: b.histogram(HistogramOpts{
			Name:        "ordersync_totals_mismatch_amount",
			Description: "Absolute drift between computed and reported totals",
			Unit:        "{currency}",
			Boundaries:  []float64{0.05, 0.5, 1, 5, 10, 50, 100, 500},
		}),
		downgrades: b.counter("ordersync_item_downgrade_total",
			"Charge lines folded into order fields because the item was unusable", "{line}"),
	}
	if err := b.err(); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordOutcome counts one finished reconciliation.
func (m *SyncMetrics) RecordOutcome(ctx context.Context, outcome integration.SyncOutcome, errorCode string, duration time.Duration) {
	if errorCode == "" {
		errorCode = "none"
	}
	m.reconciles.Inc(ctx, AttrOutcome.String(string(outcome)), AttrErrorCode.String(errorCode))
	m.duration.RecordDuration(ctx, duration, AttrOutcome.String(string(outcome)))
}

// RecordTotalsMismatch counts a drift and records its magnitude. A positive
// difference means the storefront stated more than the lines add up to.
func (m *SyncMetrics) RecordTotalsMismatch(ctx context.Context, difference decimal.Decimal) {
	direction := "over"
	if difference.IsNegative() {
		direction = "under"
	}
	m.mismatches.Inc(ctx, AttrDirection.String(direction))
	m.mismatchAbs.Record(ctx, difference.Abs().InexactFloat64(), AttrDirection.String(direction))
}

// RecordItemDowngrade counts a charge line that fell back to an order field.
func (m *SyncMetrics) RecordItemDowngrade(ctx context.Context, kind integration.LineKind) {
	m.downgrades.Inc(ctx, AttrLineKind.String(kind.String()))
}
