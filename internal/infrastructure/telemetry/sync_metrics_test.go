package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/erp/ordersync/internal/domain/integration"
	"github.com/erp/ordersync/internal/infrastructure/telemetry"
)

func newTestSyncMetrics(t *testing.T) (*telemetry.SyncMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := telemetry.NewSyncMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return m, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]metricdata.Metrics{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumFor(t *testing.T, m metricdata.Metrics, attrs ...attribute.KeyValue) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)
	want := attribute.NewSet(attrs...)
	for _, dp := range sum.DataPoints {
		if dp.Attributes.Equals(&want) {
			return dp.Value
		}
	}
	return 0
}

func TestNewSyncMetrics_NilMeter(t *testing.T) {
	_, err := telemetry.NewSyncMetrics(nil)
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
}

func TestNewSyncMetrics_NoopMeter(t *testing.T) {
	m, err := telemetry.NewSyncMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		ctx := context.Background()
		m.RecordOutcome(ctx, integration.SyncOutcomeCreated, "", time.Second)
		m.RecordTotalsMismatch(ctx, decimal.RequireFromString("1.50"))
		m.RecordItemDowngrade(ctx, integration.LineKindTax)
	})
}

func TestSyncMetrics_RecordOutcome(t *testing.T) {
	m, reader := newTestSyncMetrics(t)
	ctx := context.Background()

	m.RecordOutcome(ctx, integration.SyncOutcomeCreated, "", 1200*time.Millisecond)
	m.RecordOutcome(ctx, integration.SyncOutcomeCreated, "", 800*time.Millisecond)
	m.RecordOutcome(ctx, integration.SyncOutcomeFailed, "RATE_LIMITED", 3*time.Second)

	metrics := collect(t, reader)
	total := metrics["ordersync_reconcile_total"]
	assert.Equal(t, int64(2), sumFor(t, total,
		telemetry.AttrOutcome.String("CREATED"), telemetry.AttrErrorCode.String("none")))
	assert.Equal(t, int64(1), sumFor(t, total,
		telemetry.AttrOutcome.String("FAILED"), telemetry.AttrErrorCode.String("RATE_LIMITED")))

	hist, ok := metrics["ordersync_reconcile_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	var sum float64
	for _, dp := range hist.DataPoints {
		count += dp.Count
		sum += dp.Sum
	}
	assert.Equal(t, uint64(3), count)
	assert.InDelta(t, 5.0, sum, 1e-9)
}

func TestSyncMetrics_RecordTotalsMismatch(t *testing.T) {
	m, reader := newTestSyncMetrics(t)
	ctx := context.Background()

	m.RecordTotalsMismatch(ctx, decimal.RequireFromString("-78.65"))
	m.RecordTotalsMismatch(ctx, decimal.RequireFromString("0.02"))

	metrics := collect(t, reader)
	total := metrics["ordersync_totals_mismatch_total"]
	assert.Equal(t, int64(1), sumFor(t, total, telemetry.AttrDirection.String("under")))
	assert.Equal(t, int64(1), sumFor(t, total, telemetry.AttrDirection.String("over")))

	hist, ok := metrics["ordersync_totals_mismatch_amount"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var sum float64
	for _, dp := range hist.DataPoints {
		sum += dp.Sum
	}
	assert.InDelta(t, 78.67, sum, 1e-9)
}

func TestSyncMetrics_RecordItemDowngrade(t *testing.T) {
	m, reader := newTestSyncMetrics(t)
	ctx := context.Background()

	m.RecordItemDowngrade(ctx, integration.LineKindShipping)
	m.RecordItemDowngrade(ctx, integration.LineKindShipping)
	m.RecordItemDowngrade(ctx, integration.LineKindDiscount)

	downgrades := collect(t, reader)["ordersync_item_downgrade_total"]
	assert.Equal(t, int64(2), sumFor(t, downgrades, telemetry.AttrLineKind.String("shipping")))
	assert.Equal(t, int64(1), sumFor(t, downgrades, telemetry.AttrLineKind.String("discount")))
	assert.Equal(t, int64(0), sumFor(t, downgrades, telemetry.AttrLineKind.String("tax")))
}
