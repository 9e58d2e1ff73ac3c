package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
var (
	AttrOutcome   = attribute.Key("outcome")
	AttrErrorCode = attribute.Key("error_code")
	AttrLineKind  = attribute.Key("line_kind")
	AttrDirection = attribute.Key("direction")
)

// ReconcileDurationBuckets covers one order round trip including retry
// delays, in seconds.
var ReconcileDurationBuckets = []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30, 60}

// Counter is a monotonically increasing int64 instrument.
type Counter struct {
	counter metric.Int64Counter
}

// Add increments the counter by value.
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by one.
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// Histogram is a float64 distribution instrument.
type Histogram struct {
	histogram metric.Float64Histogram
}

// Record adds value to the distribution.
func (h *Histogram) Record(ctx context.Context, value float64, attrs ...attribute.KeyValue) {
	h.histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// RecordDuration records d in seconds.
func (h *Histogram) RecordDuration(ctx context.Context, d time.Duration, attrs ...attribute.KeyValue) {
	h.Record(ctx, d.Seconds(), attrs...)
}

// HistogramOpts describes a histogram instrument.
type HistogramOpts struct {
	Name        string
	Description string
	Unit        string
	Boundaries  []float64
}

// instruments registers several instruments on one meter and collects the
// registration errors, so a constructor can check once at the end.
type instruments struct {
	meter metric.Meter
	errs  []error
}

func (b *instruments) counter(name, description, unit string) *Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("failed to create counter %s: %w", name, err))
	}
	return &Counter{counter: c}
}

func (b *instruments) histogram(opts HistogramOpts) *Histogram {
	hopts := []metric.Float64HistogramOption{
		metric.WithDescription(opts.Description),
		metric.WithUnit(opts.Unit),
	}
	if len(opts.Boundaries) > 0 {
		hopts = append(hopts, metric.WithExplicitBucketBoundaries(opts.Boundaries...))
	}
	h, err := b.meter.Float64Histogram(opts.Name, hopts...)
	if err != nil {
		b.errs = append(b.errs, fmt.Errorf("failed to create histogram %s: %w", opts.Name, err))
	}
	return &Histogram{histogram: h}
}

func (b *instruments) err() error {
	return errors.Join(b.errs...)
}
