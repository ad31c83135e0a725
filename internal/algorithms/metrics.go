package algorithms

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("arbor.algorithms")
	meter  = otel.Meter("arbor.algorithms")
)

var (
	diffLatency   metric.Float64Histogram
	diffTotal     metric.Int64Counter
	mappingsTotal metric.Int64Counter
	actionsTotal  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics creates the instruments once. Safe to call repeatedly.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		diffLatency, err = meter.Float64Histogram(
			"arbor_diff_duration_seconds",
			metric.WithDescription("Duration of structural diffs"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		diffTotal, err = meter.Int64Counter(
			"arbor_diff_total",
			metric.WithDescription("Total number of structural diffs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		mappingsTotal, err = meter.Int64Counter(
			"arbor_mappings_total",
			metric.WithDescription("Total number of mapped node pairs"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		actionsTotal, err = meter.Int64Counter(
			"arbor_actions_total",
			metric.WithDescription("Total number of edit actions"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startDiffSpan(ctx context.Context, s Strategy, srcSize, dstSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "algorithms.Diff",
		trace.WithAttributes(
			attribute.String("arbor.strategy", s.String()),
			attribute.Int("arbor.src_size", srcSize),
			attribute.Int("arbor.dst_size", dstSize),
		),
	)
}

func recordDiffMetrics(ctx context.Context, s Strategy, d time.Duration, mappings, actions int) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("strategy", s.String()))
	diffLatency.Record(ctx, d.Seconds(), attrs)
	diffTotal.Add(ctx, 1, attrs)
	mappingsTotal.Add(ctx, int64(mappings), attrs)
	actionsTotal.Add(ctx, int64(actions), attrs)
}
