package loader

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
	tracer = otel.Tracer("mapdex.loader")
	meter  = otel.Meter("mapdex.loader")
)

var (
	loadLatency  metric.Float64Histogram
	loadTotal    metric.Int64Counter
	cacheResults metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		loadLatency, err = meter.Float64Histogram(
			"mapdex_load_duration_seconds",
			metric.WithDescription("Duration of mapping loads that missed the in-memory set"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		loadTotal, err = meter.Int64Counter(
			"mapdex_load_total",
			metric.WithDescription("Mapping loads by namespace and outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		cacheResults, err = meter.Int64Counter(
			"mapdex_cache_lookups_total",
			metric.WithDescription("Binary cache lookups by result (hit, miss, corrupt)"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startLoadSpan(ctx context.Context, namespace, version string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "SourceProvider.ApplyVersion",
		trace.WithAttributes(
			attribute.String("mapdex.namespace", namespace),
			attribute.String("mapdex.version", version),
		),
	)
}

func recordLoad(ctx context.Context, namespace string, duration time.Duration, success bool) {
	if err := initMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.Bool("success", success),
	)
	loadLatency.Record(ctx, duration.Seconds(), attrs)
	loadTotal.Add(ctx, 1, attrs)
}

func recordCache(ctx context.Context, namespace, result string) {
	if err := initMetrics(); err != nil {
		return
	}
	cacheResults.Add(ctx, 1, metric.WithAttributes(
		attribute.String("namespace", namespace),
		attribute.String("result", result),
	))
}
