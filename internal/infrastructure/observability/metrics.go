package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCount       metric.Int64Counter
	RequestDuration    metric.Float64Histogram
	SourceCallCount    metric.Int64Counter
	SourceCallDuration metric.Float64Histogram
	PersistedRows      metric.Int64Counter
	CacheHitCount      metric.Int64Counter
	CacheMissCount     metric.Int64Counter
}

// InitMetrics initializes application metrics against the global meter provider
func InitMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)

	requestCount, err := meter.Int64Counter(
		"http.server.request.count",
		metric.WithDescription("Number of HTTP requests"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http.server.request.duration",
		metric.WithDescription("HTTP request duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sourceCallCount, err := meter.Int64Counter(
		"places.source.call.count",
		metric.WithDescription("Number of calls to place sources"),
	)
	if err != nil {
		return nil, err
	}

	sourceCallDuration, err := meter.Float64Histogram(
		"places.source.call.duration",
		metric.WithDescription("Place source call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	persistedRows, err := meter.Int64Counter(
		"places.persisted.rows",
		metric.WithDescription("Clinic rows written, by write path"),
	)
	if err != nil {
		return nil, err
	}

	cacheHitCount, err := meter.Int64Counter(
		"cache.hit.count",
		metric.WithDescription("Number of cache hits"),
	)
	if err != nil {
		return nil, err
	}

	cacheMissCount, err := meter.Int64Counter(
		"cache.miss.count",
		metric.WithDescription("Number of cache misses"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		RequestCount:       requestCount,
		RequestDuration:    requestDuration,
		SourceCallCount:    sourceCallCount,
		SourceCallDuration: sourceCallDuration,
		PersistedRows:      persistedRows,
		CacheHitCount:      cacheHitCount,
		CacheMissCount:     cacheMissCount,
	}, nil
}

// RecordRequestMetric records an HTTP request
func RecordRequestMetric(ctx context.Context, metrics *Metrics, method, path string, statusCode int, duration time.Duration) {
	if metrics == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", path),
		attribute.Int("http.status_code", statusCode),
	)

	metrics.RequestCount.Add(ctx, 1, attrs)
	metrics.RequestDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordSourceCall records one call against a place source
func RecordSourceCall(ctx context.Context, metrics *Metrics, source, operation string, err error, duration time.Duration) {
	if metrics == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("places.source", source),
		attribute.String("places.operation", operation),
		attribute.String("outcome", outcome),
	)

	metrics.SourceCallCount.Add(ctx, 1, attrs)
	metrics.SourceCallDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordPersisted records rows written through a write path
func RecordPersisted(ctx context.Context, metrics *Metrics, path string, rows int) {
	if metrics == nil || rows == 0 {
		return
	}
	metrics.PersistedRows.Add(ctx, int64(rows), metric.WithAttributes(attribute.String("write.path", path)))
}

// RecordCacheHit records a cache hit
func RecordCacheHit(ctx context.Context, metrics *Metrics, cache string) {
	if metrics == nil {
		return
	}
	metrics.CacheHitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.name", cache)))
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss(ctx context.Context, metrics *Metrics, cache string) {
	if metrics == nil {
		return
	}
	metrics.CacheMissCount.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.name", cache)))
}
