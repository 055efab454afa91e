package engine

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds per-operation instruments. Every record method is safe on a
// nil receiver.
type metrics struct {
	// operationDuration measures a logical operation, retries included.
	operationDuration metric.Float64Histogram

	// retryAttempts counts retries scheduled after a transient failure.
	retryAttempts metric.Int64Counter

	// retryExhausted counts operations that spent their whole budget.
	retryExhausted metric.Int64Counter

	// cacheRequests counts cache lookups by result (hit, miss).
	cacheRequests metric.Int64Counter

	// inFlight tracks held limiter slots.
	inFlight metric.Int64UpDownCounter

	// limiterWait measures time spent waiting for a slot.
	limiterWait metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.operationDuration, err = meter.Float64Histogram(
		"swarms.client.operation.duration",
		metric.WithDescription("Duration of logical operations including retries"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300,
		),
	)
	if err != nil {
		return nil, err
	}

	m.retryAttempts, err = meter.Int64Counter(
		"swarms.client.retry.attempts",
		metric.WithDescription("Retries scheduled after transient failures"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, err
	}

	m.retryExhausted, err = meter.Int64Counter(
		"swarms.client.retry.exhausted",
		metric.WithDescription("Operations that failed after spending the retry budget"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, err
	}

	m.cacheRequests, err = meter.Int64Counter(
		"swarms.client.cache.requests",
		metric.WithDescription("Response cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	m.inFlight, err = meter.Int64UpDownCounter(
		"swarms.client.inflight",
		metric.WithDescription("Concurrency slots currently held"),
		metric.WithUnit("{slot}"),
	)
	if err != nil {
		return nil, err
	}

	m.limiterWait, err = meter.Float64Histogram(
		"swarms.client.limiter.wait",
		metric.WithDescription("Time spent waiting for a concurrency slot"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metrics) recordOperation(ctx context.Context, operation, outcome string, d time.Duration) {
	if m == nil || m.operationDuration == nil {
		return
	}
	m.operationDuration.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("swarms.operation", operation),
		attribute.String("outcome", outcome),
	))
}

func (m *metrics) recordRetry(ctx context.Context, operation string) {
	if m == nil || m.retryAttempts == nil {
		return
	}
	m.retryAttempts.Add(ctx, 1, metric.WithAttributes(attribute.String("swarms.operation", operation)))
}

func (m *metrics) recordRetryExhausted(ctx context.Context, operation string) {
	if m == nil || m.retryExhausted == nil {
		return
	}
	m.retryExhausted.Add(ctx, 1, metric.WithAttributes(attribute.String("swarms.operation", operation)))
}

func (m *metrics) recordCacheRequest(ctx context.Context, operation string, hit bool) {
	if m == nil || m.cacheRequests == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("swarms.operation", operation),
		attribute.String("result", result),
	))
}

func (m *metrics) recordInFlight(ctx context.Context, delta int64) {
	if m == nil || m.inFlight == nil {
		return
	}
	m.inFlight.Add(ctx, delta)
}

func (m *metrics) recordLimiterWait(ctx context.Context, d time.Duration) {
	if m == nil || m.limiterWait == nil {
		return
	}
	m.limiterWait.Record(ctx, d.Seconds())
}
