package httpclient

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// metrics holds the per-attempt instruments. Every record method is safe on
// a nil receiver.
type metrics struct {
	// requestDuration measures one attempt in seconds.
	requestDuration metric.Float64Histogram

	// activeRequests tracks attempts currently on the wire.
	activeRequests metric.Int64UpDownCounter

	// requestErrors counts attempts that failed without a response, by error.type.
	requestErrors metric.Int64Counter

	// breakerRequests counts breaker outcomes (success, failure, rejected).
	breakerRequests metric.Int64Counter

	// breakerState reports the breaker state (0 closed, 1 half-open, 2 open).
	breakerState metric.Int64Gauge

	// rateLimited counts attempts rejected by the client rate limiter.
	rateLimited metric.Int64Counter
}

func newMetrics(meter metric.Meter) (*metrics, error) {
	m := &metrics{}
	var err error

	m.requestDuration, err = meter.Float64Histogram(
		"http.client.request.duration",
		metric.WithDescription("Duration of HTTP client requests in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(
			0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
		),
	)
	if err != nil {
		return nil, err
	}

	m.activeRequests, err = meter.Int64UpDownCounter(
		"http.client.active_requests",
		metric.WithDescription("Number of active HTTP client requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.requestErrors, err = meter.Int64Counter(
		"http.client.request.error",
		metric.WithDescription("Number of HTTP client request errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	m.breakerRequests, err = meter.Int64Counter(
		"http.client.breaker.requests",
		metric.WithDescription("Circuit breaker outcomes"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m.breakerState, err = meter.Int64Gauge(
		"http.client.breaker.state",
		metric.WithDescription("Circuit breaker state: 0 closed, 1 half-open, 2 open"),
	)
	if err != nil {
		return nil, err
	}

	m.rateLimited, err = meter.Int64Counter(
		"http.client.rate_limited",
		metric.WithDescription("Requests rejected by the client rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

func (m *metrics) recordRequestDuration(ctx context.Context, d time.Duration, attrs []attribute.KeyValue) {
	if m == nil || m.requestDuration == nil {
		return
	}
	m.requestDuration.Record(ctx, d.Seconds(), metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveRequestStart(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordActiveRequestEnd(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.activeRequests == nil {
		return
	}
	m.activeRequests.Add(ctx, -1, metric.WithAttributes(attrs...))
}

func (m *metrics) recordError(ctx context.Context, errorType string, attrs []attribute.KeyValue) {
	if m == nil || m.requestErrors == nil {
		return
	}
	all := make([]attribute.KeyValue, 0, len(attrs)+1)
	all = append(all, attrs...)
	all = append(all, attribute.String("error.type", errorType))
	m.requestErrors.Add(ctx, 1, metric.WithAttributes(all...))
}

func (m *metrics) recordBreakerRequest(ctx context.Context, name, outcome string) {
	if m == nil || m.breakerRequests == nil {
		return
	}
	m.breakerRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("breaker.name", name),
		attribute.String("outcome", outcome),
	))
}

func (m *metrics) recordBreakerState(ctx context.Context, name string, state int64) {
	if m == nil || m.breakerState == nil {
		return
	}
	m.breakerState.Record(ctx, state, metric.WithAttributes(attribute.String("breaker.name", name)))
}

func (m *metrics) recordRateLimited(ctx context.Context, attrs []attribute.KeyValue) {
	if m == nil || m.rateLimited == nil {
		return
	}
	m.rateLimited.Add(ctx, 1, metric.WithAttributes(attrs...))
}
