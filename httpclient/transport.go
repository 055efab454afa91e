package httpclient

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Compile-time interface check.
var _ http.RoundTripper = (*otelTransport)(nil)

// otelTransport wraps an http.RoundTripper with a client span and request
// metrics for every attempt.
type otelTransport struct {
	base http.RoundTripper
	cfg  *internalConfig
}

func newOtelTransport(base http.RoundTripper, cfg *internalConfig) *otelTransport {
	return &otelTransport{base: base, cfg: cfg}
}

// RoundTrip implements http.RoundTripper.
func (t *otelTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	ctx, span := t.cfg.Tracer.Start(req.Context(), "HTTP "+req.Method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(t.requestAttributes(req)...),
	)
	defer span.End()

	// Clone before mutating headers; the caller may reuse req on retry.
	req = req.Clone(ctx)
	t.cfg.Propagators.Inject(ctx, propagation.HeaderCarrier(req.Header))

	baseAttrs := t.cfg.baseAttributes()
	t.cfg.Metrics.recordActiveRequestStart(ctx, baseAttrs)
	defer t.cfg.Metrics.recordActiveRequestEnd(ctx, baseAttrs)

	resp, err := t.base.RoundTrip(req)
	duration := time.Since(start)

	if err != nil {
		et := errorType(err)
		setSpanError(span, err, et)
		attrs := append(t.metricsAttributes(req), attribute.String("error.type", et))
		t.cfg.Metrics.recordError(ctx, et, baseAttrs)
		t.cfg.Metrics.recordRequestDuration(ctx, duration, attrs)
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	attrs := append(t.metricsAttributes(req), attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 400 {
		et := strconv.Itoa(resp.StatusCode)
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", resp.StatusCode))
		span.SetAttributes(
			attribute.String("error.type", et),
			attribute.String("swarms.failure.kind", t.cfg.Classifier.ClassifyStatus(resp.StatusCode).String()),
		)
		attrs = append(attrs, attribute.String("error.type", et))
	}
	t.cfg.Metrics.recordRequestDuration(ctx, duration, attrs)

	return resp, nil
}

func (t *otelTransport) requestAttributes(req *http.Request) []attribute.KeyValue {
	attrs := t.metricsAttributes(req)
	if req.URL != nil {
		attrs = append(attrs,
			attribute.String("url.full", req.URL.String()),
			attribute.String("url.scheme", req.URL.Scheme),
		)
	}
	if id := req.Header.Get(RequestIDHeader); id != "" {
		attrs = append(attrs, attribute.String("swarms.request_id", id))
	}
	if req.ContentLength > 0 {
		attrs = append(attrs, attribute.Int64("http.request.body.size", req.ContentLength))
	}
	return attrs
}

// metricsAttributes returns the low-cardinality attributes shared by spans
// and metrics.
func (t *otelTransport) metricsAttributes(req *http.Request) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 6)
	attrs = append(attrs, t.cfg.baseAttributes()...)
	attrs = append(attrs, attribute.String("http.request.method", req.Method))
	if req.URL == nil {
		return attrs
	}
	if host := req.URL.Hostname(); host != "" {
		attrs = append(attrs, attribute.String("server.address", host))
	}
	if port := serverPort(req); port > 0 {
		attrs = append(attrs, attribute.Int("server.port", port))
	}
	return attrs
}

func serverPort(req *http.Request) int {
	if p, err := strconv.Atoi(req.URL.Port()); err == nil {
		return p
	}
	switch req.URL.Scheme {
	case "http":
		return 80
	case "https":
		return 443
	}
	return 0
}
