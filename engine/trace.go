package engine

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Outcome labels for spans and metrics.
const (
	OutcomeSuccess   = "success"
	OutcomeCacheHit  = "cache_hit"
	OutcomePermanent = "permanent"
	OutcomeExhausted = "exhausted"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

func (e *Engine) startSpan(ctx context.Context, d Descriptor) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, "swarms."+d.Operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("swarms.operation", d.Operation),
			attribute.String("http.request.method", d.method()),
			attribute.String("swarms.idempotency", d.Idempotency.String()),
		),
	)
}

// outcome maps an operation's terminal state to a low-cardinality label.
func outcome(res *Result, err error) string {
	var (
		permanent *PermanentRemoteError
		exhausted *RetryExhaustedError
	)
	switch {
	case err == nil && res.Cached:
		return OutcomeCacheHit
	case err == nil:
		return OutcomeSuccess
	case errors.As(err, &exhausted):
		return OutcomeExhausted
	case errors.As(err, &permanent):
		return OutcomePermanent
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrClosed):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}

func endSpan(span trace.Span, res *Result, err error, label string) {
	span.SetAttributes(attribute.String("swarms.outcome", label))
	if res != nil {
		span.SetAttributes(
			attribute.Int("swarms.attempts", res.Attempts),
			attribute.Bool("swarms.cached", res.Cached),
			attribute.Int("http.response.status_code", res.StatusCode),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if code := StatusCode(err); code > 0 {
			span.SetAttributes(attribute.Int("http.response.status_code", code))
		}
	}
	span.End()
}
