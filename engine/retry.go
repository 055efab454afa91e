package engine

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kroma-labs/swarms-go/config"
)

// RetryPolicy decides how often and how long to wait between attempts.
type RetryPolicy struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	InitialDelay time.Duration
	MaxDelay     time.Duration
	Jitter       bool

	// AttemptTimeout bounds each attempt. Zero leaves attempts unbounded.
	AttemptTimeout time.Duration
}

// PolicyFromConfig derives the retry policy from a resolved configuration.
func PolicyFromConfig(cfg config.ClientConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:     cfg.MaxRetries,
		InitialDelay:   cfg.InitialRetryDelay,
		MaxDelay:       cfg.MaxRetryDelay,
		Jitter:         cfg.Jitter,
		AttemptTimeout: cfg.Timeout,
	}
}

// MaxAttempts is MaxRetries + 1.
func (p RetryPolicy) MaxAttempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// Delay returns the unjittered delay before retry n (1-indexed):
// min(InitialDelay*2^(n-1), MaxDelay).
func (p RetryPolicy) Delay(n int) time.Duration {
	d := p.InitialDelay
	for i := 1; i < n && d < p.MaxDelay; i++ {
		d *= 2
	}
	if d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// AttemptFunc performs one network attempt under ctx.
type AttemptFunc func(ctx context.Context) (*Result, error)

// Retrier runs attempts sequentially until one succeeds, a failure is
// permanent, the budget is spent or the caller's context ends.
type Retrier struct {
	policy  RetryPolicy
	logger  zerolog.Logger
	metrics *metrics
	random  func() float64
}

// NewRetrier creates a Retrier for p.
func NewRetrier(p RetryPolicy, logger zerolog.Logger) *Retrier {
	return &Retrier{policy: p, logger: logger}
}

// Policy returns the retry policy.
func (r *Retrier) Policy() RetryPolicy {
	return r.policy
}

// Do runs attempt until it returns a result or a terminal error.
//
// Only *TransientRemoteError is retried. When the budget is spent the
// result is a *RetryExhaustedError wrapping the last transient failure.
// Cancellation of ctx stops the loop and returns ctx's error.
func (r *Retrier) Do(ctx context.Context, operation string, attempt AttemptFunc) (*Result, error) {
	var (
		attempts int
		last     *TransientRemoteError
	)

	op := func() (*Result, error) {
		if err := ctx.Err(); err != nil {
			return nil, backoff.Permanent(err)
		}

		actx, cancel := ctx, context.CancelFunc(func() {})
		if r.policy.AttemptTimeout > 0 {
			actx, cancel = context.WithTimeout(ctx, r.policy.AttemptTimeout)
		}
		defer cancel()

		attempts++
		res, err := attempt(actx)
		if err == nil {
			res.Attempts = attempts
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, backoff.Permanent(ctxErr)
		}
		if errors.As(err, &last) {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	b := newBackOff(r.policy)
	if r.random != nil {
		b.random = r.random
	}

	span := trace.SpanFromContext(ctx)
	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.policy.MaxAttempts())),
		backoff.WithMaxElapsedTime(0),
		backoff.WithNotify(func(err error, next time.Duration) {
			r.logger.Warn().
				Str("operation", operation).
				Int("attempt", attempts).
				Dur("delay", next).
				Err(err).
				Msg("retrying operation")
			if span.IsRecording() {
				span.AddEvent("retry", trace.WithAttributes(
					attribute.Int("retry.attempt", attempts),
					attribute.Int64("retry.delay_ms", next.Milliseconds()),
					attribute.String("retry.reason", err.Error()),
				))
			}
			r.metrics.recordRetry(ctx, operation)
		}),
	)
	if err == nil {
		return res, nil
	}

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}

	var transient *TransientRemoteError
	if errors.As(err, &transient) && ctx.Err() == nil && attempts >= r.policy.MaxAttempts() {
		r.logger.Error().
			Str("operation", operation).
			Int("attempts", attempts).
			Err(last).
			Msg("retries exhausted")
		r.metrics.recordRetryExhausted(ctx, operation)
		return nil, &RetryExhaustedError{Operation: operation, Attempts: attempts, Last: last}
	}
	return nil, err
}
