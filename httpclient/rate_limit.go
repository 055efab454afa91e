package httpclient

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/time/rate"
)

// RateLimitConfig configures a client-side request-rate ceiling applied to
// every attempt, retries included.
//
// It complements the engine's concurrency limiter: the limiter bounds how many
// operations are in flight, this bounds how fast attempts are started.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate. <= 0 disables rate limiting.
	RequestsPerSecond float64

	// Burst is the number of attempts allowed above the sustained rate.
	Burst int

	// WaitOnLimit waits for a token (bounded by the attempt context) when
	// true, and fails with ErrRateLimited when false.
	WaitOnLimit bool
}

// DefaultRateLimitConfig returns 100 requests per second with a burst of 10.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 100,
		Burst:             10,
		WaitOnLimit:       true,
	}
}

// ErrRateLimited is returned when an attempt is rejected by the rate limiter.
// It classifies as KindTransport, so the retry loop backs off and tries again.
var ErrRateLimited = errors.New("client rate limit exceeded")

type rateLimitTransport struct {
	next    http.RoundTripper
	limiter *rate.Limiter
	wait    bool
	cfg     *internalConfig
}

func newRateLimitTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	rl := cfg.RateLimitConfig
	if rl == nil || rl.RequestsPerSecond <= 0 {
		return next
	}
	burst := rl.Burst
	if burst <= 0 {
		burst = 1
	}
	return &rateLimitTransport{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), burst),
		wait:    rl.WaitOnLimit,
		cfg:     cfg,
	}
}

func (t *rateLimitTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if !t.wait {
		if !t.limiter.Allow() {
			t.cfg.Metrics.recordRateLimited(ctx, t.cfg.baseAttributes())
			return nil, ErrRateLimited
		}
		return t.next.RoundTrip(req)
	}

	if err := t.limiter.Wait(ctx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		// Wait also fails when the deadline is too close to ever get a token.
		t.cfg.Metrics.recordRateLimited(ctx, t.cfg.baseAttributes())
		return nil, ErrRateLimited
	}
	return t.next.RoundTrip(req)
}

// RateLimiterStats is a snapshot of the rate limiter state.
type RateLimiterStats struct {
	Limit           float64
	Burst           int
	TokensAvailable float64
}

// Stats returns the current limiter state.
func (t *rateLimitTransport) Stats() RateLimiterStats {
	return RateLimiterStats{
		Limit:           float64(t.limiter.Limit()),
		Burst:           t.limiter.Burst(),
		TokensAvailable: t.limiter.Tokens(),
	}
}
