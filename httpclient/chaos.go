package httpclient

import (
	"bytes"
	"errors"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"time"
)

// ChaosConfig injects faults at the attempt boundary so retry, breaker and
// batch isolation behaviour can be exercised against a healthy server.
//
//	client := httpclient.New(
//	    httpclient.WithChaos(httpclient.ChaosConfig{
//	        ErrorRate:  0.1,
//	        StatusRate: 0.2,
//	        StatusCode: http.StatusServiceUnavailable,
//	    }),
//	)
type ChaosConfig struct {
	// LatencyMs adds a fixed delay to every attempt.
	LatencyMs int

	// LatencyJitterMs adds up to this many extra milliseconds of delay.
	LatencyJitterMs int

	// ErrorRate is the probability (0.0-1.0) of a simulated dial error.
	ErrorRate float64

	// TimeoutRate is the probability (0.0-1.0) of hanging until the attempt
	// deadline expires.
	TimeoutRate float64

	// StatusRate is the probability (0.0-1.0) of answering with StatusCode
	// without contacting the server.
	StatusRate float64

	// StatusCode is the injected status. Default: 503.
	StatusCode int
}

// Delay returns the total delay to apply, including jitter.
func (c ChaosConfig) Delay() time.Duration {
	delay := time.Duration(c.LatencyMs) * time.Millisecond
	if c.LatencyJitterMs > 0 {
		delay += time.Duration(rand.IntN(c.LatencyJitterMs)) * time.Millisecond //nolint:gosec
	}
	return delay
}

func roll(p float64) bool {
	return p > 0 && rand.Float64() < p //nolint:gosec
}

// ErrChaosInjected is the cause of a simulated network error.
var ErrChaosInjected = errors.New("chaos: simulated network error")

type chaosTransport struct {
	next   http.RoundTripper
	config ChaosConfig
}

func newChaosTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	if cfg.ChaosConfig == nil {
		return next
	}
	return &chaosTransport{next: next, config: *cfg.ChaosConfig}
}

func (t *chaosTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	if roll(t.config.TimeoutRate) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	if roll(t.config.ErrorRate) {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: ErrChaosInjected}
	}

	if delay := t.config.Delay(); delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	if roll(t.config.StatusRate) {
		code := t.config.StatusCode
		if code == 0 {
			code = http.StatusServiceUnavailable
		}
		body := `{"detail":"chaos: injected status"}`
		return &http.Response{
			StatusCode:    code,
			Status:        http.StatusText(code),
			Header:        http.Header{"Content-Type": []string{"application/json"}},
			Body:          io.NopCloser(bytes.NewBufferString(body)),
			ContentLength: int64(len(body)),
			Request:       req,
		}, nil
	}

	return t.next.RoundTrip(req)
}
