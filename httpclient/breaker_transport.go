package httpclient

import (
	"context"
	"errors"
	"net/http"

	"github.com/sony/gobreaker/v2"
)

// circuitBreaker is the subset of gobreaker used by the transport. Both the
// local and the distributed breakers satisfy it.
type circuitBreaker interface {
	Execute(ctx context.Context, req func() (*http.Response, error)) (*http.Response, error)
}

// localBreaker adapts the in-process gobreaker.CircuitBreaker, whose Execute
// takes no context.
type localBreaker struct {
	cb *gobreaker.CircuitBreaker[*http.Response]
}

func (l localBreaker) Execute(_ context.Context, req func() (*http.Response, error)) (*http.Response, error) {
	return l.cb.Execute(req)
}

// distributedBreaker adapts gobreaker.DistributedCircuitBreaker, whose
// state lives in a shared store.
type distributedBreaker struct {
	cb *gobreaker.DistributedCircuitBreaker[*http.Response]
}

func (d distributedBreaker) Execute(_ context.Context, req func() (*http.Response, error)) (*http.Response, error) {
	return d.cb.Execute(req)
}

// errCountedFailure tells the breaker a response counted as a failure even
// though RoundTrip itself succeeded. It never escapes the transport.
var errCountedFailure = errors.New("counted failure")

type circuitBreakerTransport struct {
	breaker    circuitBreaker
	next       http.RoundTripper
	classifier BreakerClassifier
	cfg        *internalConfig
	name       string
}

func (t *circuitBreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	resp, err := t.breaker.Execute(ctx, func() (*http.Response, error) {
		resp, err := t.next.RoundTrip(req) //nolint:bodyclose
		if err != nil {
			if t.classifier(nil, err) {
				return nil, err
			}
			// Not a breaker failure, report it after Execute returns.
			return nil, &passthroughError{err: err}
		}
		if t.classifier(resp, nil) {
			return resp, errCountedFailure
		}
		return resp, nil
	})

	var pass *passthroughError
	switch {
	case err == nil:
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "success")
		return resp, nil
	case errors.Is(err, errCountedFailure):
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "failure")
		return resp, nil
	case errors.As(err, &pass):
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "success")
		return nil, pass.err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "rejected")
		return nil, err
	default:
		t.cfg.Metrics.recordBreakerRequest(ctx, t.name, "failure")
		return nil, err
	}
}

// passthroughError carries an error the breaker should not count.
type passthroughError struct{ err error }

func (p *passthroughError) Error() string { return p.err.Error() }

// newCircuitBreakerTransport wraps next with a breaker when one is configured.
func newCircuitBreakerTransport(next http.RoundTripper, cfg *internalConfig) http.RoundTripper {
	if cfg.BreakerConfig == nil {
		return next
	}
	bc := *cfg.BreakerConfig
	if bc.Classifier == nil {
		bc.Classifier = DefaultBreakerClassifier
	}

	name := cfg.ServiceName
	if name == "" {
		name = "swarms-api"
	}

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: bc.readyToTrip,
		IsSuccessful: func(err error) bool {
			var pass *passthroughError
			return err == nil || errors.As(err, &pass)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			cfg.Metrics.recordBreakerState(context.Background(), name, int64(to))
			cfg.Logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
			if bc.OnStateChange != nil {
				bc.OnStateChange(name, from, to)
			}
		},
	}

	var cb circuitBreaker = localBreaker{cb: gobreaker.NewCircuitBreaker[*http.Response](st)}
	if bc.Store != nil {
		// Falls back to the local breaker when the shared store is unusable.
		if dcb, err := gobreaker.NewDistributedCircuitBreaker[*http.Response](bc.Store, st); err == nil {
			cb = distributedBreaker{cb: dcb}
		} else {
			cfg.Logger.Warn().Err(err).Str("breaker", name).Msg("distributed breaker unavailable, using local state")
		}
	}

	return &circuitBreakerTransport{
		breaker:    cb,
		next:       next,
		classifier: bc.Classifier,
		cfg:        cfg,
		name:       name,
	}
}
