package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the closed set of failure variants produced at the network-attempt
// boundary. Every failed attempt maps to exactly one Kind.
type Kind int

const (
	// KindTransient is a response whose status is in the retryable set
	// (429, 5xx gateway errors by default).
	KindTransient Kind = iota + 1

	// KindPermanent is a response or error that will not succeed on retry:
	// non-retryable 4xx/5xx statuses, TLS certificate failures, unknown hosts,
	// an open circuit breaker.
	KindPermanent

	// KindTimeout is an attempt that hit its deadline before a response arrived.
	KindTimeout

	// KindTransport is a connection-level failure (refused, reset, EOF,
	// temporary DNS failure) with no HTTP status.
	KindTransport
)

// String returns the lowercase name used in logs and metric attributes.
func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Retryable reports whether failures of this kind may be retried.
func (k Kind) Retryable() bool {
	return k == KindTransient || k == KindTimeout || k == KindTransport
}

// Failure is the error returned by a single attempt that did not succeed.
//
// StatusCode and Body are set when the server answered; Err holds the
// underlying transport error otherwise.
type Failure struct {
	Kind       Kind
	StatusCode int
	Header     http.Header
	Body       []byte
	Err        error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	switch {
	case f.StatusCode > 0 && len(f.Body) > 0:
		return fmt.Sprintf("%s failure: HTTP %d: %s", f.Kind, f.StatusCode, truncate(f.Body, 200))
	case f.StatusCode > 0:
		return fmt.Sprintf("%s failure: HTTP %d", f.Kind, f.StatusCode)
	case f.Err != nil:
		return fmt.Sprintf("%s failure: %v", f.Kind, f.Err)
	default:
		return f.Kind.String() + " failure"
	}
}

// Unwrap returns the underlying transport error, if any.
func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether the attempt may be retried.
func (f *Failure) Retryable() bool {
	return f.Kind.Retryable()
}

// AsFailure extracts a *Failure from err's chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
