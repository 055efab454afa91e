package engine

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Idempotency classifies an operation for caching purposes.
type Idempotency int

const (
	// Idempotent operations are safe to serve from cache and to coalesce.
	Idempotent Idempotency = iota

	// Mutating operations always reach the network.
	Mutating
)

func (i Idempotency) String() string {
	if i == Mutating {
		return "mutating"
	}
	return "idempotent"
}

// Descriptor describes one logical remote operation.
type Descriptor struct {
	// Operation names the call in logs, spans and metrics ("get-health").
	Operation string

	// Method defaults to GET.
	Method string

	// Path is relative to the base URL and may contain {name} placeholders
	// filled from PathParams.
	Path       string
	PathParams map[string]string
	Query      url.Values

	// Payload is JSON encoded as the request body. nil sends no body.
	Payload any

	Idempotency Idempotency
}

func (d Descriptor) method() string {
	if d.Method == "" {
		return http.MethodGet
	}
	return strings.ToUpper(d.Method)
}

// expandedPath substitutes escaped path parameters.
func (d Descriptor) expandedPath() string {
	p := d.Path
	for k, v := range d.PathParams {
		p = strings.ReplaceAll(p, "{"+k+"}", url.PathEscape(v))
	}
	return p
}

// Result is the successful outcome of an operation.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte

	// RequestID is the X-Request-ID shared by every attempt.
	RequestID string

	// Attempts is the number of network attempts made. Zero for cache hits.
	Attempts int

	// Cached is true when the result was served from the response cache.
	Cached bool

	Duration time.Duration
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Result) Decode(v any) error {
	if len(r.Body) == 0 {
		return nil
	}
	return json.Unmarshal(r.Body, v)
}

// String returns the body as a string.
func (r *Result) String() string {
	return string(r.Body)
}

func (r *Result) clone() *Result {
	c := *r
	c.Header = r.Header.Clone()
	c.Body = bytes.Clone(r.Body)
	return &c
}
