package httpclient

import (
	"net/http"
	"time"

	json "github.com/goccy/go-json"
)

// Response is a successful (status < 400) attempt with its body fully read.
type Response struct {
	statusCode int
	header     http.Header
	body       []byte
	request    *http.Request
	duration   time.Duration
}

// StatusCode returns the HTTP status code.
func (r *Response) StatusCode() int { return r.statusCode }

// Header returns the response headers.
func (r *Response) Header() http.Header { return r.header }

// Body returns the raw response body.
func (r *Response) Body() []byte { return r.body }

// String returns the body as a string.
func (r *Response) String() string { return string(r.body) }

// Request returns the request that produced this response.
func (r *Response) Request() *http.Request { return r.request }

// Duration is the wall time of the attempt including the body read.
func (r *Response) Duration() time.Duration { return r.duration }

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.statusCode >= 200 && r.statusCode < 300
}

// Decode unmarshals the JSON body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(r.body) == 0 {
		return nil
	}
	return json.Unmarshal(r.body, v)
}
