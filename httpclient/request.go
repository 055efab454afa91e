package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// RequestBuilder assembles exactly one HTTP attempt.
//
// It never retries: Send either returns a *Response for a status below 400,
// or an error whose chain contains a *Failure describing why the attempt
// failed. Retrying is the caller's decision.
//
//	resp, err := client.Request("run-agent").
//	    Path("/v1/agent/completions").
//	    Body(payload).
//	    Post(ctx)
type RequestBuilder struct {
	client      *Client
	operation   string
	method      string
	path        string
	pathParams  map[string]string
	query       url.Values
	headers     http.Header
	body        []byte
	contentType string
	bodyErr     error
}

// Path sets the request path, resolved against the client base URL.
// {name} segments are filled by PathParam.
func (rb *RequestBuilder) Path(path string) *RequestBuilder {
	rb.path = path
	return rb
}

// PathParam fills a {key} segment of the path. The value is path-escaped.
func (rb *RequestBuilder) PathParam(key, value string) *RequestBuilder {
	rb.pathParams[key] = value
	return rb
}

// Query adds a query parameter.
func (rb *RequestBuilder) Query(key, value string) *RequestBuilder {
	if rb.query == nil {
		rb.query = make(url.Values)
	}
	rb.query.Add(key, value)
	return rb
}

// QueryValues merges values into the query string.
func (rb *RequestBuilder) QueryValues(values url.Values) *RequestBuilder {
	for k, vs := range values {
		for _, v := range vs {
			rb.Query(k, v)
		}
	}
	return rb
}

// Header sets a request header.
func (rb *RequestBuilder) Header(key, value string) *RequestBuilder {
	rb.headers.Set(key, value)
	return rb
}

// Body sets the request body.
//
//   - []byte and json.RawMessage: sent as-is with Content-Type application/json
//   - string: sent as-is with Content-Type text/plain
//   - anything else: JSON-encoded
//
// Encoding errors are reported by Send.
func (rb *RequestBuilder) Body(v any) *RequestBuilder {
	switch body := v.(type) {
	case nil:
		rb.body, rb.contentType = nil, ""
	case []byte:
		rb.body, rb.contentType = body, "application/json"
	case json.RawMessage:
		rb.body, rb.contentType = body, "application/json"
	case string:
		rb.body, rb.contentType = []byte(body), "text/plain; charset=utf-8"
	default:
		data, err := json.Marshal(v)
		if err != nil {
			rb.bodyErr = fmt.Errorf("encode request body: %w", err)
			return rb
		}
		rb.body, rb.contentType = data, "application/json"
	}
	return rb
}

// Method sets the HTTP method used by Send.
func (rb *RequestBuilder) Method(method string) *RequestBuilder {
	rb.method = method
	return rb
}

// Get sends the request as GET.
func (rb *RequestBuilder) Get(ctx context.Context) (*Response, error) {
	return rb.Method(http.MethodGet).Send(ctx)
}

// Post sends the request as POST.
func (rb *RequestBuilder) Post(ctx context.Context) (*Response, error) {
	return rb.Method(http.MethodPost).Send(ctx)
}

// Send performs the attempt.
//
// The response body is read completely before Send returns, so the attempt
// deadline in ctx covers the whole exchange and the connection is returned
// to the pool.
func (rb *RequestBuilder) Send(ctx context.Context) (*Response, error) {
	if rb.bodyErr != nil {
		return nil, rb.bodyErr
	}
	method := rb.method
	if method == "" {
		method = http.MethodGet
	}

	target, err := rb.buildURL()
	if err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if rb.body != nil {
		reqBody = bytes.NewReader(rb.body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, vs := range rb.client.config.DefaultHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, vs := range rb.headers {
		req.Header[k] = vs
	}
	if rb.contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", rb.contentType)
	}
	req.Header.Set("Accept", "application/json")

	if err := rb.client.config.Interceptors.ApplyRequestInterceptors(req); err != nil {
		return nil, fmt.Errorf("request interceptor: %w", err)
	}

	cfg := rb.client.config
	if cfg.Debug {
		logRequest(cfg.Logger, rb.operation, req, rb.body)
	}

	start := time.Now()
	resp, err := rb.client.roundTrip(req)
	duration := time.Since(start)
	if err != nil {
		f := rb.client.failureFromError(err)
		if cfg.Debug {
			logFailure(cfg.Logger, rb.operation, f, duration)
		}
		return nil, f
	}

	if f := rb.client.failureFromResponse(resp); f != nil {
		if cfg.Debug {
			logFailure(cfg.Logger, rb.operation, f, duration)
		}
		return nil, f
	}

	if cfg.Debug {
		logResponse(cfg.Logger, rb.operation, resp, duration)
	}
	return resp, nil
}

// buildURL joins the base URL, the expanded path and the query string.
func (rb *RequestBuilder) buildURL() (string, error) {
	path := rb.path
	for k, v := range rb.pathParams {
		path = strings.ReplaceAll(path, "{"+k+"}", url.PathEscape(v))
	}

	full := path
	if base := rb.client.config.BaseURL; base != "" {
		full = strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
	}

	u, err := url.Parse(full)
	if err != nil {
		return "", fmt.Errorf("parse request url: %w", err)
	}
	if len(rb.query) > 0 {
		q := u.Query()
		for k, vs := range rb.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
