package httpclient

import (
	"io"
	"net/http"
	"time"
)

// Client performs single HTTP attempts against the orchestration service.
//
// The transport chain, outermost first:
//
//	otel -> rate limit -> circuit breaker -> chaos -> base (or mock)
//
// Create a Client using New():
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.swarms.world"),
//	    httpclient.WithAPIKey(apiKey),
//	    httpclient.WithServiceName("swarms"),
//	)
//
//	resp, err := client.Request("get-health").Path("/health").Get(ctx)
type Client struct {
	httpClient *http.Client
	base       http.RoundTripper
	config     *internalConfig
}

// New creates a Client with OpenTelemetry instrumentation and the optional
// resilience layers enabled by opts.
func New(opts ...Option) *Client {
	cfg := newConfig(opts...)
	base := cfg.buildTransport()

	withChaos := newChaosTransport(base, cfg)
	withBreaker := newCircuitBreakerTransport(withChaos, cfg)
	withRateLimit := newRateLimitTransport(withBreaker, cfg)
	instrumented := newOtelTransport(withRateLimit, cfg)

	return &Client{
		// No client-level timeout: each attempt is bounded by its context.
		httpClient: &http.Client{Transport: instrumented},
		base:       base,
		config:     cfg,
	}
}

// HTTP returns the underlying *http.Client.
func (c *Client) HTTP() *http.Client {
	return c.httpClient
}

// Request creates a RequestBuilder for the named operation. The name labels
// spans, metrics and debug logs.
func (c *Client) Request(operation string) *RequestBuilder {
	return &RequestBuilder{
		client:     c,
		operation:  operation,
		headers:    make(http.Header),
		pathParams: make(map[string]string),
	}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Classifier returns the classifier used to map attempts to failure kinds.
func (c *Client) Classifier() *Classifier {
	return c.config.Classifier
}

// CloseIdleConnections closes pooled keep-alive connections.
func (c *Client) CloseIdleConnections() {
	type idleCloser interface{ CloseIdleConnections() }
	if ic, ok := c.base.(idleCloser); ok {
		ic.CloseIdleConnections()
	}
}

// roundTrip sends req and drains the body into a Response.
func (c *Client) roundTrip(req *http.Request) (*Response, error) {
	start := time.Now()

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, err
	}

	if err := c.config.Interceptors.ApplyResponseInterceptors(httpResp, req); err != nil {
		return nil, err
	}

	return &Response{
		statusCode: httpResp.StatusCode,
		header:     httpResp.Header,
		body:       body,
		request:    req,
		duration:   time.Since(start),
	}, nil
}

func (c *Client) failureFromError(err error) *Failure {
	if f, ok := AsFailure(err); ok {
		return f
	}
	return &Failure{Kind: c.config.Classifier.ClassifyError(err), Err: err}
}

func (c *Client) failureFromResponse(resp *Response) *Failure {
	kind := c.config.Classifier.ClassifyStatus(resp.statusCode)
	if kind == 0 {
		return nil
	}
	return &Failure{
		Kind:       kind,
		StatusCode: resp.statusCode,
		Header:     resp.header,
		Body:       resp.body,
	}
}
