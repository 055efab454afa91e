package httpclient

import (
	"net/http"
)

// APIKeyHeader is the header the orchestration service reads the credential from.
const APIKeyHeader = "x-api-key"

// RequestIDHeader carries the per-operation request ID. All attempts of one
// logical operation share the same value.
const RequestIDHeader = "X-Request-ID"

// RequestInterceptor allows modification of requests before they are sent.
// Interceptors are executed in the order they are added, once per attempt.
//
// Common use cases:
//   - Adding the API credential
//   - Injecting correlation IDs
//   - Setting a User-Agent
type RequestInterceptor func(req *http.Request) error

// ResponseInterceptor allows inspection of responses after receipt.
// Interceptors are executed in the order they are added.
type ResponseInterceptor func(resp *http.Response, req *http.Request) error

// InterceptorChain manages request and response interceptors.
type InterceptorChain struct {
	requestInterceptors  []RequestInterceptor
	responseInterceptors []ResponseInterceptor
}

// NewInterceptorChain creates an empty interceptor chain.
func NewInterceptorChain() *InterceptorChain {
	return &InterceptorChain{}
}

// AddRequestInterceptor adds a request interceptor to the chain.
func (c *InterceptorChain) AddRequestInterceptor(i RequestInterceptor) {
	c.requestInterceptors = append(c.requestInterceptors, i)
}

// AddResponseInterceptor adds a response interceptor to the chain.
func (c *InterceptorChain) AddResponseInterceptor(i ResponseInterceptor) {
	c.responseInterceptors = append(c.responseInterceptors, i)
}

// ApplyRequestInterceptors runs all request interceptors in order.
// Returns an error if any interceptor fails.
func (c *InterceptorChain) ApplyRequestInterceptors(req *http.Request) error {
	for _, interceptor := range c.requestInterceptors {
		if err := interceptor(req); err != nil {
			return err
		}
	}
	return nil
}

// ApplyResponseInterceptors runs all response interceptors in order.
// Returns an error if any interceptor fails.
func (c *InterceptorChain) ApplyResponseInterceptors(resp *http.Response, req *http.Request) error {
	for _, interceptor := range c.responseInterceptors {
		if err := interceptor(resp, req); err != nil {
			return err
		}
	}
	return nil
}

// APIKeyInterceptor creates an interceptor that adds an API key header.
// An empty key leaves the request untouched.
func APIKeyInterceptor(headerName, apiKey string) RequestInterceptor {
	return func(req *http.Request) error {
		if apiKey == "" {
			return nil
		}
		req.Header.Set(headerName, apiKey)
		return nil
	}
}

// UserAgentInterceptor creates an interceptor that sets the User-Agent header.
func UserAgentInterceptor(userAgent string) RequestInterceptor {
	return func(req *http.Request) error {
		req.Header.Set("User-Agent", userAgent)
		return nil
	}
}
