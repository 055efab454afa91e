package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const (
	// scope is the instrumentation scope name for OpenTelemetry.
	scope = "github.com/kroma-labs/swarms-go/httpclient"
)

// =============================================================================
// Config - HTTP Transport Configuration
// =============================================================================

// Config holds the HTTP transport configuration parameters.
// Use DefaultConfig() to get a properly initialized configuration,
// then modify specific fields as needed.
//
// Per-attempt deadlines are not configured here: every attempt runs under the
// context passed to Send, and the engine derives that context from the
// resolved client timeout.
//
// Example:
//
//	cfg := httpclient.DefaultConfig()
//	cfg.MaxIdleConnsPerHost = 50
//
//	client := httpclient.New(
//	    httpclient.WithConfig(cfg),
//	    httpclient.WithServiceName("swarms-client"),
//	)
type Config struct {
	// MaxIdleConns controls the maximum number of idle (keep-alive)
	// connections across ALL hosts combined.
	//
	// Default: 100
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle connections to keep
	// for each host. The client mostly talks to a single orchestration
	// endpoint, so this should track the expected concurrency limit.
	//
	// Default: 100
	MaxIdleConnsPerHost int

	// MaxConnsPerHost limits the TOTAL number of connections (idle + active)
	// per host. A value of 0 means unlimited; the engine's concurrency
	// limiter already bounds in-flight requests.
	//
	// Default: 0
	MaxConnsPerHost int

	// IdleConnTimeout is how long an idle connection remains in the pool.
	//
	// Default: 90s
	IdleConnTimeout time.Duration

	// TLSHandshakeTimeout limits the time spent on the TLS handshake.
	//
	// Default: 10s
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout limits the time spent waiting for response
	// headers after the request is written. Zero relies on the context.
	//
	// Default: 0
	ResponseHeaderTimeout time.Duration

	// ExpectContinueTimeout limits the wait for a 100-continue response.
	//
	// Default: 1s
	ExpectContinueTimeout time.Duration

	// DialTimeout limits the time spent establishing a TCP connection.
	//
	// Default: 5s
	DialTimeout time.Duration

	// KeepAlive sets the TCP keep-alive probe interval.
	//
	// Default: 30s
	KeepAlive time.Duration

	// DisableKeepAlives disables HTTP keep-alives.
	//
	// Default: false
	DisableKeepAlives bool

	// ForceHTTP2 attempts HTTP/2 when a custom dialer or TLS config is set.
	//
	// Default: true
	ForceHTTP2 bool
}

// DefaultConfig returns balanced settings for talking to a single API host.
func DefaultConfig() Config {
	return Config{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		MaxConnsPerHost:       0,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 0,
		ExpectContinueTimeout: 1 * time.Second,
		DialTimeout:           5 * time.Second,
		KeepAlive:             30 * time.Second,
		DisableKeepAlives:     false,
		ForceHTTP2:            true,
	}
}

// HighThroughputConfig returns a configuration for large batch fan-outs
// where hundreds of requests may be in flight against the same host.
func HighThroughputConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxIdleConns = 500
	cfg.MaxIdleConnsPerHost = 500
	cfg.IdleConnTimeout = 120 * time.Second
	return cfg
}

// =============================================================================
// Internal Configuration
// =============================================================================

// internalConfig holds all configuration including HTTP transport and OTel settings.
type internalConfig struct {
	httpConfig Config

	// === OpenTelemetry ===

	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	Metrics        *metrics
	Propagators    propagation.TextMapPropagator

	// ServiceName identifies the client in spans, metrics and breaker names.
	ServiceName string

	// === Request shaping ===

	BaseURL        string
	DefaultHeaders http.Header
	Interceptors   *InterceptorChain
	Classifier     *Classifier

	// === Resilience ===

	RateLimitConfig *RateLimitConfig
	BreakerConfig   *BreakerConfig
	ChaosConfig     *ChaosConfig

	// === Transport overrides ===

	TLSConfig     *tls.Config
	BaseTransport http.RoundTripper
	MockTransport *MockTransport

	// === Debugging ===

	Debug  bool
	Logger zerolog.Logger
}

// newConfig creates a new internal config with defaults and applies options.
func newConfig(opts ...Option) *internalConfig {
	cfg := &internalConfig{
		httpConfig:     DefaultConfig(),
		TracerProvider: otel.GetTracerProvider(),
		MeterProvider:  otel.GetMeterProvider(),
		Propagators: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
		DefaultHeaders: make(http.Header),
		Interceptors:   NewInterceptorChain(),
		Logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Classifier == nil {
		cfg.Classifier = NewClassifier()
	}

	cfg.Tracer = cfg.TracerProvider.Tracer(scope)
	cfg.Meter = cfg.MeterProvider.Meter(scope)

	// Metrics stay nil on failure; record helpers are nil-safe.
	cfg.Metrics, _ = newMetrics(cfg.Meter)

	return cfg
}

// buildTransport creates the base round tripper from the configuration.
func (cfg *internalConfig) buildTransport() http.RoundTripper {
	if cfg.MockTransport != nil {
		return cfg.MockTransport
	}
	if cfg.BaseTransport != nil {
		return cfg.BaseTransport
	}

	hc := cfg.httpConfig
	dialer := &net.Dialer{
		Timeout:   hc.DialTimeout,
		KeepAlive: hc.KeepAlive,
	}

	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          hc.MaxIdleConns,
		MaxIdleConnsPerHost:   hc.MaxIdleConnsPerHost,
		MaxConnsPerHost:       hc.MaxConnsPerHost,
		IdleConnTimeout:       hc.IdleConnTimeout,
		TLSHandshakeTimeout:   hc.TLSHandshakeTimeout,
		ResponseHeaderTimeout: hc.ResponseHeaderTimeout,
		ExpectContinueTimeout: hc.ExpectContinueTimeout,
		DisableKeepAlives:     hc.DisableKeepAlives,
		TLSClientConfig:       cfg.TLSConfig,
		ForceAttemptHTTP2:     hc.ForceHTTP2,
	}
}

// baseAttributes returns common attributes for all spans and metrics.
func (cfg *internalConfig) baseAttributes() []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 1)
	if cfg.ServiceName != "" {
		attrs = append(attrs, attribute.String("http.client.name", cfg.ServiceName))
	}
	return attrs
}

// =============================================================================
// Options - Functional Options for Client Configuration
// =============================================================================

// Option configures the HTTP client.
type Option func(*internalConfig)

// WithConfig sets the HTTP transport configuration.
func WithConfig(c Config) Option {
	return func(cfg *internalConfig) {
		cfg.httpConfig = c
	}
}

// WithServiceName sets an identifier for this client in traces and metrics.
// It is added as the "http.client.name" attribute and names the circuit breaker.
func WithServiceName(name string) Option {
	return func(cfg *internalConfig) {
		cfg.ServiceName = name
	}
}

// WithBaseURL sets the base URL that request paths are resolved against.
func WithBaseURL(baseURL string) Option {
	return func(cfg *internalConfig) {
		cfg.BaseURL = baseURL
	}
}

// WithDefaultHeader adds a header sent with every request.
func WithDefaultHeader(key, value string) Option {
	return func(cfg *internalConfig) {
		cfg.DefaultHeaders.Set(key, value)
	}
}

// WithAPIKey attaches the credential to every attempt using the
// "x-api-key" header expected by the orchestration service.
func WithAPIKey(apiKey string) Option {
	return WithRequestInterceptor(APIKeyInterceptor(APIKeyHeader, apiKey))
}

// WithRequestInterceptor appends a request interceptor to the chain.
func WithRequestInterceptor(i RequestInterceptor) Option {
	return func(cfg *internalConfig) {
		cfg.Interceptors.AddRequestInterceptor(i)
	}
}

// WithResponseInterceptor appends a response interceptor to the chain.
func WithResponseInterceptor(i ResponseInterceptor) Option {
	return func(cfg *internalConfig) {
		cfg.Interceptors.AddResponseInterceptor(i)
	}
}

// WithRetryableStatus sets the status codes classified as KindTransient.
// All other statuses >= 400 are classified as KindPermanent.
func WithRetryableStatus(codes ...int) Option {
	return func(cfg *internalConfig) {
		cfg.Classifier = NewClassifier(codes...)
	}
}

// WithRateLimit enables client-level request rate limiting.
func WithRateLimit(rl RateLimitConfig) Option {
	return func(cfg *internalConfig) {
		cfg.RateLimitConfig = &rl
	}
}

// WithBreaker enables the circuit breaker at the attempt boundary.
func WithBreaker(bc BreakerConfig) Option {
	return func(cfg *internalConfig) {
		cfg.BreakerConfig = &bc
	}
}

// WithChaos enables fault injection. Intended for tests and staging only.
func WithChaos(cc ChaosConfig) Option {
	return func(cfg *internalConfig) {
		cfg.ChaosConfig = &cc
	}
}

// WithTLSConfig sets the TLS configuration of the base transport.
func WithTLSConfig(tlsCfg *tls.Config) Option {
	return func(cfg *internalConfig) {
		cfg.TLSConfig = tlsCfg
	}
}

// WithTransport replaces the base transport. Instrumentation, breaker and
// rate limiting are still layered on top of it.
func WithTransport(rt http.RoundTripper) Option {
	return func(cfg *internalConfig) {
		cfg.BaseTransport = rt
	}
}

// WithTracerProvider sets a custom OpenTelemetry TracerProvider.
// If not called, the global provider from otel.GetTracerProvider() is used.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *internalConfig) {
		if tp != nil {
			cfg.TracerProvider = tp
		}
	}
}

// WithMeterProvider sets a custom OpenTelemetry MeterProvider.
// If not called, the global provider from otel.GetMeterProvider() is used.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(cfg *internalConfig) {
		if mp != nil {
			cfg.MeterProvider = mp
		}
	}
}

// WithPropagators sets the context propagators injected into outgoing requests.
func WithPropagators(p propagation.TextMapPropagator) Option {
	return func(cfg *internalConfig) {
		if p != nil {
			cfg.Propagators = p
		}
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *internalConfig) {
		cfg.Logger = logger
	}
}

// WithDebug enables request/response debug logging.
func WithDebug(enabled bool) Option {
	return func(cfg *internalConfig) {
		cfg.Debug = enabled
	}
}
