package swarms

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kroma-labs/swarms-go/config"
	"github.com/kroma-labs/swarms-go/engine"
	"github.com/kroma-labs/swarms-go/httpclient"
)

type options struct {
	env           config.Env
	config        *config.ClientConfig
	configOptions []config.Option
	httpOptions   []httpclient.Option
	engineOptions []engine.Option
	logger        zerolog.Logger
	serviceName   string
}

// Option configures a Client.
type Option func(*options)

// WithEnv sets the environment consulted by config.Resolve. Defaults to
// config.OSEnv.
func WithEnv(env config.Env) Option {
	return func(o *options) {
		o.env = env
	}
}

// WithConfig uses cfg as is, skipping environment resolution.
func WithConfig(cfg config.ClientConfig) Option {
	return func(o *options) {
		o.config = &cfg
	}
}

// WithConfigOptions adds explicit configuration values. They override the
// environment.
func WithConfigOptions(opts ...config.Option) Option {
	return func(o *options) {
		o.configOptions = append(o.configOptions, opts...)
	}
}

// WithAPIKey is shorthand for WithConfigOptions(config.WithAPIKey(key)).
func WithAPIKey(key string) Option {
	return WithConfigOptions(config.WithAPIKey(key))
}

// WithBaseURL is shorthand for WithConfigOptions(config.WithBaseURL(u)).
func WithBaseURL(u string) Option {
	return WithConfigOptions(config.WithBaseURL(u))
}

// WithMaxConcurrentRequests is shorthand for the matching config option.
func WithMaxConcurrentRequests(n int) Option {
	return WithConfigOptions(config.WithMaxConcurrentRequests(n))
}

// WithHTTPOptions passes options to the underlying httpclient, e.g. a
// breaker, a rate limit or a mock transport.
func WithHTTPOptions(opts ...httpclient.Option) Option {
	return func(o *options) {
		o.httpOptions = append(o.httpOptions, opts...)
	}
}

// WithEngineOptions passes options to the execution engine, e.g. a Redis
// cache store.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) {
		o.engineOptions = append(o.engineOptions, opts...)
	}
}

// WithLogger sets the logger used by every layer.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracerProvider sets the TracerProvider for both attempt and operation spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.httpOptions = append(o.httpOptions, httpclient.WithTracerProvider(tp))
		o.engineOptions = append(o.engineOptions, engine.WithTracerProvider(tp))
	}
}

// WithMeterProvider sets the MeterProvider for both layers.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.httpOptions = append(o.httpOptions, httpclient.WithMeterProvider(mp))
		o.engineOptions = append(o.engineOptions, engine.WithMeterProvider(mp))
	}
}

// WithServiceName labels attempt spans, metrics and the breaker.
// Default: "swarms".
func WithServiceName(name string) Option {
	return func(o *options) {
		o.serviceName = name
	}
}
