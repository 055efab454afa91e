package engine

import (
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scope = "github.com/kroma-labs/swarms-go/engine"

type options struct {
	logger         zerolog.Logger
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	store          Store
	random         func() float64
}

// Option configures an Engine.
type Option func(*options)

func newOptions(opts ...Option) *options {
	o := &options{
		logger:         zerolog.Nop(),
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets the logger for retry and cache events.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithTracerProvider sets the TracerProvider. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets the MeterProvider. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// WithStore replaces the in-memory cache store, e.g. with a RedisStore.
// The engine closes the store on Close.
func WithStore(s Store) Option {
	return func(o *options) {
		o.store = s
	}
}
