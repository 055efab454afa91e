package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/kroma-labs/swarms-go/config"
	"github.com/kroma-labs/swarms-go/httpclient"
)

// Engine executes descriptors against the remote service with caching,
// admission control and retries.
//
// Execute blocks the caller; Submit runs the same path on its own goroutine
// and returns a Future. Both share one Limiter, one Cache and one Retrier.
type Engine struct {
	client  *httpclient.Client
	cfg     config.ClientConfig
	retrier *Retrier
	limiter *Limiter
	cache   *Cache
	group   singleflight.Group

	logger  zerolog.Logger
	tracer  trace.Tracer
	metrics *metrics

	mu          sync.Mutex
	closed      bool
	closeCtx    context.Context
	closeCancel context.CancelFunc
	wg          sync.WaitGroup
}

// Stats is a snapshot of the engine state.
type Stats struct {
	InFlight     int
	Capacity     int
	CacheEnabled bool
	CacheEntries int
	Closed       bool
}

// New creates an Engine that performs attempts through client.
func New(client *httpclient.Client, cfg config.ClientConfig, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, errors.New("engine: nil http client")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := newOptions(opts...)
	// Metrics stay nil on failure; record helpers are nil-safe.
	m, _ := newMetrics(o.meterProvider.Meter(scope))

	e := &Engine{
		client:  client,
		cfg:     cfg,
		retrier: NewRetrier(PolicyFromConfig(cfg), o.logger),
		limiter: NewLimiter(cfg.MaxConcurrentRequests),
		logger:  o.logger,
		tracer:  o.tracerProvider.Tracer(scope),
		metrics: m,
	}
	e.retrier.metrics = m
	e.retrier.random = o.random
	e.limiter.metrics = m

	if cfg.CacheEnabled {
		store := o.store
		if store == nil {
			store = NewMemoryStore(cfg.CacheMaxEntries, cfg.CacheTTL)
		}
		e.cache = NewCache(store, o.logger)
		e.cache.metrics = m
	}

	e.closeCtx, e.closeCancel = context.WithCancel(context.Background())
	return e, nil
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() config.ClientConfig {
	return e.cfg
}

// Limiter returns the shared concurrency limiter.
func (e *Engine) Limiter() *Limiter {
	return e.limiter
}

// Cache returns the response cache, or nil when caching is disabled.
func (e *Engine) Cache() *Cache {
	return e.cache
}

// Execute runs d and blocks until it reaches a terminal state.
func (e *Engine) Execute(ctx context.Context, d Descriptor) (*Result, error) {
	ctx, done, err := e.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer done()
	return e.run(ctx, d)
}

// Submit starts d on its own goroutine and returns immediately.
func (e *Engine) Submit(ctx context.Context, d Descriptor) *Future {
	f := newFuture()
	ctx, done, err := e.begin(ctx)
	if err != nil {
		f.complete(nil, err)
		return f
	}
	go func() {
		defer done()
		f.complete(e.run(ctx, d))
	}()
	return f
}

// Invalidate drops the cached result for d. It is a no-op without a cache.
func (e *Engine) Invalidate(ctx context.Context, d Descriptor) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Invalidate(ctx, d)
}

// Purge drops every cached result.
func (e *Engine) Purge(ctx context.Context) error {
	if e.cache == nil {
		return nil
	}
	return e.cache.Purge(ctx)
}

// Stats returns a snapshot of the engine state.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()

	s := Stats{
		InFlight: e.limiter.InFlight(),
		Capacity: e.limiter.Capacity(),
		Closed:   closed,
	}
	if e.cache != nil && !closed {
		s.CacheEnabled = true
		s.CacheEntries = e.cache.Len()
	}
	return s
}

// Close rejects new work with ErrClosed, cancels in-flight operations, waits
// for them to release their slots and closes the cache store. Calling Close
// again is a no-op.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.closeCancel()
	e.wg.Wait()

	if e.cache != nil {
		return e.cache.store.Close()
	}
	return nil
}

// begin registers an operation and ties its context to Close.
func (e *Engine) begin(ctx context.Context) (context.Context, func(), error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, nil, ErrClosed
	}
	e.wg.Add(1)
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(e.closeCtx, cancel)
	return ctx, func() {
		stop()
		cancel()
		e.wg.Done()
	}, nil
}

// run is the single execution path shared by Execute and Submit:
// cache lookup, slot acquisition, retried attempts, slot release, cache store.
func (e *Engine) run(ctx context.Context, d Descriptor) (res *Result, err error) {
	start := time.Now()
	ctx, span := e.startSpan(ctx, d)
	defer func() {
		if err != nil && e.closeCtx.Err() != nil && errors.Is(err, context.Canceled) {
			err = ErrClosed
		}
		label := outcome(res, err)
		e.metrics.recordOperation(ctx, d.Operation, label, time.Since(start))
		endSpan(span, res, err, label)
	}()

	if d.Idempotency != Idempotent || e.cache == nil {
		return e.execute(ctx, d)
	}

	key, err := Fingerprint(d)
	if err != nil {
		return nil, err
	}
	if cached, ok := e.cache.get(ctx, d.Operation, key); ok {
		return cached, nil
	}

	// Identical misses share one network operation and one slot.
	// The shared call outlives any single caller but not Close.
	ch := e.group.DoChan(key, func() (any, error) {
		shared, done, err := e.begin(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		defer done()

		res, err := e.execute(shared, d)
		if err == nil {
			e.cache.put(shared, d.Operation, key, res)
		}
		return res, err
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*Result).clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// execute holds one slot for the whole retry sequence.
func (e *Engine) execute(ctx context.Context, d Descriptor) (*Result, error) {
	if err := e.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer e.limiter.Release()

	requestID := uuid.NewString()
	start := time.Now()
	res, err := e.retrier.Do(ctx, d.Operation, func(actx context.Context) (*Result, error) {
		return e.attempt(actx, d, requestID)
	})
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	return res, nil
}

// attempt performs exactly one network call.
func (e *Engine) attempt(ctx context.Context, d Descriptor, requestID string) (*Result, error) {
	rb := e.client.Request(d.Operation).
		Method(d.method()).
		Path(d.Path).
		QueryValues(d.Query).
		Header(httpclient.RequestIDHeader, requestID)
	for k, v := range d.PathParams {
		rb.PathParam(k, v)
	}
	if d.Payload != nil {
		rb.Body(d.Payload)
	}

	resp, err := rb.Send(ctx)
	if err != nil {
		return nil, remoteError(d.Operation, err)
	}
	return &Result{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		RequestID:  requestID,
	}, nil
}
