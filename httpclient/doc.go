// Package httpclient is the network-attempt boundary of the Swarms client.
//
// A Client performs exactly one HTTP attempt per Send and maps its outcome to
// either a *Response (status below 400, body fully read) or a *Failure
// tagged with one Kind:
//
//   - KindTransient: status in the retryable set (429, 500, 502, 503, 504 by default)
//   - KindPermanent: any other status >= 400, TLS certificate errors,
//     unknown hosts, an open circuit breaker, caller cancellation
//   - KindTimeout: the attempt deadline expired
//   - KindTransport: connection refused/reset, EOF, temporary DNS failures
//
// Retrying, caching and concurrency limits live in the engine package; this
// package never retries on its own.
//
// # Quick Start
//
//	client := httpclient.New(
//	    httpclient.WithBaseURL("https://api.swarms.world"),
//	    httpclient.WithAPIKey(os.Getenv("SWARMS_API_KEY")),
//	    httpclient.WithServiceName("swarms"),
//	)
//
//	resp, err := client.Request("get-health").Path("/health").Get(ctx)
//	if f, ok := httpclient.AsFailure(err); ok && f.Retryable() {
//	    // back off and try again
//	}
//
// # Resilience Layers
//
// Optional layers wrap every attempt:
//
//	client := httpclient.New(
//	    httpclient.WithRateLimit(httpclient.DefaultRateLimitConfig()),
//	    httpclient.WithBreaker(httpclient.DefaultBreakerConfig()),
//	)
//
// A breaker shared by several processes is backed by Redis:
//
//	store := httpclient.NewRedisBreakerStore(rdb)
//	client := httpclient.New(
//	    httpclient.WithBreaker(httpclient.DistributedBreakerConfig(store)),
//	)
//
// # Observability
//
// Every attempt produces an "HTTP {method}" client span with W3C trace
// context propagation and records http.client.* metrics through the
// configured OpenTelemetry providers:
//
//	client := httpclient.New(
//	    httpclient.WithTracerProvider(tp),
//	    httpclient.WithMeterProvider(mp),
//	)
//
// WithDebug logs each attempt through the zerolog logger set by WithLogger,
// including a cURL rendition of the request with the API key masked.
//
// # Testing
//
// MockTransport scripts responses per path, including sequences for retry
// scenarios:
//
//	mock := httpclient.NewMockTransport().
//	    StubSequence(func(r *http.Request) bool { return r.URL.Path == "/health" },
//	        httpclient.MockStep{StatusCode: 503},
//	        httpclient.MockStep{StatusCode: 200, Body: `{"status":"ok"}`},
//	    )
//	client := httpclient.New(httpclient.WithMockTransport(mock))
//
// WithChaos injects latency, dial errors, hangs and error statuses.
package httpclient
