package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/swarms-go/config"
	"github.com/kroma-labs/swarms-go/httpclient"
)

func testConfig(mutate ...func(*config.ClientConfig)) config.ClientConfig {
	cfg := config.Default()
	cfg.BaseURL = "http://swarms.test"
	cfg.Timeout = time.Second
	cfg.InitialRetryDelay = time.Millisecond
	cfg.MaxRetryDelay = 4 * time.Millisecond
	cfg.Jitter = false
	cfg.MaxConcurrentRequests = 4
	for _, m := range mutate {
		m(&cfg)
	}
	return cfg
}

func newTestEngine(
	t *testing.T,
	mock *httpclient.MockTransport,
	cfg config.ClientConfig,
	opts ...Option,
) *Engine {
	t.Helper()
	client := httpclient.New(
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithMockTransport(mock),
	)
	e, err := New(client, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func withRandom(f func() float64) Option {
	return func(o *options) {
		o.random = f
	}
}

var healthDescriptor = Descriptor{Operation: "get-health", Path: "/health"}

var runAgentDescriptor = Descriptor{
	Operation:   "run-agent",
	Method:      "POST",
	Path:        "/v1/agent/completions",
	Payload:     map[string]any{"task": "summarise"},
	Idempotency: Mutating,
}
