package httpclient

import (
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
	gobreakerredis "github.com/sony/gobreaker/v2/redis"
)

// NewRedisBreakerStore returns a gobreaker SharedDataStore backed by Redis so
// several client processes trip and recover the same breaker together.
//
//	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	cfg := httpclient.DistributedBreakerConfig(httpclient.NewRedisBreakerStore(rdb))
func NewRedisBreakerStore(client redis.UniversalClient) gobreaker.SharedDataStore {
	return gobreakerredis.NewStoreFromClient(client)
}

// BreakerClassifier decides whether an attempt counts against the breaker.
type BreakerClassifier func(resp *http.Response, err error) bool

// BreakerConfig configures the circuit breaker guarding the orchestration host.
//
// An open breaker rejects attempts immediately; the rejection surfaces as a
// KindPermanent failure so the retry loop stops instead of hammering a host
// that is known to be down.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open. 0 means 1.
	MaxRequests uint32

	// Interval clears the closed-state counts. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// FailureThreshold is the minimum request count before the ratio rule applies.
	FailureThreshold uint32

	// FailureRatio trips the breaker once failures/requests reaches it.
	FailureRatio float64

	// ConsecutiveFailures trips the breaker after this many failures in a row.
	// 0 disables the rule.
	ConsecutiveFailures uint32

	// Store enables a distributed breaker. Nil keeps state in process.
	Store gobreaker.SharedDataStore

	// Classifier selects which attempts count as failures.
	// Default: DefaultBreakerClassifier
	Classifier BreakerClassifier

	// OnStateChange is invoked after every state transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns an in-process breaker configuration.
//
//   - Interval: 10s
//   - Timeout: 10s
//   - FailureThreshold: 20
//   - FailureRatio: 0.5
//   - ConsecutiveFailures: 5
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         1,
		Interval:            10 * time.Second,
		Timeout:             10 * time.Second,
		FailureThreshold:    20,
		FailureRatio:        0.5,
		ConsecutiveFailures: 5,
		Classifier:          DefaultBreakerClassifier,
	}
}

// DistributedBreakerConfig returns DefaultBreakerConfig sharing state through store.
func DistributedBreakerConfig(store gobreaker.SharedDataStore) BreakerConfig {
	cfg := DefaultBreakerConfig()
	cfg.Store = store
	return cfg
}

// DefaultBreakerClassifier counts 5xx responses and transport errors as
// failures. 429 is left to the retry backoff. Caller cancellation is ignored.
func DefaultBreakerClassifier(resp *http.Response, err error) bool {
	if err != nil {
		kind := defaultClassifier.ClassifyError(err)
		return kind == KindTimeout || kind == KindTransport
	}
	return resp != nil && resp.StatusCode >= 500
}

var defaultClassifier = NewClassifier()

// readyToTrip builds the gobreaker trip predicate from the config.
func (c BreakerConfig) readyToTrip(counts gobreaker.Counts) bool {
	if c.ConsecutiveFailures > 0 && counts.ConsecutiveFailures >= c.ConsecutiveFailures {
		return true
	}
	if c.FailureThreshold > 0 && counts.Requests < c.FailureThreshold {
		return false
	}
	if c.FailureRatio > 0 && counts.Requests > 0 {
		return float64(counts.TotalFailures)/float64(counts.Requests) >= c.FailureRatio
	}
	return false
}
