package config

import (
	"slices"
	"strings"
	"time"
)

// Option sets a value explicitly, overriding the environment.
type Option func(*ClientConfig)

// Resolve builds a ClientConfig from defaults, then env, then opts, and
// validates the result.
func Resolve(env Env, opts ...Option) (ClientConfig, error) {
	cfg := Default()
	if env != nil {
		if err := applyEnv(&cfg, env); err != nil {
			return ClientConfig{}, err
		}
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.Validate(); err != nil {
		return ClientConfig{}, err
	}
	return cfg, nil
}

// WithAPIKey sets the credential.
func WithAPIKey(key string) Option {
	return func(c *ClientConfig) {
		c.APIKey = key
	}
}

// WithBaseURL sets the service root.
func WithBaseURL(u string) Option {
	return func(c *ClientConfig) {
		c.BaseURL = strings.TrimSuffix(u, "/")
	}
}

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *ClientConfig) {
		c.Timeout = d
	}
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(c *ClientConfig) {
		c.MaxRetries = n
	}
}

// WithRetryDelay sets the initial and maximum retry delays.
func WithRetryDelay(initial, maxDelay time.Duration) Option {
	return func(c *ClientConfig) {
		c.InitialRetryDelay = initial
		c.MaxRetryDelay = maxDelay
	}
}

// WithJitter toggles delay randomisation.
func WithJitter(enabled bool) Option {
	return func(c *ClientConfig) {
		c.Jitter = enabled
	}
}

// WithRetryableStatus replaces the retryable status set.
func WithRetryableStatus(codes ...int) Option {
	return func(c *ClientConfig) {
		set := slices.Clone(codes)
		slices.Sort(set)
		c.RetryableStatus = slices.Compact(set)
	}
}

// WithMaxConcurrentRequests sets the in-flight budget.
func WithMaxConcurrentRequests(n int) Option {
	return func(c *ClientConfig) {
		c.MaxConcurrentRequests = n
	}
}

// WithCache toggles the idempotent-read cache.
func WithCache(enabled bool) Option {
	return func(c *ClientConfig) {
		c.CacheEnabled = enabled
	}
}

// WithCacheTTL sets entry expiry. Zero disables expiry.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *ClientConfig) {
		c.CacheTTL = ttl
	}
}

// WithCacheMaxEntries bounds the in-memory cache.
func WithCacheMaxEntries(n int) Option {
	return func(c *ClientConfig) {
		c.CacheMaxEntries = n
	}
}
