package config

import (
	"net/url"
	"slices"
	"time"
)

// Base URLs of the hosted orchestration service.
const (
	DefaultBaseURL   = "https://api.swarms.world"
	AlternateBaseURL = "https://swarms-api-285321057562.us-east1.run.app"
)

// Built-in defaults.
const (
	DefaultTimeout               = 60 * time.Second
	DefaultMaxRetries            = 3
	DefaultInitialRetryDelay     = 1 * time.Second
	DefaultMaxRetryDelay         = 30 * time.Second
	DefaultJitter                = true
	DefaultMaxConcurrentRequests = 100
	DefaultCacheEnabled          = true
	DefaultCacheTTL              = 5 * time.Minute
	DefaultCacheMaxEntries       = 1024
)

// DefaultRetryableStatus is the status set retried when nothing else is configured.
var DefaultRetryableStatus = []int{429, 500, 502, 503, 504}

// ClientConfig is the resolved configuration. It is built once and read by
// reference afterwards; nothing mutates it after Resolve returns.
type ClientConfig struct {
	// BaseURL is the service root, without a trailing slash.
	BaseURL string

	// APIKey is sent as the x-api-key header. Empty means unauthenticated.
	APIKey string

	// Timeout bounds a single attempt, not the whole retry sequence.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int

	// InitialRetryDelay is the delay before the first retry.
	InitialRetryDelay time.Duration

	// MaxRetryDelay caps every retry delay.
	MaxRetryDelay time.Duration

	// Jitter scales each delay by a random factor in [0.5, 1.5).
	Jitter bool

	// RetryableStatus is the sorted set of statuses classified as transient.
	RetryableStatus []int

	// MaxConcurrentRequests is the in-flight operation budget.
	MaxConcurrentRequests int

	// CacheEnabled turns the idempotent-read cache on.
	CacheEnabled bool

	// CacheTTL expires cache entries. Zero keeps them until evicted.
	CacheTTL time.Duration

	// CacheMaxEntries bounds the in-memory cache.
	CacheMaxEntries int
}

// Default returns the built-in defaults without consulting the environment.
func Default() ClientConfig {
	return ClientConfig{
		BaseURL:               DefaultBaseURL,
		Timeout:               DefaultTimeout,
		MaxRetries:            DefaultMaxRetries,
		InitialRetryDelay:     DefaultInitialRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		Jitter:                DefaultJitter,
		RetryableStatus:       slices.Clone(DefaultRetryableStatus),
		MaxConcurrentRequests: DefaultMaxConcurrentRequests,
		CacheEnabled:          DefaultCacheEnabled,
		CacheTTL:              DefaultCacheTTL,
		CacheMaxEntries:       DefaultCacheMaxEntries,
	}
}

// IsRetryableStatus reports whether code is in the retryable set.
func (c ClientConfig) IsRetryableStatus(code int) bool {
	_, found := slices.BinarySearch(c.RetryableStatus, code)
	return found
}

// Validate checks cross-field constraints.
func (c ClientConfig) Validate() error {
	if c.BaseURL == "" {
		return &ConfigurationError{Key: KeyBaseURL, Err: ErrEmpty}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigurationError{Key: KeyBaseURL, Value: c.BaseURL, Err: ErrInvalidURL}
	}
	if c.Timeout <= 0 {
		return &ConfigurationError{Key: KeyTimeout, Value: c.Timeout.String(), Err: ErrNotPositive}
	}
	if c.MaxRetries < 0 {
		return &ConfigurationError{Key: KeyMaxRetries, Value: itoa(c.MaxRetries), Err: ErrNegative}
	}
	if c.InitialRetryDelay < 0 {
		return &ConfigurationError{Key: KeyRetryDelay, Value: c.InitialRetryDelay.String(), Err: ErrNegative}
	}
	if c.MaxRetryDelay < 0 {
		return &ConfigurationError{Key: KeyMaxRetryDelay, Value: c.MaxRetryDelay.String(), Err: ErrNegative}
	}
	for _, code := range c.RetryableStatus {
		if code < 100 || code > 599 {
			return &ConfigurationError{Key: KeyRetryOnStatus, Value: itoa(code), Err: ErrStatusRange}
		}
	}
	if c.MaxConcurrentRequests <= 0 {
		return &ConfigurationError{
			Key:   KeyMaxConcurrentRequests,
			Value: itoa(c.MaxConcurrentRequests),
			Err:   ErrNotPositive,
		}
	}
	if c.CacheTTL < 0 {
		return &ConfigurationError{Key: KeyCacheTTL, Value: c.CacheTTL.String(), Err: ErrNegative}
	}
	if c.CacheMaxEntries <= 0 {
		return &ConfigurationError{Key: KeyCacheMaxEntries, Value: itoa(c.CacheMaxEntries), Err: ErrNotPositive}
	}
	return nil
}
