package config

import (
	"fmt"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Environment variable names.
const (
	KeyAPIKey                = "SWARMS_API_KEY"
	KeyBaseURL               = "SWARMS_API_BASE_URL"
	KeyTimeout               = "SWARMS_API_TIMEOUT"
	KeyMaxRetries            = "SWARMS_API_MAX_RETRIES"
	KeyRetryDelay            = "SWARMS_API_RETRY_DELAY"
	KeyMaxRetryDelay         = "SWARMS_API_MAX_RETRY_DELAY"
	KeyJitter                = "SWARMS_API_JITTER"
	KeyRetryOnStatus         = "SWARMS_API_RETRY_ON_STATUS"
	KeyMaxConcurrentRequests = "SWARMS_API_MAX_CONCURRENT_REQUESTS"
	KeyCacheEnabled          = "SWARMS_API_CACHE_ENABLED"
	KeyCacheTTL              = "SWARMS_API_CACHE_TTL"
	KeyCacheMaxEntries       = "SWARMS_API_CACHE_MAX_ENTRIES"
)

// Env looks up a variable. The boolean reports whether it is set.
type Env func(key string) (string, bool)

// OSEnv reads the process environment.
func OSEnv(key string) (string, bool) {
	return os.LookupEnv(key)
}

// MapEnv returns an Env backed by a copy of m.
func MapEnv(m map[string]string) Env {
	snapshot := make(map[string]string, len(m))
	for k, v := range m {
		snapshot[k] = v
	}
	return func(key string) (string, bool) {
		v, ok := snapshot[key]
		return v, ok
	}
}

// applyEnv overlays every set variable onto cfg.
func applyEnv(cfg *ClientConfig, env Env) error {
	if v, ok := lookup(env, KeyAPIKey); ok {
		cfg.APIKey = v
	}
	v, ok, err := lookupValue(env, KeyBaseURL)
	if err != nil {
		return err
	}
	if ok {
		cfg.BaseURL = strings.TrimSuffix(v, "/")
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{KeyTimeout, &cfg.Timeout},
		{KeyRetryDelay, &cfg.InitialRetryDelay},
		{KeyMaxRetryDelay, &cfg.MaxRetryDelay},
		{KeyCacheTTL, &cfg.CacheTTL},
	}
	for _, d := range durations {
		v, ok, err := lookupValue(env, d.key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		parsed, err := ParseDuration(v)
		if err != nil {
			return &ConfigurationError{Key: d.key, Value: v, Err: err}
		}
		*d.dst = parsed
	}

	ints := []struct {
		key      string
		dst      *int
		positive bool
	}{
		{KeyMaxRetries, &cfg.MaxRetries, false},
		{KeyMaxConcurrentRequests, &cfg.MaxConcurrentRequests, true},
		{KeyCacheMaxEntries, &cfg.CacheMaxEntries, true},
	}
	for _, i := range ints {
		v, ok, err := lookupValue(env, i.key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigurationError{Key: i.key, Value: v, Err: err}
		}
		switch {
		case n < 0:
			return &ConfigurationError{Key: i.key, Value: v, Err: ErrNegative}
		case n == 0 && i.positive:
			return &ConfigurationError{Key: i.key, Value: v, Err: ErrNotPositive}
		}
		*i.dst = n
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{KeyJitter, &cfg.Jitter},
		{KeyCacheEnabled, &cfg.CacheEnabled},
	}
	for _, b := range bools {
		v, ok, err := lookupValue(env, b.key)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return &ConfigurationError{Key: b.key, Value: v, Err: err}
		}
		*b.dst = parsed
	}

	v, ok, err = lookupValue(env, KeyRetryOnStatus)
	if err != nil {
		return err
	}
	if ok {
		codes, err := ParseStatusList(v)
		if err != nil {
			return &ConfigurationError{Key: KeyRetryOnStatus, Value: v, Err: err}
		}
		cfg.RetryableStatus = codes
	}
	return nil
}

// lookup returns the trimmed value and whether key is set.
func lookup(env Env, key string) (string, bool) {
	v, ok := env(key)
	return strings.TrimSpace(v), ok
}

// lookupValue is lookup for keys that need a value: set but blank is an error.
func lookupValue(env Env, key string) (string, bool, error) {
	v, ok := lookup(env, key)
	if ok && v == "" {
		return "", false, &ConfigurationError{Key: key, Err: ErrEmpty}
	}
	return v, ok, nil
}

// ParseDuration accepts plain seconds ("30", "1.5") or a Go duration ("1500ms").
// Negative values are rejected.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(secs) || math.IsInf(secs, 0) {
			return 0, fmt.Errorf("not a finite number: %s", s)
		}
		d = time.Duration(secs * float64(time.Second))
	} else {
		d, err = time.ParseDuration(s)
		if err != nil {
			return 0, fmt.Errorf("not seconds or a duration: %w", err)
		}
	}
	if d < 0 {
		return 0, ErrNegative
	}
	return d, nil
}

// ParseStatusList parses a comma separated status list into a sorted set.
func ParseStatusList(s string) ([]int, error) {
	var codes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		if code < 100 || code > 599 {
			return nil, ErrStatusRange
		}
		codes = append(codes, code)
	}
	if len(codes) == 0 {
		return nil, ErrEmpty
	}
	slices.Sort(codes)
	return slices.Compact(codes), nil
}
