package config

import (
	"errors"
	"fmt"
	"strconv"
)

// Causes carried by ConfigurationError.Err.
var (
	ErrEmpty       = errors.New("must not be empty")
	ErrInvalidURL  = errors.New("must be an absolute URL")
	ErrNegative    = errors.New("must not be negative")
	ErrNotPositive = errors.New("must be positive")
	ErrStatusRange = errors.New("status code out of range 100-599")
)

// ConfigurationError reports a configuration value that could not be used.
// Key is the environment variable name, also used for the equivalent option.
type ConfigurationError struct {
	Key   string
	Value string
	Err   error
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("config %s: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("config %s=%q: %v", e.Key, e.Value, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
