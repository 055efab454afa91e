// Package config resolves the immutable ClientConfig snapshot used by every
// other package.
//
// Values come from three sources, highest precedence first: explicit
// options, environment variables, built-in defaults.
//
//	cfg, err := config.Resolve(config.OSEnv,
//	    config.WithMaxConcurrentRequests(20),
//	)
//
// The environment is injected so tests can use a fixed snapshot:
//
//	cfg, err := config.Resolve(config.MapEnv(map[string]string{
//	    "SWARMS_API_MAX_RETRIES": "5",
//	}))
//
// A value that is present but cannot be parsed, or is out of range, fails
// resolution with a *ConfigurationError. Nothing falls back silently.
package config
