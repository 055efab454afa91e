package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/swarms-go/config"
	"github.com/kroma-labs/swarms-go/engine"
	"github.com/kroma-labs/swarms-go/swarms"
)

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "swarmsctl",
		Short: "Command-line client for the Swarms orchestration API",
		Long: `swarmsctl calls the Swarms orchestration API through the resilient
client: transient failures are retried, identical reads are cached and
batches run concurrently within --max-concurrent.

Configuration is read from SWARMS_API_* environment variables; flags win.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.apiKey, "api-key", "", "API key (default $"+config.KeyAPIKey+")")
	flags.StringVar(&a.baseURL, "base-url", "", "API base URL (default $"+config.KeyBaseURL+" or "+config.DefaultBaseURL+")")
	flags.DurationVar(&a.timeout, "timeout", 0, "per-attempt timeout")
	flags.IntVar(&a.maxRetries, "max-retries", -1, "retries after the first attempt")
	flags.IntVar(&a.maxConcurrent, "max-concurrent", 0, "maximum concurrent operations")
	flags.BoolVar(&a.noCache, "no-cache", false, "disable the response cache")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	flags.StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")

	root.AddCommand(
		a.newHealthCommand(),
		a.newModelsCommand(),
		a.newSwarmTypesCommand(),
		a.newLogsCommand(),
		a.newRunAgentCommand(),
		a.newCreateSwarmCommand(),
		a.newBatchCommand(),
	)
	return root
}

func (a *App) newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if a.verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: a.stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().
		Timestamp().
		Logger()
}

// configOptions maps the flags that were set to explicit config options.
func (a *App) configOptions(cmd *cobra.Command) []config.Option {
	var opts []config.Option
	flags := cmd.Flags()
	if flags.Changed("api-key") {
		opts = append(opts, config.WithAPIKey(a.apiKey))
	}
	if flags.Changed("base-url") {
		opts = append(opts, config.WithBaseURL(a.baseURL))
	}
	if flags.Changed("timeout") {
		opts = append(opts, config.WithTimeout(a.timeout))
	}
	if flags.Changed("max-retries") {
		opts = append(opts, config.WithMaxRetries(a.maxRetries))
	}
	if flags.Changed("max-concurrent") {
		opts = append(opts, config.WithMaxConcurrentRequests(a.maxConcurrent))
	}
	if a.noCache {
		opts = append(opts, config.WithCache(false))
	}
	return opts
}

func (a *App) open(cmd *cobra.Command) error {
	a.logger = a.newLogger()

	client, err := swarms.New(
		swarms.WithEnv(a.env),
		swarms.WithConfigOptions(a.configOptions(cmd)...),
		swarms.WithLogger(a.logger),
	)
	if err != nil {
		return exitWithCode(ExitUsage, err)
	}
	a.client = client

	a.logger.Debug().
		Str("base_url", client.Config().BaseURL).
		Int("max_retries", client.Config().MaxRetries).
		Int("max_concurrent", client.Config().MaxConcurrentRequests).
		Bool("cache", client.Config().CacheEnabled).
		Msg("client ready")

	if a.metricsAddr != "" {
		if err := a.serveMetrics(); err != nil {
			_ = client.Close()
			return exitWithCode(ExitUsage, fmt.Errorf("metrics server: %w", err))
		}
	}
	return nil
}

func (a *App) close() error {
	var errs []error
	if a.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		errs = append(errs, a.metrics.Shutdown(ctx))
		a.metrics = nil
	}
	if a.client != nil {
		errs = append(errs, a.client.Close())
		a.client = nil
	}
	return errors.Join(errs...)
}

// remote wraps an operation error with the exit code for its class.
func remote(err error) error {
	if err == nil {
		return nil
	}
	var cerr *config.ConfigurationError
	if errors.As(err, &cerr) {
		return exitWithCode(ExitUsage, err)
	}
	if status := engine.StatusCode(err); status != 0 {
		return exitWithCode(ExitRemote, fmt.Errorf("HTTP %d: %w", status, err))
	}
	return exitWithCode(ExitRemote, err)
}
