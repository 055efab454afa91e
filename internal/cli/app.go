// Package cli implements the swarmsctl command tree.
package cli

import (
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/swarms-go/config"
	"github.com/kroma-labs/swarms-go/swarms"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitUsage   = 1
	ExitRemote  = 2
	ExitPartial = 3
)

// ExitError carries a process exit code.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the process exit code.
func (e *ExitError) ExitCode() int { return e.Code }

func exitWithCode(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// AppOption customizes App dependencies.
type AppOption func(*App)

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// WithEnv replaces the process environment used to resolve configuration.
func WithEnv(env config.Env) AppOption {
	return func(a *App) {
		if env != nil {
			a.env = env
		}
	}
}

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	env    config.Env
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger zerolog.Logger

	apiKey        string
	baseURL       string
	timeout       time.Duration
	maxRetries    int
	maxConcurrent int
	noCache       bool
	verbose       bool
	metricsAddr   string

	client   *swarms.Client
	metrics  *http.Server
	listener net.Listener
}

// NewApp creates the CLI with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		env:    config.OSEnv,
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.root = a.newRootCommand()
	return a
}

// Execute runs the command tree with args.
func (a *App) Execute(args []string) error {
	a.root.SetArgs(args)
	a.root.SetIn(a.stdin)
	a.root.SetOut(a.stdout)
	a.root.SetErr(a.stderr)
	err := a.root.Execute()
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

// Execute runs swarmsctl with the process arguments.
func Execute() error {
	return NewApp().Execute(os.Args[1:])
}
