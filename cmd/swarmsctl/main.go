// Command swarmsctl is a command-line client for the Swarms orchestration API.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/kroma-labs/swarms-go/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "swarmsctl:", err)
		var ee *cli.ExitError
		if errors.As(err, &ee) {
			os.Exit(ee.ExitCode())
		}
		os.Exit(cli.ExitUsage)
	}
}
