package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/kroma-labs/swarms-go/engine"
)

func (a *App) newHealthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check service health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.print(a.client.GetHealth(cmd.Context()))
		},
	}
}

func (a *App) newModelsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List available models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.print(a.client.GetAvailableModels(cmd.Context()))
		},
	}
}

func (a *App) newSwarmTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "swarm-types",
		Short: "List supported swarm architectures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.print(a.client.GetSwarmTypes(cmd.Context()))
		},
	}
}

func (a *App) newLogsCommand() *cobra.Command {
	var swarmID string
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show API request logs, or the logs of one swarm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if swarmID != "" {
				return a.print(a.client.GetSwarmLogs(cmd.Context(), swarmID))
			}
			return a.print(a.client.GetAPILogs(cmd.Context()))
		},
	}
	cmd.Flags().StringVar(&swarmID, "swarm-id", "", "swarm run ID")
	return cmd
}

func (a *App) newRunAgentCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "run-agent",
		Short: "Run an agent completion",
		Long: `Run an agent completion from a JSON payload.

Examples:
  swarmsctl run-agent --file agent.json
  echo '{"agent_name":"a","task":"t"}' | swarmsctl run-agent --file -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := a.readPayload(file)
			if err != nil {
				return err
			}
			return a.print(a.client.RunAgent(cmd.Context(), payload))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON payload file, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *App) newCreateSwarmCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "create-swarm",
		Short: "Create and run a swarm",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			payload, err := a.readPayload(file)
			if err != nil {
				return err
			}
			return a.print(a.client.CreateSwarm(cmd.Context(), payload))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON payload file, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *App) newBatchCommand() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run the operations of a YAML manifest concurrently",
		Long: `Run every operation listed in a YAML manifest through the batch
coordinator. Results are printed as a JSON array in manifest order.

Manifest:
  - operation: run-agent
    payload:
      agent_name: researcher
      task: Summarise the latest AI papers
  - operation: get-swarm-logs
    path_params:
      swarm_id: job-42
  - operation: custom
    method: GET
    path: /v1/models/available`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := a.readFile(file)
			if err != nil {
				return err
			}
			m, err := ParseManifest(data)
			if err != nil {
				return exitWithCode(ExitUsage, err)
			}
			ds, err := m.Descriptors()
			if err != nil {
				return exitWithCode(ExitUsage, err)
			}
			return a.printBatch(ds, a.client.Batch(cmd.Context(), ds))
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML manifest file, - for stdin")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func (a *App) readFile(name string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if name == "-" {
		data, err = io.ReadAll(a.stdin)
	} else {
		data, err = os.ReadFile(name)
	}
	if err != nil {
		return nil, exitWithCode(ExitUsage, fmt.Errorf("read %s: %w", name, err))
	}
	return data, nil
}

func (a *App) readPayload(name string) (json.RawMessage, error) {
	data, err := a.readFile(name)
	if err != nil {
		return nil, err
	}
	if !json.Valid(data) {
		return nil, exitWithCode(ExitUsage, fmt.Errorf("%s: payload is not valid JSON", name))
	}
	return json.RawMessage(data), nil
}

func (a *App) print(res *engine.Result, err error) error {
	if err != nil {
		return remote(err)
	}
	a.logger.Debug().
		Str("request_id", res.RequestID).
		Int("attempts", res.Attempts).
		Bool("cached", res.Cached).
		Dur("duration", res.Duration).
		Msg("operation completed")
	_, err = a.stdout.Write(indent(res.Body))
	return err
}

// batchLine is one entry of the batch output.
type batchLine struct {
	Index     int             `json:"index"`
	Operation string          `json:"operation"`
	Status    int             `json:"status,omitempty"`
	RequestID string          `json:"request_id,omitempty"`
	Attempts  int             `json:"attempts,omitempty"`
	Cached    bool            `json:"cached,omitempty"`
	Body      json.RawMessage `json:"body,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (a *App) printBatch(ds []engine.Descriptor, br engine.BatchResult) error {
	lines := make([]batchLine, len(br))
	for i, o := range br {
		line := batchLine{Index: o.Index, Operation: ds[i].Operation}
		if o.Err != nil {
			line.Status = engine.StatusCode(o.Err)
			line.Error = o.Err.Error()
		} else {
			line.Status = o.Result.StatusCode
			line.RequestID = o.Result.RequestID
			line.Attempts = o.Result.Attempts
			line.Cached = o.Result.Cached
			if json.Valid(o.Result.Body) {
				line.Body = o.Result.Body
			}
		}
		lines[i] = line
	}

	out, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	if _, err := a.stdout.Write(indent(out)); err != nil {
		return err
	}

	if failed := br.Failed(); len(failed) > 0 {
		return exitWithCode(ExitPartial, fmt.Errorf("%d of %d operations failed: %v", len(failed), len(br), failed))
	}
	return nil
}

// indent pretty-prints JSON bodies and passes anything else through.
func indent(body []byte) []byte {
	body = bytes.TrimSpace(body)
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		buf.Reset()
		buf.Write(body)
	}
	if buf.Len() == 0 || buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

