package cli

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kroma-labs/swarms-go/config"
	"github.com/kroma-labs/swarms-go/internal/fakeapi"
	"github.com/kroma-labs/swarms-go/swarms"
)

const testKey = "cli-key"

type run struct {
	stdout string
	stderr string
	err    error
}

func newFake(t *testing.T) (*fakeapi.Server, string) {
	t.Helper()
	fake := fakeapi.New(fakeapi.WithAPIKey(testKey))
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv.URL
}

func execute(t *testing.T, env map[string]string, stdin string, args ...string) run {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := NewApp(
		WithIO(strings.NewReader(stdin), &stdout, &stderr),
		WithEnv(config.MapEnv(env)),
	)
	err := app.Execute(args)
	return run{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestCommands_Reads(t *testing.T) {
	_, baseURL := newFake(t)

	tests := []struct {
		name      string
		args      []string
		wantField string
	}{
		{
			name:      "given health, then prints status",
			args:      []string{"health"},
			wantField: `"status": "ok"`,
		},
		{
			name:      "given models, then prints models",
			args:      []string{"models"},
			wantField: `"models"`,
		},
		{
			name:      "given swarm-types, then prints swarm types",
			args:      []string{"swarm-types"},
			wantField: `"swarm_types"`,
		},
		{
			name:      "given logs, then prints API logs",
			args:      []string{"logs"},
			wantField: `"logs"`,
		},
		{
			name:      "given logs with swarm id, then prints swarm logs",
			args:      []string{"logs", "--swarm-id", "job-9"},
			wantField: `"swarm_id": "job-9"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--base-url", baseURL, "--api-key", testKey}, tt.args...)
			r := execute(t, nil, "", args...)

			require.NoError(t, r.err)
			assert.Contains(t, r.stdout, tt.wantField)
		})
	}
}

func TestCommands_EnvironmentConfig(t *testing.T) {
	fake, baseURL := newFake(t)
	env := map[string]string{
		config.KeyAPIKey:  testKey,
		config.KeyBaseURL: baseURL,
	}

	r := execute(t, env, "", "health")

	require.NoError(t, r.err)
	assert.Equal(t, 1, fake.Count(swarms.PathHealth))
}

func TestCommands_RunAgent(t *testing.T) {
	fake, baseURL := newFake(t)
	payload := `{"agent_name":"researcher","task":"summarise"}`

	t.Run("given payload file, then posts it", func(t *testing.T) {
		path := writeFile(t, "agent.json", payload)
		r := execute(t, nil, "", "--base-url", baseURL, "--api-key", testKey, "run-agent", "--file", path)

		require.NoError(t, r.err)
		assert.Contains(t, r.stdout, `"outputs": "completed: summarise"`)
	})

	t.Run("given payload on stdin, then posts it", func(t *testing.T) {
		r := execute(t, nil, payload, "--base-url", baseURL, "--api-key", testKey, "run-agent", "-f", "-")

		require.NoError(t, r.err)
		assert.Contains(t, r.stdout, `"name": "researcher"`)
	})

	t.Run("given invalid JSON, then usage error", func(t *testing.T) {
		r := execute(t, nil, "{", "--base-url", baseURL, "--api-key", testKey, "run-agent", "-f", "-")

		var ee *ExitError
		require.ErrorAs(t, r.err, &ee)
		assert.Equal(t, ExitUsage, ee.ExitCode())
	})

	bodies := fake.Bodies(swarms.PathAgentCompletions)
	require.Len(t, bodies, 2)
	assert.JSONEq(t, payload, string(bodies[0]))
}

func TestCommands_CreateSwarm(t *testing.T) {
	_, baseURL := newFake(t)
	path := writeFile(t, "swarm.json",
		`{"name":"s","swarm_type":"SequentialWorkflow","task":"t","agents":[{"agent_name":"a"}]}`)

	r := execute(t, nil, "", "--base-url", baseURL, "--api-key", testKey, "create-swarm", "--file", path)

	require.NoError(t, r.err)
	assert.Contains(t, r.stdout, `"swarm_type": "SequentialWorkflow"`)
}

func TestCommands_RemoteErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
	}{
		{
			name:     "given wrong API key, then remote exit code",
			args:     []string{"--api-key", "wrong", "health"},
			wantCode: ExitRemote,
		},
		{
			name:     "given invalid max-concurrent, then usage exit code",
			args:     []string{"--api-key", testKey, "--max-concurrent", "0", "health"},
			wantCode: ExitUsage,
		},
	}

	_, baseURL := newFake(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := execute(t, nil, "", append([]string{"--base-url", baseURL}, tt.args...)...)

			var ee *ExitError
			require.ErrorAs(t, r.err, &ee)
			assert.Equal(t, tt.wantCode, ee.ExitCode())
		})
	}
}

func TestCommands_Batch(t *testing.T) {
	fake, baseURL := newFake(t)
	manifest := `
- operation: get-health
- operation: run-agent
  payload:
    agent_name: researcher
    task: summarise
- operation: run-agent
  payload:
    agent_name: broken
- operation: get-swarm-logs
  path_params:
    swarm_id: job-3
- operation: list-models
  method: GET
  path: /v1/models/available
`
	path := writeFile(t, "manifest.yaml", manifest)

	r := execute(t, nil, "", "--base-url", baseURL, "--api-key", testKey, "--max-concurrent", "2",
		"batch", "--file", path)

	var ee *ExitError
	require.ErrorAs(t, r.err, &ee)
	assert.Equal(t, ExitPartial, ee.ExitCode())

	var lines []batchLine
	require.NoError(t, json.Unmarshal([]byte(r.stdout), &lines))
	require.Len(t, lines, 5)

	ops := make([]string, len(lines))
	for i, l := range lines {
		assert.Equal(t, i, l.Index)
		ops[i] = l.Operation
	}
	assert.Equal(t, []string{"get-health", "run-agent", "run-agent", "get-swarm-logs", "list-models"}, ops)
	assert.Equal(t, http.StatusUnprocessableEntity, lines[2].Status)
	assert.NotEmpty(t, lines[2].Error)
	assert.Equal(t, http.StatusOK, lines[3].Status)
	assert.Equal(t, 1, fake.Count("/v1/swarm/job-3/logs"))
}

func TestParseManifest(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
		check   func(t *testing.T, m Manifest)
	}{
		{
			name: "given known operations, then descriptors from the catalogue",
			data: "- operation: get-health\n- operation: create-swarm\n  payload: {task: t}\n",
			check: func(t *testing.T, m Manifest) {
				ds, err := m.Descriptors()
				require.NoError(t, err)
				assert.Equal(t, swarms.PathHealth, ds[0].Path)
				assert.Equal(t, http.MethodPost, ds[1].Method)
				assert.Equal(t, map[string]any{"task": "t"}, ds[1].Payload)
			},
		},
		{
			name: "given custom GET with query, then idempotent",
			data: "- operation: logs\n  path: /v1/swarm/logs\n  query: {limit: \"5\"}\n",
			check: func(t *testing.T, m Manifest) {
				ds, err := m.Descriptors()
				require.NoError(t, err)
				assert.Equal(t, "5", ds[0].Query.Get("limit"))
				assert.Equal(t, "idempotent", ds[0].Idempotency.String())
			},
		},
		{
			name: "given custom operation without path, then error",
			data: "- operation: mystery\n",
			check: func(t *testing.T, m Manifest) {
				_, err := m.Descriptors()
				assert.ErrorContains(t, err, "manifest item 0")
			},
		},
		{
			name:    "given empty manifest, then error",
			data:    "[]",
			wantErr: ErrEmptyManifest.Error(),
		},
		{
			name:    "given malformed YAML, then parse error",
			data:    "- operation: [",
			wantErr: "parse manifest",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := ParseManifest([]byte(tt.data))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, m)
		})
	}
}

func TestMetricsHandler(t *testing.T) {
	client, err := swarms.New(
		swarms.WithEnv(config.MapEnv(nil)),
		swarms.WithMaxConcurrentRequests(7),
	)
	require.NoError(t, err)
	defer client.Close()

	h, err := metricsHandler(client.Engine())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "swarms_client_capacity_slots 7")
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestIndent(t *testing.T) {
	assert.Equal(t, "{\n  \"a\": 1\n}\n", string(indent([]byte(`{"a":1}`))))
	assert.Equal(t, "plain text\n", string(indent([]byte("plain text"))))
}
