package swarms

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kroma-labs/swarms-go/config"
	"github.com/kroma-labs/swarms-go/engine"
	"github.com/kroma-labs/swarms-go/httpclient"
	"github.com/kroma-labs/swarms-go/internal/fakeapi"
)

const testKey = "test-key"

func newFake(t *testing.T, opts ...fakeapi.Option) (*fakeapi.Server, *httptest.Server) {
	t.Helper()
	fake := fakeapi.New(append([]fakeapi.Option{fakeapi.WithAPIKey(testKey)}, opts...)...)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return fake, srv
}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithEnv(config.MapEnv(nil)),
		WithConfigOptions(
			config.WithAPIKey(testKey),
			config.WithBaseURL(baseURL),
			config.WithTimeout(time.Second),
			config.WithRetryDelay(time.Millisecond, 4*time.Millisecond),
			config.WithJitter(false),
		),
	}
	client, err := New(append(base, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		opts    []Option
		wantErr bool
		check   func(t *testing.T, cfg config.ClientConfig)
	}{
		{
			name: "given empty environment, then defaults",
			check: func(t *testing.T, cfg config.ClientConfig) {
				assert.Equal(t, config.DefaultBaseURL, cfg.BaseURL)
				assert.Equal(t, config.DefaultMaxRetries, cfg.MaxRetries)
			},
		},
		{
			name: "given environment, then resolved from it",
			env: map[string]string{
				config.KeyAPIKey:                "env-key",
				config.KeyMaxConcurrentRequests: "7",
			},
			check: func(t *testing.T, cfg config.ClientConfig) {
				assert.Equal(t, "env-key", cfg.APIKey)
				assert.Equal(t, 7, cfg.MaxConcurrentRequests)
			},
		},
		{
			name: "given explicit option and environment, then option wins",
			env:  map[string]string{config.KeyAPIKey: "env-key"},
			opts: []Option{WithAPIKey("explicit"), WithMaxConcurrentRequests(3)},
			check: func(t *testing.T, cfg config.ClientConfig) {
				assert.Equal(t, "explicit", cfg.APIKey)
				assert.Equal(t, 3, cfg.MaxConcurrentRequests)
			},
		},
		{
			name: "given explicit config, then environment ignored",
			env:  map[string]string{config.KeyAPIKey: "env-key"},
			opts: []Option{WithConfig(config.Default()), WithBaseURL(config.AlternateBaseURL)},
			check: func(t *testing.T, cfg config.ClientConfig) {
				assert.Empty(t, cfg.APIKey)
				assert.Equal(t, config.AlternateBaseURL, cfg.BaseURL)
			},
		},
		{
			name:    "given invalid environment, then configuration error",
			env:     map[string]string{config.KeyMaxRetries: "-1"},
			wantErr: true,
		},
		{
			name:    "given invalid explicit config, then configuration error",
			opts:    []Option{WithConfig(config.Default()), WithMaxConcurrentRequests(0)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := New(append([]Option{WithEnv(config.MapEnv(tt.env))}, tt.opts...)...)

			if tt.wantErr {
				var cerr *config.ConfigurationError
				require.ErrorAs(t, err, &cerr)
				assert.Nil(t, client)
				return
			}
			require.NoError(t, err)
			defer client.Close()
			tt.check(t, client.Config())
		})
	}
}

func TestClient_ReadOperations(t *testing.T) {
	fake, srv := newFake(t)
	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	tests := []struct {
		name  string
		call  func() (*engine.Result, error)
		path  string
		field string
	}{
		{
			name:  "given GetHealth, then status ok",
			call:  func() (*engine.Result, error) { return client.GetHealth(ctx) },
			path:  PathHealth,
			field: "status",
		},
		{
			name:  "given GetAvailableModels, then models listed",
			call:  func() (*engine.Result, error) { return client.GetAvailableModels(ctx) },
			path:  PathModelsAvailable,
			field: "models",
		},
		{
			name:  "given GetSwarmTypes, then swarm types listed",
			call:  func() (*engine.Result, error) { return client.GetSwarmTypes(ctx) },
			path:  PathSwarmsAvailable,
			field: "swarm_types",
		},
		{
			name:  "given GetAPILogs, then logs returned",
			call:  func() (*engine.Result, error) { return client.GetAPILogs(ctx) },
			path:  PathAPILogs,
			field: "logs",
		},
		{
			name:  "given GetSwarmLogs, then swarm id echoed",
			call:  func() (*engine.Result, error) { return client.GetSwarmLogs(ctx, "job-1") },
			path:  "/v1/swarm/job-1/logs",
			field: "swarm_id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.call()
			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, 1, res.Attempts)

			var out map[string]any
			require.NoError(t, res.Decode(&out))
			assert.Contains(t, out, tt.field)

			again, err := tt.call()
			require.NoError(t, err)
			assert.True(t, again.Cached)
			assert.Equal(t, 1, fake.Count(tt.path))
		})
	}
}

func TestClient_GetAPILogsQuery(t *testing.T) {
	fake, srv := newFake(t)
	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	_, err := client.GetHealth(ctx)
	require.NoError(t, err)
	_, err = client.GetSwarmTypes(ctx)
	require.NoError(t, err)

	res, err := client.GetAPILogsQuery(ctx, url.Values{"limit": {"1"}})
	require.NoError(t, err)

	var out fakeapi.LogsOutput
	require.NoError(t, res.Decode(&out))
	assert.Equal(t, 1, out.Count)
	assert.Equal(t, 1, fake.Count(PathAPILogs))
}

func TestClient_RunAgent(t *testing.T) {
	fake, srv := newFake(t)
	client := newTestClient(t, srv.URL)
	payload := map[string]any{
		"agent_name": "researcher",
		"model_name": "gpt-4o",
		"task":       "Summarise the latest AI papers",
	}

	for range 2 {
		res, err := client.RunAgent(context.Background(), payload)
		require.NoError(t, err)
		assert.False(t, res.Cached)

		var out fakeapi.AgentOutput
		require.NoError(t, res.Decode(&out))
		assert.Equal(t, "researcher", out.Name)
		assert.Equal(t, "completed: Summarise the latest AI papers", out.Outputs)
	}

	assert.Equal(t, 2, fake.Count(PathAgentCompletions))
	bodies := fake.Bodies(PathAgentCompletions)
	require.Len(t, bodies, 2)
	assert.JSONEq(t, `{"agent_name":"researcher","model_name":"gpt-4o","task":"Summarise the latest AI papers"}`,
		string(bodies[0]))
}

func TestClient_SwarmOperations(t *testing.T) {
	fake, srv := newFake(t)
	client := newTestClient(t, srv.URL)
	ctx := context.Background()
	payload := fakeapi.SwarmSpec{
		Name:      "research-swarm",
		SwarmType: "ConcurrentWorkflow",
		Task:      "Compare vector databases",
		Agents:    []fakeapi.AgentSpec{{AgentName: "analyst"}, {AgentName: "writer"}},
	}

	created, err := client.CreateSwarm(ctx, payload)
	require.NoError(t, err)
	var out fakeapi.SwarmOutput
	require.NoError(t, created.Decode(&out))
	assert.Equal(t, 2, out.NumberOfAgents)
	assert.NotEmpty(t, out.JobID)

	_, err = client.RunSwarm(ctx, payload)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Count(PathSwarmCompletions))

	logs, err := client.GetSwarmLogs(ctx, out.JobID)
	require.NoError(t, err)
	var lo fakeapi.LogsOutput
	require.NoError(t, logs.Decode(&lo))
	assert.Equal(t, out.JobID, lo.SwarmID)
}

func TestClient_RemoteBatches(t *testing.T) {
	fake, srv := newFake(t)
	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	res, err := client.RunAgentBatchRemote(ctx, []any{
		fakeapi.AgentSpec{AgentName: "a", Task: "one"},
		fakeapi.AgentSpec{AgentName: "b", Task: "two"},
	})
	require.NoError(t, err)
	var agents []fakeapi.AgentOutput
	require.NoError(t, res.Decode(&agents))
	require.Len(t, agents, 2)
	assert.Equal(t, "b", agents[1].Name)

	res, err = client.RunSwarmBatchRemote(ctx, []any{fakeapi.SwarmSpec{Name: "s", Task: "t"}})
	require.NoError(t, err)
	var swarms []fakeapi.SwarmOutput
	require.NoError(t, res.Decode(&swarms))
	require.Len(t, swarms, 1)

	assert.Equal(t, 1, fake.Count(PathAgentBatch))
	assert.Equal(t, 1, fake.Count(PathSwarmBatch))
}

func TestClient_RunAgentBatch(t *testing.T) {
	fake, srv := newFake(t, fakeapi.WithLatency(10*time.Millisecond))
	client := newTestClient(t, srv.URL, WithMaxConcurrentRequests(3))

	payloads := make([]any, 12)
	for i := range payloads {
		payloads[i] = map[string]any{"agent_name": "agent", "task": "task"}
	}
	payloads[2] = map[string]any{"agent_name": "broken"}
	payloads[5] = map[string]any{"agent_name": "broken"}

	br := client.RunAgentBatch(context.Background(), payloads)

	require.Len(t, br, len(payloads))
	assert.Equal(t, []int{2, 5}, br.Failed())
	for i, o := range br {
		assert.Equal(t, i, o.Index)
	}
	assert.Equal(t, http.StatusUnprocessableEntity, engine.StatusCode(br[2].Err))

	var perr *engine.PermanentRemoteError
	assert.ErrorAs(t, br[5].Err, &perr)

	assert.LessOrEqual(t, fake.Peak(), 3)
	assert.Equal(t, len(payloads), fake.Count(PathAgentCompletions))
	assert.Zero(t, client.Stats().InFlight)
}

func TestClient_RunSwarmBatch(t *testing.T) {
	_, srv := newFake(t)
	client := newTestClient(t, srv.URL)

	br := client.RunSwarmBatch(context.Background(), []any{
		fakeapi.SwarmSpec{Name: "first", Task: "t"},
		fakeapi.SwarmSpec{Name: "second", Task: "t"},
	})

	require.Empty(t, br.Failed())
	names := make([]string, len(br))
	for i, res := range br.Results() {
		var out fakeapi.SwarmOutput
		require.NoError(t, res.Decode(&out))
		names[i] = out.SwarmName
	}
	assert.Equal(t, []string{"first", "second"}, names)
}

func TestClient_Retries(t *testing.T) {
	tests := []struct {
		name         string
		faults       []fakeapi.Fault
		maxRetries   int
		wantErr      bool
		wantAttempts int
	}{
		{
			name:         "given two transient failures, then recovers on third attempt",
			faults:       []fakeapi.Fault{{Status: 503}, {Status: 429}},
			maxRetries:   3,
			wantAttempts: 3,
		},
		{
			name:         "given persistent 502, then exhausts after max retries plus one",
			faults:       []fakeapi.Fault{{Status: 502}, {Status: 502}, {Status: 502}},
			maxRetries:   2,
			wantErr:      true,
			wantAttempts: 3,
		},
		{
			name:         "given 400, then a single attempt",
			faults:       []fakeapi.Fault{{Status: 400}},
			maxRetries:   3,
			wantErr:      true,
			wantAttempts: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, srv := newFake(t)
			fake.Script(PathHealth, tt.faults...)
			client := newTestClient(t, srv.URL, WithConfigOptions(config.WithMaxRetries(tt.maxRetries)))

			res, err := client.GetHealth(context.Background())

			assert.Equal(t, tt.wantAttempts, fake.Count(PathHealth))
			ids := fake.RequestIDs(PathHealth)
			for _, id := range ids {
				assert.Equal(t, ids[0], id)
			}
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, tt.wantAttempts, res.Attempts)
				assert.Equal(t, ids[0], res.RequestID)
				return
			}
			require.Error(t, err)
		})
	}
}

func TestClient_Unauthorized(t *testing.T) {
	fake, srv := newFake(t)
	client := newTestClient(t, srv.URL, WithAPIKey("wrong"))

	_, err := client.GetHealth(context.Background())

	var perr *engine.PermanentRemoteError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, http.StatusUnauthorized, perr.StatusCode)
	assert.Equal(t, 1, fake.Count(PathHealth))
}

func TestClient_UserAgent(t *testing.T) {
	var (
		mu     sync.Mutex
		agents []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		agents = append(agents, r.UserAgent())
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.GetHealth(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{UserAgent}, agents)
}

func TestClient_InvalidateCache(t *testing.T) {
	fake, srv := newFake(t)
	client := newTestClient(t, srv.URL)
	ctx := context.Background()

	for range 2 {
		_, err := client.GetHealth(ctx)
		require.NoError(t, err)
		_, err = client.GetAvailableModels(ctx)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, client.Stats().CacheEntries)

	health, _ := Descriptor(OpGetHealth, nil)
	require.NoError(t, client.InvalidateCache(ctx, health))
	assert.Equal(t, 1, client.Stats().CacheEntries)

	require.NoError(t, client.InvalidateCache(ctx))
	assert.Zero(t, client.Stats().CacheEntries)

	_, err := client.GetAvailableModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fake.Count(PathModelsAvailable))
}

func TestClient_CacheDisabled(t *testing.T) {
	fake, srv := newFake(t)
	client := newTestClient(t, srv.URL, WithConfigOptions(config.WithCache(false)))

	for range 3 {
		_, err := client.GetHealth(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, 3, fake.Count(PathHealth))
	assert.False(t, client.Stats().CacheEnabled)
}

func TestClient_RedisCache(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	fake, srv := newFake(t)
	first := newTestClient(t, srv.URL, WithEngineOptions(engine.WithStore(engine.NewRedisStore(rdb, time.Minute))))
	second := newTestClient(t, srv.URL, WithEngineOptions(engine.WithStore(engine.NewRedisStore(rdb, time.Minute))))

	_, err = first.GetSwarmTypes(context.Background())
	require.NoError(t, err)
	res, err := second.GetSwarmTypes(context.Background())
	require.NoError(t, err)

	assert.True(t, res.Cached)
	assert.Equal(t, 1, fake.Count(PathSwarmsAvailable))
}

func TestClient_Do(t *testing.T) {
	fake, srv := newFake(t)
	client := newTestClient(t, srv.URL)

	d := engine.Descriptor{
		Operation:   "custom",
		Method:      http.MethodPost,
		Path:        PathAgentCompletions,
		Payload:     map[string]any{"task": "direct"},
		Idempotency: engine.Mutating,
	}
	res, err := client.Do(context.Background(), d)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	fut := client.Submit(context.Background(), d)
	res, err = fut.Result()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	br := client.Batch(context.Background(), []engine.Descriptor{d, d})
	assert.Empty(t, br.Failed())
	assert.Equal(t, 4, fake.Count(PathAgentCompletions))
}

func TestClient_Close(t *testing.T) {
	_, srv := newFake(t, fakeapi.WithLatency(time.Second))
	client := newTestClient(t, srv.URL)

	fut := client.Submit(context.Background(), mustDescriptor(OpRunAgent, map[string]any{"task": "slow"}))
	require.Eventually(t, func() bool { return client.Stats().InFlight == 1 }, time.Second, time.Millisecond)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())

	_, err := fut.Result()
	assert.ErrorIs(t, err, engine.ErrClosed)
	assert.True(t, client.Stats().Closed)
	assert.Zero(t, client.Stats().InFlight)

	_, err = client.GetHealth(context.Background())
	assert.ErrorIs(t, err, engine.ErrClosed)
}

func TestClient_Tracing(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	defer tp.Shutdown(context.Background())

	fake, srv := newFake(t)
	fake.Script(PathHealth, fakeapi.Fault{Status: 503})
	client := newTestClient(t, srv.URL, WithTracerProvider(tp))

	_, err := client.GetHealth(context.Background())
	require.NoError(t, err)

	names := map[string]int{}
	for _, s := range exporter.GetSpans() {
		names[s.Name]++
	}
	assert.Equal(t, 1, names["swarms."+OpGetHealth])
	assert.Equal(t, 2, names["HTTP GET"])
}

func TestClient_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	fake, srv := newFake(t)
	fake.Script(PathHealth, fakeapi.Fault{Status: 503})
	client := newTestClient(t, srv.URL, WithLogger(logger), WithHTTPOptions(httpclient.WithDebug(true)))

	_, err := client.GetHealth(context.Background())
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "retrying operation")
	assert.Contains(t, out, `"operation":"get-health"`)
	assert.NotContains(t, out, testKey)
}

func TestDescriptor(t *testing.T) {
	tests := []struct {
		name     string
		op       string
		wantOK   bool
		wantPath string
		wantIdem engine.Idempotency
	}{
		{
			name:     "given read operation, then idempotent GET",
			op:       OpGetAvailableModels,
			wantOK:   true,
			wantPath: PathModelsAvailable,
			wantIdem: engine.Idempotent,
		},
		{
			name:     "given create-swarm, then mutating POST on swarm completions",
			op:       OpCreateSwarm,
			wantOK:   true,
			wantPath: PathSwarmCompletions,
			wantIdem: engine.Mutating,
		},
		{
			name:   "given unknown operation, then not ok",
			op:     "delete-everything",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := Descriptor(tt.op, nil)
			assert.Equal(t, tt.wantOK, ok)
			if !ok {
				return
			}
			assert.Equal(t, tt.op, d.Operation)
			assert.Equal(t, tt.wantPath, d.Path)
			assert.Equal(t, tt.wantIdem, d.Idempotency)
		})
	}

	assert.Len(t, Operations(), 10)
}

func TestClient_ContextCancel(t *testing.T) {
	_, srv := newFake(t, fakeapi.WithLatency(time.Second))
	client := newTestClient(t, srv.URL)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.RunAgent(ctx, map[string]any{"task": "slow"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled))
	assert.Zero(t, client.Stats().InFlight)
}
