package swarms

import (
	"context"
	"net/url"

	"github.com/kroma-labs/swarms-go/config"
	"github.com/kroma-labs/swarms-go/engine"
	"github.com/kroma-labs/swarms-go/httpclient"
)

// UserAgent is sent with every attempt.
const UserAgent = "swarms-go"

// Client is the public client of the Swarms orchestration API.
//
// A Client owns its connection pool, concurrency slots and cache. Close
// releases all of them:
//
//	client, err := swarms.New(swarms.WithAPIKey(key))
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	res, err := client.RunAgent(ctx, map[string]any{
//	    "agent_name": "researcher",
//	    "task":       "Summarise the latest AI papers",
//	    "model_name": "gpt-4o",
//	})
type Client struct {
	config config.ClientConfig
	http   *httpclient.Client
	engine *engine.Engine
}

// New resolves the configuration and opens a client.
func New(opts ...Option) (*Client, error) {
	o := &options{env: config.OSEnv, serviceName: "swarms"}
	for _, opt := range opts {
		opt(o)
	}

	var (
		cfg config.ClientConfig
		err error
	)
	if o.config != nil {
		cfg = *o.config
		for _, opt := range o.configOptions {
			opt(&cfg)
		}
		err = cfg.Validate()
	} else {
		cfg, err = config.Resolve(o.env, o.configOptions...)
	}
	if err != nil {
		return nil, err
	}

	httpOpts := append([]httpclient.Option{
		httpclient.WithServiceName(o.serviceName),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithAPIKey(cfg.APIKey),
		httpclient.WithRetryableStatus(cfg.RetryableStatus...),
		httpclient.WithRequestInterceptor(httpclient.UserAgentInterceptor(UserAgent)),
		httpclient.WithLogger(o.logger),
	}, o.httpOptions...)
	hc := httpclient.New(httpOpts...)

	engineOpts := append([]engine.Option{engine.WithLogger(o.logger)}, o.engineOptions...)
	e, err := engine.New(hc, cfg, engineOpts...)
	if err != nil {
		return nil, err
	}

	return &Client{config: cfg, http: hc, engine: e}, nil
}

// Config returns the resolved configuration.
func (c *Client) Config() config.ClientConfig {
	return c.config
}

// Engine returns the execution engine.
func (c *Client) Engine() *engine.Engine {
	return c.engine
}

// Close cancels in-flight operations, waits for their slots, closes the
// cache store and idle connections. It is safe to call more than once.
func (c *Client) Close() error {
	err := c.engine.Close()
	c.http.CloseIdleConnections()
	return err
}

// Stats returns the engine state.
func (c *Client) Stats() engine.Stats {
	return c.engine.Stats()
}

// Do executes an arbitrary descriptor and blocks until it is terminal.
func (c *Client) Do(ctx context.Context, d engine.Descriptor) (*engine.Result, error) {
	return c.engine.Execute(ctx, d)
}

// Submit executes d on its own goroutine.
func (c *Client) Submit(ctx context.Context, d engine.Descriptor) *engine.Future {
	return c.engine.Submit(ctx, d)
}

// Batch fans ds out through the shared limiter. Outcomes are in input order.
func (c *Client) Batch(ctx context.Context, ds []engine.Descriptor) engine.BatchResult {
	return c.engine.ExecuteBatch(ctx, ds)
}

// InvalidateCache drops cached results for ds, or every cached result when
// ds is empty.
func (c *Client) InvalidateCache(ctx context.Context, ds ...engine.Descriptor) error {
	if len(ds) == 0 {
		return c.engine.Purge(ctx)
	}
	for _, d := range ds {
		if err := c.engine.Invalidate(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

// GetHealth checks service health.
func (c *Client) GetHealth(ctx context.Context) (*engine.Result, error) {
	return c.Do(ctx, mustDescriptor(OpGetHealth, nil))
}

// GetAvailableModels lists the models agents may use.
func (c *Client) GetAvailableModels(ctx context.Context) (*engine.Result, error) {
	return c.Do(ctx, mustDescriptor(OpGetAvailableModels, nil))
}

// GetSwarmTypes lists the supported swarm architectures.
func (c *Client) GetSwarmTypes(ctx context.Context) (*engine.Result, error) {
	return c.Do(ctx, mustDescriptor(OpGetSwarmTypes, nil))
}

// GetAPILogs returns the request logs of the API key.
func (c *Client) GetAPILogs(ctx context.Context) (*engine.Result, error) {
	return c.Do(ctx, mustDescriptor(OpGetAPILogs, nil))
}

// GetSwarmLogs returns the logs of one swarm run.
func (c *Client) GetSwarmLogs(ctx context.Context, swarmID string) (*engine.Result, error) {
	d := mustDescriptor(OpGetSwarmLogs, nil)
	d.PathParams = map[string]string{"swarm_id": swarmID}
	return c.Do(ctx, d)
}

// GetAPILogsQuery is GetAPILogs with query parameters such as a limit.
func (c *Client) GetAPILogsQuery(ctx context.Context, query url.Values) (*engine.Result, error) {
	d := mustDescriptor(OpGetAPILogs, nil)
	d.Query = query
	return c.Do(ctx, d)
}

// RunAgent runs a single agent completion.
func (c *Client) RunAgent(ctx context.Context, payload any) (*engine.Result, error) {
	return c.Do(ctx, mustDescriptor(OpRunAgent, payload))
}

// CreateSwarm creates and runs a swarm.
func (c *Client) CreateSwarm(ctx context.Context, payload any) (*engine.Result, error) {
	return c.Do(ctx, mustDescriptor(OpCreateSwarm, payload))
}

// RunSwarm runs a swarm completion.
func (c *Client) RunSwarm(ctx context.Context, payload any) (*engine.Result, error) {
	return c.Do(ctx, mustDescriptor(OpRunSwarm, payload))
}

// RunAgentBatch runs one agent completion per payload, concurrently and
// bounded by MaxConcurrentRequests. Outcomes are in payload order.
func (c *Client) RunAgentBatch(ctx context.Context, payloads []any) engine.BatchResult {
	return c.Batch(ctx, descriptors(OpRunAgent, payloads))
}

// RunSwarmBatch runs one swarm completion per payload, concurrently.
func (c *Client) RunSwarmBatch(ctx context.Context, payloads []any) engine.BatchResult {
	return c.Batch(ctx, descriptors(OpRunSwarm, payloads))
}

// RunAgentBatchRemote sends all payloads in one server-side batch call.
func (c *Client) RunAgentBatchRemote(ctx context.Context, payloads []any) (*engine.Result, error) {
	return c.Do(ctx, mustDescriptor(OpRunAgentBatch, payloads))
}

// RunSwarmBatchRemote sends all payloads in one server-side batch call.
func (c *Client) RunSwarmBatchRemote(ctx context.Context, payloads []any) (*engine.Result, error) {
	return c.Do(ctx, mustDescriptor(OpRunSwarmBatch, payloads))
}

func descriptors(name string, payloads []any) []engine.Descriptor {
	ds := make([]engine.Descriptor, len(payloads))
	for i, p := range payloads {
		ds[i] = mustDescriptor(name, p)
	}
	return ds
}
