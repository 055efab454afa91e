// Package swarms is the client of the Swarms agent orchestration API.
//
// Each method maps to one remote operation and runs through the engine:
// idempotent reads (health, models, swarm types, logs) are cached and
// coalesced, completions always reach the network, and every call is
// retried on transient failures within the configured budget.
//
// Configuration is resolved from SWARMS_API_* environment variables unless
// given explicitly:
//
//	client, err := swarms.New(
//	    swarms.WithAPIKey(os.Getenv("SWARMS_API_KEY")),
//	    swarms.WithMaxConcurrentRequests(20),
//	)
//
// Client-side batches preserve input order and isolate failures:
//
//	br := client.RunAgentBatch(ctx, payloads)
//	for i, o := range br {
//	    if o.Err != nil {
//	        log.Printf("agent %d failed: %v", i, o.Err)
//	    }
//	}
package swarms
