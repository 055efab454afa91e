package swarms

import (
	"net/http"

	"github.com/kroma-labs/swarms-go/engine"
)

// Operation names, used as span names, metric labels and log fields.
const (
	OpGetHealth          = "get-health"
	OpGetAvailableModels = "get-available-models"
	OpGetSwarmTypes      = "get-swarm-types"
	OpGetAPILogs         = "get-api-logs"
	OpGetSwarmLogs       = "get-swarm-logs"
	OpRunAgent           = "run-agent"
	OpRunAgentBatch      = "run-agent-batch"
	OpCreateSwarm        = "create-swarm"
	OpRunSwarm           = "run-swarm"
	OpRunSwarmBatch      = "run-swarm-batch"
)

// Endpoint paths.
const (
	PathHealth           = "/health"
	PathModelsAvailable  = "/v1/models/available"
	PathSwarmsAvailable  = "/v1/swarms/available"
	PathAPILogs          = "/v1/swarm/logs"
	PathSwarmLogs        = "/v1/swarm/{swarm_id}/logs"
	PathAgentCompletions = "/v1/agent/completions"
	PathAgentBatch       = "/v1/agent/batch/completions"
	PathSwarmCompletions = "/v1/swarm/completions"
	PathSwarmBatch       = "/v1/swarm/batch/completions"
)

type operation struct {
	method      string
	path        string
	idempotency engine.Idempotency
}

var operations = map[string]operation{
	OpGetHealth:          {http.MethodGet, PathHealth, engine.Idempotent},
	OpGetAvailableModels: {http.MethodGet, PathModelsAvailable, engine.Idempotent},
	OpGetSwarmTypes:      {http.MethodGet, PathSwarmsAvailable, engine.Idempotent},
	OpGetAPILogs:         {http.MethodGet, PathAPILogs, engine.Idempotent},
	OpGetSwarmLogs:       {http.MethodGet, PathSwarmLogs, engine.Idempotent},
	OpRunAgent:           {http.MethodPost, PathAgentCompletions, engine.Mutating},
	OpRunAgentBatch:      {http.MethodPost, PathAgentBatch, engine.Mutating},
	OpCreateSwarm:        {http.MethodPost, PathSwarmCompletions, engine.Mutating},
	OpRunSwarm:           {http.MethodPost, PathSwarmCompletions, engine.Mutating},
	OpRunSwarmBatch:      {http.MethodPost, PathSwarmBatch, engine.Mutating},
}

// Descriptor returns the descriptor of a named operation. ok is false for
// unknown names.
func Descriptor(name string, payload any) (d engine.Descriptor, ok bool) {
	op, ok := operations[name]
	if !ok {
		return engine.Descriptor{}, false
	}
	return engine.Descriptor{
		Operation:   name,
		Method:      op.method,
		Path:        op.path,
		Payload:     payload,
		Idempotency: op.idempotency,
	}, true
}

// Operations lists every known operation name.
func Operations() []string {
	names := make([]string, 0, len(operations))
	for name := range operations {
		names = append(names, name)
	}
	return names
}

func mustDescriptor(name string, payload any) engine.Descriptor {
	d, _ := Descriptor(name, payload)
	return d
}
