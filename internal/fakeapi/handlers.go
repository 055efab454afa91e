package fakeapi

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Models is the list served by /v1/models/available.
var Models = []string{"gpt-4o", "gpt-4o-mini", "claude-3-5-sonnet", "llama-3.1-70b"}

// SwarmTypes is the list served by /v1/swarms/available.
var SwarmTypes = []string{
	"AgentRearrange",
	"MixtureOfAgents",
	"SpreadSheetSwarm",
	"SequentialWorkflow",
	"ConcurrentWorkflow",
	"GroupChat",
	"MultiAgentRouter",
	"AutoSwarmBuilder",
	"HiearchicalSwarm",
	"auto",
	"MajorityVoting",
}

// AgentSpec is the subset of an agent completion request the fake reads.
type AgentSpec struct {
	AgentName string `json:"agent_name"`
	ModelName string `json:"model_name"`
	Task      string `json:"task"`
}

// AgentOutput is the reply to one agent completion.
type AgentOutput struct {
	ID        string    `json:"id"`
	Success   bool      `json:"success"`
	Name      string    `json:"name"`
	Model     string    `json:"model_name"`
	Outputs   string    `json:"outputs"`
	Timestamp time.Time `json:"timestamp"`
}

// SwarmSpec is the subset of a swarm completion request the fake reads.
type SwarmSpec struct {
	Name      string      `json:"name"`
	SwarmType string      `json:"swarm_type"`
	Task      string      `json:"task"`
	Agents    []AgentSpec `json:"agents"`
}

// SwarmOutput is the reply to one swarm completion.
type SwarmOutput struct {
	JobID           string        `json:"job_id"`
	Status          string        `json:"status"`
	SwarmName       string        `json:"swarm_name"`
	SwarmType       string        `json:"swarm_type"`
	Task            string        `json:"task"`
	Output          []AgentOutput `json:"output"`
	NumberOfAgents  int           `json:"number_of_agents"`
	ExecutionTimeMS int64         `json:"execution_time_ms"`
}

// LogsOutput is the reply of both log endpoints.
type LogsOutput struct {
	Status  string           `json:"status"`
	SwarmID string           `json:"swarm_id,omitempty"`
	Count   int              `json:"count"`
	Logs    []map[string]any `json:"logs"`
}

func (s *Server) routes(r chi.Router) {
	r.Get("/health", s.health)
	r.Get("/v1/models/available", s.models)
	r.Get("/v1/swarms/available", s.swarmTypes)
	r.Get("/v1/swarm/logs", s.apiLogs)
	r.Get("/v1/swarm/{swarm_id}/logs", s.swarmLogs)
	r.Post("/v1/agent/completions", s.agentCompletion)
	r.Post("/v1/agent/batch/completions", s.agentBatch)
	r.Post("/v1/swarm/completions", s.swarmCompletion)
	r.Post("/v1/swarm/batch/completions", s.swarmBatch)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) models(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "models": Models})
}

func (s *Server) swarmTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "swarm_types": SwarmTypes})
}

func (s *Server) apiLogs(w http.ResponseWriter, r *http.Request) {
	count := s.Total()
	if limit, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && limit >= 0 {
		count = min(count, limit)
	}
	logs := make([]map[string]any, count)
	for i := range logs {
		logs[i] = map[string]any{"index": i}
	}
	writeJSON(w, http.StatusOK, LogsOutput{Status: "success", Count: count, Logs: logs})
}

func (s *Server) swarmLogs(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "swarm_id")
	writeJSON(w, http.StatusOK, LogsOutput{
		Status:  "success",
		SwarmID: id,
		Logs:    []map[string]any{},
	})
}

func (s *Server) agentCompletion(w http.ResponseWriter, r *http.Request) {
	var spec AgentSpec
	if !s.decode(w, r, &spec) {
		return
	}
	if spec.Task == "" {
		writeError(w, http.StatusUnprocessableEntity, "task is required")
		return
	}
	writeJSON(w, http.StatusOK, runAgent(spec))
}

func (s *Server) agentBatch(w http.ResponseWriter, r *http.Request) {
	var specs []AgentSpec
	if !s.decode(w, r, &specs) {
		return
	}
	out := make([]AgentOutput, len(specs))
	for i, spec := range specs {
		out[i] = runAgent(spec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) swarmCompletion(w http.ResponseWriter, r *http.Request) {
	var spec SwarmSpec
	if !s.decode(w, r, &spec) {
		return
	}
	if spec.Task == "" {
		writeError(w, http.StatusUnprocessableEntity, "task is required")
		return
	}
	writeJSON(w, http.StatusOK, runSwarm(spec))
}

func (s *Server) swarmBatch(w http.ResponseWriter, r *http.Request) {
	var specs []SwarmSpec
	if !s.decode(w, r, &specs) {
		return
	}
	out := make([]SwarmOutput, len(specs))
	for i, spec := range specs {
		out[i] = runSwarm(spec)
	}
	writeJSON(w, http.StatusOK, out)
}

// decode reads and records the body, then unmarshals it into v. It writes
// a 422 and returns false when the body is not valid JSON.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return false
	}
	s.record(r.URL.Path, body)

	if err := json.Unmarshal(body, v); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid JSON body")
		return false
	}
	return true
}

func runAgent(spec AgentSpec) AgentOutput {
	return AgentOutput{
		ID:        uuid.New().String(),
		Success:   true,
		Name:      spec.AgentName,
		Model:     spec.ModelName,
		Outputs:   "completed: " + spec.Task,
		Timestamp: time.Now().UTC(),
	}
}

func runSwarm(spec SwarmSpec) SwarmOutput {
	out := SwarmOutput{
		JobID:          uuid.New().String(),
		Status:         "success",
		SwarmName:      spec.Name,
		SwarmType:      spec.SwarmType,
		Task:           spec.Task,
		NumberOfAgents: len(spec.Agents),
		Output:         make([]AgentOutput, len(spec.Agents)),
	}
	for i, agent := range spec.Agents {
		if agent.Task == "" {
			agent.Task = spec.Task
		}
		out.Output[i] = runAgent(agent)
	}
	return out
}
