package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"weather-a2a/internal/config"
	"weather-a2a/internal/llm"
	"weather-a2a/internal/mcp"
	"weather-a2a/internal/storage"
)

// RunRecorder persists completed generations.
type RunRecorder interface {
	SaveRun(ctx context.Context, run *storage.Run) error
}

// Registry holds the agents of the runtime. It is read-only once built.
type Registry struct {
	agents  map[string]Agent
	infos   []Info
	clients []mcp.Client
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{agents: make(map[string]Agent)}
}

// Register adds an agent under info.ID, replacing any previous one.
func (r *Registry) Register(info Info, a Agent) {
	if _, exists := r.agents[info.ID]; !exists {
		r.infos = append(r.infos, info)
	} else {
		for i := range r.infos {
			if r.infos[i].ID == info.ID {
				r.infos[i] = info
			}
		}
	}
	r.agents[info.ID] = a
}

// Lookup returns the agent registered under id.
func (r *Registry) Lookup(id string) (Agent, bool) {
	a, ok := r.agents[id]
	return a, ok
}

// Describe lists registered agents in registration order.
func (r *Registry) Describe() []Info {
	out := make([]Info, len(r.infos))
	copy(out, r.infos)
	return out
}

// Close stops the MCP clients owned by the registry.
func (r *Registry) Close() error {
	var errs []error
	for _, c := range r.clients {
		if err := c.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromConfig builds a registry from cfg, connecting each agent to its MCP
// servers. When recorder is non-nil every generation is stored as a run.
func FromConfig(ctx context.Context, cfg *config.Config, recorder RunRecorder, logger *slog.Logger) (*Registry, error) {
	r := NewRegistry()

	for _, ac := range cfg.Agents {
		info := Info{
			ID:          ac.ID,
			Name:        ac.Name,
			Description: ac.Description,
			Model:       ac.Model,
			URL:         ac.URL,
			Tools:       []string{},
		}

		var a Agent
		if ac.URL != "" {
			a = NewRemoteAgent(ac.URL)
		} else {
			model, err := llm.NewClient(ac.Model)
			if err != nil {
				r.Close()
				return nil, fmt.Errorf("agent %q: %w", ac.ID, err)
			}

			servers := make([]mcp.ServerConfig, 0, len(ac.Tools))
			for _, name := range ac.Tools {
				sc, _ := cfg.MCPServer(name)
				servers = append(servers, mcp.ServerConfig{Name: sc.Name, URL: sc.URL})
			}
			tools := mcp.NewClient(servers)
			if err := tools.Start(ctx); err != nil {
				r.Close()
				return nil, fmt.Errorf("agent %q: %w", ac.ID, err)
			}
			r.clients = append(r.clients, tools)

			for _, t := range tools.Tools() {
				info.Tools = append(info.Tools, t.Name)
			}
			a = NewLLMAgent(ac.Instructions, model, tools, ac.MaxSteps)
		}

		if recorder != nil {
			a = Recorded(ac.ID, a, recorder, logger)
		}
		r.Register(info, a)
		logger.Info("agent registered", "agent", ac.ID, "tools", info.Tools, "remote", ac.URL != "")
	}

	return r, nil
}

// recordedAgent stores every generation of the wrapped agent.
type recordedAgent struct {
	id       string
	agent    Agent
	recorder RunRecorder
	logger   *slog.Logger
	newID    func() string
	now      func() time.Time
}

// Recorded wraps a so that each Generate call is saved through recorder.
// Recording failures are logged and never fail the generation.
func Recorded(id string, a Agent, recorder RunRecorder, logger *slog.Logger) Agent {
	return &recordedAgent{
		id:       id,
		agent:    a,
		recorder: recorder,
		logger:   logger,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

func (r *recordedAgent) Generate(ctx context.Context, messages []Message) (*Reply, error) {
	started := r.now()
	reply, genErr := r.agent.Generate(ctx, messages)

	run := &storage.Run{
		ID:          r.newID(),
		AgentID:     r.id,
		Status:      storage.StatusCompleted,
		CreatedAt:   started,
		CompletedAt: r.now(),
	}
	run.Input, _ = json.Marshal(messages)
	if genErr != nil {
		run.Status = storage.StatusFailed
		run.Error = genErr.Error()
	} else {
		run.Output = reply.Text
		if len(reply.ToolResults) > 0 {
			run.ToolResults, _ = json.Marshal(reply.ToolResults)
		}
	}

	// The run is stored even if the caller's context is already done.
	saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := r.recorder.SaveRun(saveCtx, run); err != nil {
		r.logger.Error("failed to record run", "agent", r.id, "run", run.ID, "error", err)
	}

	return reply, genErr
}
