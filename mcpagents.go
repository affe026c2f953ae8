// Package mcpagents provides a high-level façade that wires MCP servers,
// tool transformations and LLM-driven agents together. Most applications
// interact with this package by:
//  1. Loading a config document (config.Load) or building agents by hand
//  2. Creating a Runtime via FromConfig or New and registering agents
//  3. Invoking agents by name (Invoke) or serving them over MCP (Proxy)
//
// The façade delegates orchestration to the agent and flow packages while
// keeping setup concise. Defaults are safe for local development: in-memory
// conversation storage and a no-op logger.
package mcpagents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/mcpagents/agent"
	"github.com/hupe1980/mcpagents/config"
	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/logging"
	"github.com/hupe1980/mcpagents/mcp"
	"github.com/hupe1980/mcpagents/memory"
	"github.com/hupe1980/mcpagents/model"
	anthropicmodel "github.com/hupe1980/mcpagents/model/anthropic"
	openaimodel "github.com/hupe1980/mcpagents/model/openai"
	"github.com/hupe1980/mcpagents/tool"
	"github.com/hupe1980/mcpagents/transform"
)

// ErrAgentNotFound is returned when invoking an unregistered agent.
var ErrAgentNotFound = errors.New("agent not found")

// Connector opens the MCP client for a configured server.
type Connector func(ctx context.Context, name string, cfg config.ServerConfig) (*mcp.Client, error)

// StdioConnector launches the server process described by cfg.
func StdioConnector(logger logging.Logger) Connector {
	return func(ctx context.Context, name string, cfg config.ServerConfig) (*mcp.Client, error) {
		return mcp.NewStdioClient(ctx, mcp.ClientConfig{
			ServerName: name,
			Command:    cfg.Command,
			Args:       cfg.Args,
			Env:        cfg.EnvList(),
			Timeout:    cfg.Timeout,
			Logger:     logger,
		})
	}
}

// RemoteConnector connects to the server at cfg.URL.
func RemoteConnector(logger logging.Logger) Connector {
	return func(ctx context.Context, name string, cfg config.ServerConfig) (*mcp.Client, error) {
		transport := mcp.TransportStreamableHTTP
		if cfg.Transport == config.TransportSSE {
			transport = mcp.TransportSSE
		}

		return mcp.NewRemoteClient(ctx, mcp.RemoteConfig{
			ServerName: name,
			URL:        cfg.URL,
			Transport:  transport,
			Headers:    cfg.Headers,
			Timeout:    cfg.Timeout,
			Logger:     logger,
		})
	}
}

// DefaultConnector dispatches on the configured transport. SSE sessions
// live as long as the context passed to the connector.
func DefaultConnector(logger logging.Logger) Connector {
	stdio, remote := StdioConnector(logger), RemoteConnector(logger)

	return func(ctx context.Context, name string, cfg config.ServerConfig) (*mcp.Client, error) {
		if cfg.Remote() {
			return remote(ctx, name, cfg)
		}
		return stdio(ctx, name, cfg)
	}
}

// Options configures a Runtime.
type Options struct {
	// Model overrides the LLM built from the config document.
	Model model.Model

	// Hooks resolves pre_call_hook and post_call_hook ids of tool overrides.
	Hooks *transform.HookRegistry

	// Memory holds shared conversations keyed by agent name.
	Memory *memory.Store

	// Connector opens backend servers. Defaults to DefaultConnector.
	Connector Connector

	Logger logging.Logger
	Tracer trace.Tracer
}

// Runtime aggregates agents, the tools they run on and the backend
// connections that serve those tools.
type Runtime struct {
	opts Options

	mu      sync.RWMutex
	agents  map[string]*agent.Agent
	exposed []tool.Tool
	clients []*mcp.Client
}

// New creates an empty Runtime. Unset services are replaced by in-memory
// defaults.
func New(optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Hooks:  transform.NewHookRegistry(),
		Memory: memory.NewStore(),
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Hooks == nil {
		opts.Hooks = transform.NewHookRegistry()
	}
	if opts.Memory == nil {
		opts.Memory = memory.NewStore()
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Connector == nil {
		opts.Connector = DefaultConnector(opts.Logger)
	}

	return &Runtime{opts: opts, agents: map[string]*agent.Agent{}}
}

// NewModel builds the LLM link selected by cfg.
func NewModel(cfg config.LLMConfig) (model.Model, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return openaimodel.NewModel(func(o *openaimodel.Options) {
			if cfg.Model != "" {
				o.Model = cfg.Model
			}
			if cfg.Temperature != 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens != 0 {
				o.MaxCompletionTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
		}), nil
	case config.ProviderAnthropic:
		return anthropicmodel.NewModel(func(o *anthropicmodel.Options) {
			if cfg.Model != "" {
				o.Model = anthropic.Model(cfg.Model)
			}
			if cfg.Temperature != 0 {
				o.Temperature = cfg.Temperature
			}
			if cfg.MaxTokens != 0 {
				o.MaxTokens = cfg.MaxTokens
			}
			o.APIKey = cfg.APIKey
		}), nil
	default:
		return nil, core.NewConfigurationError("", "llm.provider", nil, fmt.Sprintf("unknown provider %q", cfg.Provider))
	}
}

// FromConfig connects every configured server, transforms its tools and
// builds the configured agents. Connections opened before a failure are
// closed again.
func FromConfig(ctx context.Context, cfg *config.Config, optFns ...func(o *Options)) (*Runtime, error) {
	r := New(optFns...)

	llm := r.opts.Model
	if llm == nil {
		m, err := NewModel(cfg.LLM)
		if err != nil {
			return nil, err
		}
		llm = m
	}

	if err := r.build(ctx, cfg, llm); err != nil {
		_ = r.Close()
		return nil, err
	}

	return r, nil
}

func (r *Runtime) build(ctx context.Context, cfg *config.Config, llm model.Model) error {
	byServer := map[string][]tool.Tool{}
	byName := map[string]tool.Tool{}
	owner := map[string]string{}

	for _, name := range cfg.ServerNames() {
		srv := cfg.Servers[name]

		c, err := r.opts.Connector(ctx, name, srv)
		if err != nil {
			return fmt.Errorf("connect server %s: %w", name, err)
		}
		r.clients = append(r.clients, c)

		remote, err := c.ListTools(ctx)
		if err != nil {
			return fmt.Errorf("list tools of %s: %w", name, err)
		}

		tools, err := transform.TransformAll(remote, srv.ToolOverrides, r.opts.Hooks)
		if err != nil {
			return fmt.Errorf("transform tools of %s: %w", name, err)
		}

		byServer[name] = tools
		for _, t := range tools {
			if prev, ok := owner[t.Name()]; ok {
				return core.NewConfigurationError(t.Name(), "", core.ErrDuplicateTool,
					fmt.Sprintf("tool is provided by servers %s and %s", prev, name))
			}
			owner[t.Name()] = name
			byName[t.Name()] = t
		}

		r.opts.Logger.Info("server.connected", "server", name, "tools", len(tools))
	}

	for _, ac := range cfg.Agents {
		servers := ac.Servers
		if len(servers) == 0 {
			servers = cfg.ServerNames()
		}

		var tools []tool.Tool
		for _, s := range servers {
			tools = append(tools, byServer[s]...)
		}

		a, err := r.newAgent(ac, llm, tools)
		if err != nil {
			return err
		}

		if err := r.RegisterAgent(a); err != nil {
			return err
		}
	}

	for _, name := range cfg.ExposeTools {
		t, ok := byName[name]
		if !ok {
			return core.NewConfigurationError(name, "", core.ErrToolNotFound, "exposed tool is not provided by any server")
		}
		r.AddTools(t)
	}

	return nil
}

func (r *Runtime) newAgent(ac config.AgentConfig, llm model.Model, tools []tool.Tool) (*agent.Agent, error) {
	policy, err := memory.ParsePolicy(ac.Memory)
	if err != nil {
		return nil, core.NewConfigurationError(ac.Name, "memory", err, "")
	}

	return agent.New(ac.Name, llm, tools, func(o *agent.Options) {
		o.Description = ac.Description
		if ac.Instructions != "" {
			o.Instructions = agent.NewInstructionFromText(ac.Instructions)
		}
		if ac.SystemPrompt != "" {
			o.SystemPrompt = ac.SystemPrompt
		}
		o.AllowedTools = ac.AllowedTools
		o.BlockedTools = ac.BlockedTools
		if ac.StepLimit != 0 {
			o.StepLimit = ac.StepLimit
		}
		if ac.MaxParallelToolCalls != 0 {
			o.MaxParallelToolCalls = ac.MaxParallelToolCalls
		}
		o.Planning = ac.Planning
		o.PlanningInterval = ac.PlanningInterval
		o.Memory = r.opts.Memory.Provider(ac.Name, policy)
		o.Logger = r.opts.Logger
		o.Tracer = r.opts.Tracer
	})
}

// RegisterAgent adds an agent. Names must be unique.
func (r *Runtime) RegisterAgent(a *agent.Agent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.agents[a.Name()]; ok {
		return core.NewConfigurationError(a.Name(), "", core.ErrDuplicateTool, "agent already registered")
	}
	r.agents[a.Name()] = a

	return nil
}

// Agent returns the agent registered under name.
func (r *Runtime) Agent(name string) (*agent.Agent, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agents[name]
	return a, ok
}

// Agents returns the registered agent names, sorted.
func (r *Runtime) Agents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.agents))
	for n := range r.agents {
		names = append(names, n)
	}
	sort.Strings(names)

	return names
}

// AddTools registers tools the proxy serves next to the agents.
func (r *Runtime) AddTools(tools ...tool.Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.exposed = append(r.exposed, tools...)
}

// Invoke runs task on the named agent. Failed tasks are reported as
// *core.TaskFailedError.
func (r *Runtime) Invoke(ctx context.Context, agentName, task string) (*agent.Result, error) {
	a, ok := r.Agent(agentName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, agentName)
	}
	return a.Run(ctx, task)
}

// Proxy builds an MCP server exposing every registered agent as a tool plus
// the tools added through AddTools.
func (r *Runtime) Proxy(optFns ...func(o *mcp.ProxyOptions)) (*mcp.Proxy, error) {
	opts := append([]func(o *mcp.ProxyOptions){func(o *mcp.ProxyOptions) { o.Logger = r.opts.Logger }}, optFns...)
	p := mcp.NewProxy(opts...)

	for _, name := range r.Agents() {
		a, _ := r.Agent(name)
		if err := p.AddTool(a.AsTool()); err != nil {
			return nil, err
		}
	}

	r.mu.RLock()
	exposed := append([]tool.Tool(nil), r.exposed...)
	r.mu.RUnlock()

	if err := p.AddTools(exposed...); err != nil {
		return nil, err
	}

	return p, nil
}

// Close shuts down every backend connection.
func (r *Runtime) Close() error {
	r.mu.Lock()
	clients := r.clients
	r.clients = nil
	r.mu.Unlock()

	var errs []error
	for _, c := range clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.ServerName(), err))
		}
	}

	return errors.Join(errs...)
}
