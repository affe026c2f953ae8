package mcpagents

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcpagents/agent"
	"github.com/hupe1980/mcpagents/config"
	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/flow"
	"github.com/hupe1980/mcpagents/mcp"
	"github.com/hupe1980/mcpagents/model"
	"github.com/hupe1980/mcpagents/tool"
)

const doc = `
servers:
  time:
    command: unused
    tool_overrides:
      convert_time:
        name: convert_from_new_york
        parameter_overrides:
          source_timezone:
            constant: America/New_York
agents:
  - name: clock
    description: Converts New York times
    servers: [time]
    memory: shared
expose_tools: [convert_from_new_york]
`

func timeBackend() *mcp.Proxy {
	p := mcp.NewProxy()
	_ = p.AddTool(tool.NewFunctionTool(
		"convert_time",
		"Convert time between timezones",
		tool.Schema{Parameters: []tool.Parameter{
			{Name: "source_timezone", Type: "string", Required: true},
			{Name: "time", Type: "string", Required: true},
			{Name: "target_timezone", Type: "string", Required: true},
		}},
		func(_ *core.ToolContext, args map[string]any) (any, error) {
			return args["time"].(string) + " " + args["source_timezone"].(string) + " -> " + args["target_timezone"].(string), nil
		},
	))
	return p
}

func inProcess(backends map[string]*mcp.Proxy) Connector {
	return func(ctx context.Context, name string, _ config.ServerConfig) (*mcp.Client, error) {
		b, ok := backends[name]
		if !ok {
			return nil, errors.New("no backend")
		}
		c, err := client.NewInProcessClient(b.Server())
		if err != nil {
			return nil, err
		}
		return mcp.NewClient(ctx, name, c)
	}
}

func newRuntime(t *testing.T, llm model.Model) *Runtime {
	t.Helper()

	cfg, err := config.Parse([]byte(doc))
	require.NoError(t, err)

	r, err := FromConfig(context.Background(), cfg, func(o *Options) {
		o.Model = llm
		o.Connector = inProcess(map[string]*mcp.Proxy{"time": timeBackend()})
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	return r
}

func TestFromConfig_InvokeRunsTransformedRemoteTool(t *testing.T) {
	llm := model.NewMockModel("mock", "test").
		AddToolCalls(core.ToolCall{ID: "c1", Name: "convert_from_new_york", Arguments: map[string]any{
			"time":            "10:00",
			"target_timezone": "UTC",
		}}).
		AddToolCalls(core.ToolCall{ID: "c2", Name: flow.ReportSuccessTool, Arguments: map[string]any{"result": "15:00 UTC"}})

	r := newRuntime(t, llm)
	assert.Equal(t, []string{"clock"}, r.Agents())

	a, ok := r.Agent("clock")
	require.True(t, ok)
	assert.Equal(t, []string{"convert_from_new_york"}, a.Tools())

	res, err := r.Invoke(context.Background(), "clock", "What is 10:00 in New York in UTC?")
	require.NoError(t, err)
	assert.Equal(t, "15:00 UTC", res.Text())

	var toolOutput string
	for _, m := range res.Conversation {
		if m.Role == core.RoleTool && m.Result != nil && m.Result.CallID == "c1" {
			toolOutput = m.Content
		}
	}
	assert.Contains(t, toolOutput, "10:00 America/New_York -> UTC")
}

func TestInvoke_UnknownAgent(t *testing.T) {
	r := New()
	_, err := r.Invoke(context.Background(), "ghost", "task")
	assert.ErrorIs(t, err, ErrAgentNotFound)
}

func TestInvoke_TaskFailure(t *testing.T) {
	llm := model.NewMockModel("mock", "test").
		AddToolCalls(core.ToolCall{ID: "c1", Name: flow.ReportFailureTool, Arguments: map[string]any{"reason": "unknown city"}})

	r := newRuntime(t, llm)

	_, err := r.Invoke(context.Background(), "clock", "What time is it on Mars?")
	var tfe *core.TaskFailedError
	require.ErrorAs(t, err, &tfe)
	assert.Equal(t, "unknown city", tfe.Reason)
}

func TestRuntime_Proxy(t *testing.T) {
	r := newRuntime(t, model.NewMockModel("mock", "test"))

	p, err := r.Proxy()
	require.NoError(t, err)
	assert.Equal(t, []string{"clock", "convert_from_new_york"}, p.Tools())
}

func TestRegisterAgent_Duplicate(t *testing.T) {
	a, err := agent.New("solo", model.NewMockModel("mock", "test"), nil)
	require.NoError(t, err)

	r := New()
	require.NoError(t, r.RegisterAgent(a))

	err = r.RegisterAgent(a)
	assert.ErrorIs(t, err, core.ErrDuplicateTool)
}

func TestFromConfig_UnknownExposedTool(t *testing.T) {
	cfg, err := config.Parse([]byte("servers:\n  time:\n    command: unused\nexpose_tools: [missing]\n"))
	require.NoError(t, err)

	_, err = FromConfig(context.Background(), cfg, func(o *Options) {
		o.Model = model.NewMockModel("mock", "test")
		o.Connector = inProcess(map[string]*mcp.Proxy{"time": timeBackend()})
	})

	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, core.ErrToolNotFound)
}

func TestFromConfig_ToolNameCollisionAcrossServers(t *testing.T) {
	cfg, err := config.Parse([]byte("servers:\n  east:\n    command: unused\n  west:\n    command: unused\nexpose_tools: [convert_time]\n"))
	require.NoError(t, err)

	_, err = FromConfig(context.Background(), cfg, func(o *Options) {
		o.Model = model.NewMockModel("mock", "test")
		o.Connector = inProcess(map[string]*mcp.Proxy{"east": timeBackend(), "west": timeBackend()})
	})

	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, core.ErrDuplicateTool)
	assert.Contains(t, err.Error(), "east and west")
}

func TestFromConfig_RemoteServerWithDefaultConnector(t *testing.T) {
	ts := server.NewTestStreamableHTTPServer(timeBackend().Server())
	t.Cleanup(ts.Close)

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
servers:
  time:
    url: %s
    tool_overrides:
      convert_time:
        name: convert_to_utc
        parameter_overrides:
          target_timezone:
            constant: UTC
agents:
  - name: clock
    planning: true
    planning_interval: 3
expose_tools: [convert_to_utc]
`, ts.URL)))
	require.NoError(t, err)

	r, err := FromConfig(context.Background(), cfg, func(o *Options) { o.Model = model.NewMockModel("mock", "test") })
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })

	p, err := r.Proxy()
	require.NoError(t, err)
	assert.Equal(t, []string{"clock", "convert_to_utc"}, p.Tools())

	exposed := r.exposed[0]
	out, err := exposed.Call(core.NewStandaloneToolContext(context.Background(), "x", nil), map[string]any{
		"source_timezone": "Europe/Paris",
		"time":            "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "10:00 Europe/Paris -> UTC", out)
}

func TestFromConfig_ConnectFailure(t *testing.T) {
	cfg, err := config.Parse([]byte("servers:\n  time:\n    command: unused\n  weather:\n    command: unused\n"))
	require.NoError(t, err)

	_, err = FromConfig(context.Background(), cfg, func(o *Options) {
		o.Model = model.NewMockModel("mock", "test")
		o.Connector = inProcess(map[string]*mcp.Proxy{"time": timeBackend()})
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect server weather")
}

func TestNewModel(t *testing.T) {
	m, err := NewModel(config.LLMConfig{Provider: config.ProviderOpenAI, Model: "gpt-4o", APIKey: "test"})
	require.NoError(t, err)
	assert.Equal(t, "openai", m.Info().Provider)
	assert.Equal(t, "gpt-4o", m.Info().Name)

	m, err = NewModel(config.LLMConfig{Provider: config.ProviderAnthropic, APIKey: "test"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", m.Info().Provider)

	_, err = NewModel(config.LLMConfig{Provider: "cohere"})
	var cfgErr *core.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}
