package mcp

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/tool"
	"github.com/hupe1980/mcpagents/transform"
)

func backendTools() []tool.Tool {
	convert := tool.NewFunctionTool(
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
	)

	broken := tool.NewFunctionTool("broken", "Always fails", tool.Schema{}, func(*core.ToolContext, map[string]any) (any, error) {
		return nil, errors.New("backend down")
	})

	structured := tool.NewFunctionTool("stats", "Returns JSON", tool.Schema{}, func(*core.ToolContext, map[string]any) (any, error) {
		return map[string]any{"count": 2}, nil
	})

	return []tool.Tool{convert, broken, structured}
}

func connect(t *testing.T, p *Proxy) *Client {
	t.Helper()

	inproc, err := client.NewInProcessClient(p.Server())
	require.NoError(t, err)

	c, err := NewClient(context.Background(), "backend", inproc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func toolCtx() *core.ToolContext {
	return core.NewStandaloneToolContext(context.Background(), "call-1", nil)
}

func find(t *testing.T, tools []tool.Tool, name string) tool.Tool {
	t.Helper()
	for _, tl := range tools {
		if tl.Name() == name {
			return tl
		}
	}
	t.Fatalf("tool %s not listed", name)
	return nil
}

func TestProxy_RoundTrip(t *testing.T) {
	p := NewProxy()
	require.NoError(t, p.AddTools(backendTools()...))
	assert.Equal(t, []string{"broken", "convert_time", "stats"}, p.Tools())

	c := connect(t, p)
	assert.Equal(t, "backend", c.ServerName())

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	require.Len(t, tools, 3)

	convert := find(t, tools, "convert_time")
	assert.Equal(t, "Convert time between timezones", convert.Description())
	assert.ElementsMatch(t, []string{"source_timezone", "time", "target_timezone"}, convert.Schema().Required())

	out, err := convert.Call(toolCtx(), map[string]any{
		"source_timezone": "UTC", "time": "12:00", "target_timezone": "Europe/Berlin",
	})
	require.NoError(t, err)
	assert.Equal(t, "12:00 UTC -> Europe/Berlin", out)

	out, err = find(t, tools, "stats").Call(toolCtx(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"count": float64(2)}, out)
}

func TestRemoteTool_PrefersStructuredContent(t *testing.T) {
	srv := server.NewMCPServer("raw", "1.0.0", server.WithToolCapabilities(false))
	srv.AddTool(mcp.NewTool("forecast"), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultStructured(map[string]any{"city": "Berlin", "celsius": 21.5}, "21.5C in Berlin"), nil
	})
	srv.AddTool(mcp.NewTool("plain"), func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText("just text"), nil
	})

	inproc, err := client.NewInProcessClient(srv)
	require.NoError(t, err)
	c, err := NewClient(context.Background(), "raw", inproc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)

	out, err := find(t, tools, "forecast").Call(toolCtx(), nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"city": "Berlin", "celsius": 21.5}, out)

	out, err = find(t, tools, "plain").Call(toolCtx(), nil)
	require.NoError(t, err)
	assert.Equal(t, "just text", out)
}

func TestRemoteTool_IsErrorBecomesToolError(t *testing.T) {
	p := NewProxy()
	require.NoError(t, p.AddTools(backendTools()...))

	tools, err := connect(t, p).ListTools(context.Background())
	require.NoError(t, err)

	_, err = find(t, tools, "broken").Call(toolCtx(), map[string]any{})

	var toolErr *tool.ToolError
	require.True(t, errors.As(err, &toolErr))
	assert.Equal(t, tool.CodeRemote, toolErr.Code)
	assert.Contains(t, toolErr.Message, "backend down")
}

func TestProxy_DuplicateTool(t *testing.T) {
	p := NewProxy()
	require.NoError(t, p.AddTools(backendTools()...))

	err := p.AddTool(backendTools()[0])
	assert.ErrorIs(t, err, core.ErrDuplicateTool)
}

func TestProxy_ServesTransformedRemoteTools(t *testing.T) {
	backend := NewProxy()
	require.NoError(t, backend.AddTools(backendTools()...))

	remote, err := connect(t, backend).ListTools(context.Background())
	require.NoError(t, err)

	nyc := "America/New_York"
	transformed, err := transform.TransformAll(remote, map[string]transform.Override{
		"convert_time": {
			Name: "convert_from_new_york",
			Parameters: map[string]transform.ParameterOverride{
				"source_timezone": {Constant: nyc},
			},
		},
		"broken": {Enabled: new(bool)},
	}, nil)
	require.NoError(t, err)

	front := NewProxy(func(o *ProxyOptions) { o.Name = "front" })
	require.NoError(t, front.AddTools(transformed...))
	assert.Equal(t, []string{"convert_from_new_york", "stats"}, front.Tools())

	tools, err := connect(t, front).ListTools(context.Background())
	require.NoError(t, err)

	out, err := find(t, tools, "convert_from_new_york").Call(toolCtx(), map[string]any{
		"source_timezone": "UTC", "time": "09:00", "target_timezone": "UTC",
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00 America/New_York -> UTC", out)
}

func TestRemoteClient_StreamableHTTP(t *testing.T) {
	p := NewProxy()
	require.NoError(t, p.AddTools(backendTools()...))

	var (
		mu      sync.Mutex
		apiKeys []string
	)
	mcpHandler := server.NewStreamableHTTPServer(p.Server())
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		apiKeys = append(apiKeys, r.Header.Get("X-Api-Key"))
		mu.Unlock()
		mcpHandler.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	c, err := NewRemoteClient(context.Background(), RemoteConfig{
		ServerName: "remote",
		URL:        ts.URL,
		Headers:    map[string]string{"X-Api-Key": "secret"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)

	out, err := find(t, tools, "convert_time").Call(toolCtx(), map[string]any{
		"source_timezone": "UTC", "time": "08:00", "target_timezone": "Asia/Tokyo",
	})
	require.NoError(t, err)
	assert.Equal(t, "08:00 UTC -> Asia/Tokyo", out)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, apiKeys)
	for _, k := range apiKeys {
		assert.Equal(t, "secret", k)
	}
}

func TestRemoteClient_SSE(t *testing.T) {
	p := NewProxy()
	require.NoError(t, p.AddTools(backendTools()...))

	ts := server.NewTestServer(p.Server())
	t.Cleanup(ts.Close)

	c, err := NewRemoteClient(context.Background(), RemoteConfig{
		ServerName: "legacy",
		URL:        ts.URL + "/sse",
		Transport:  TransportSSE,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	tools, err := c.ListTools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 3)
}

func TestNewRemoteClient_Validation(t *testing.T) {
	_, err := NewRemoteClient(context.Background(), RemoteConfig{})
	assert.Error(t, err)

	_, err = NewRemoteClient(context.Background(), RemoteConfig{ServerName: "x"})
	assert.Error(t, err)

	_, err = NewRemoteClient(context.Background(), RemoteConfig{ServerName: "x", URL: "http://localhost", Transport: "websocket"})
	assert.ErrorContains(t, err, `unknown transport "websocket"`)
}

func TestNewStdioClient_Validation(t *testing.T) {
	_, err := NewStdioClient(context.Background(), ClientConfig{})
	assert.Error(t, err)

	_, err = NewStdioClient(context.Background(), ClientConfig{ServerName: "x"})
	assert.Error(t, err)
}
