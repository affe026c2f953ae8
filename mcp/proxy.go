package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/logging"
	"github.com/hupe1980/mcpagents/tool"
)

// ProxyOptions configure a Proxy.
type ProxyOptions struct {
	Name    string
	Version string
	Logger  logging.Logger
}

// Proxy serves tool.Tool values over MCP.
type Proxy struct {
	server *server.MCPServer
	logger logging.Logger

	mu    sync.Mutex
	names map[string]bool
}

// NewProxy creates an MCP server with no tools.
func NewProxy(optFns ...func(o *ProxyOptions)) *Proxy {
	opts := ProxyOptions{Name: "mcpagents", Version: "0.1.0", Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	return &Proxy{
		server: server.NewMCPServer(opts.Name, opts.Version, server.WithToolCapabilities(true)),
		logger: opts.Logger,
		names:  map[string]bool{},
	}
}

// AddTools registers tools. Names must be unique across the proxy.
func (p *Proxy) AddTools(tools ...tool.Tool) error {
	for _, t := range tools {
		if err := p.AddTool(t); err != nil {
			return err
		}
	}
	return nil
}

// AddTool registers a single tool.
func (p *Proxy) AddTool(t tool.Tool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	name := t.Name()
	if p.names[name] {
		return core.NewConfigurationError(name, "", core.ErrDuplicateTool, "tool already served by proxy")
	}

	raw, err := t.Schema().MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode schema of %s: %w", name, err)
	}

	p.server.AddTool(mcp.NewToolWithRawSchema(name, t.Description(), raw), p.handler(t))
	p.names[name] = true

	p.logger.Debug("mcp.proxy.tool.added", "tool", name)

	return nil
}

// Tools returns the served tool names, sorted.
func (p *Proxy) Tools() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.names))
	for name := range p.names {
		out = append(out, name)
	}
	sort.Strings(out)

	return out
}

// Server returns the underlying mcp-go server.
func (p *Proxy) Server() *server.MCPServer { return p.server }

// ServeStdio serves the proxy on stdin/stdout until the input is closed.
func (p *Proxy) ServeStdio() error {
	p.logger.Info("mcp.proxy.serve", "transport", "stdio", "tools", len(p.Tools()))
	return server.ServeStdio(p.server)
}

func (p *Proxy) handler(t tool.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]any{}
		}

		toolCtx := core.NewStandaloneToolContext(ctx, core.NewID(), p.logger)

		result, err := t.Call(toolCtx, args)
		if err != nil {
			p.logger.Warn("mcp.proxy.tool.error", "tool", t.Name(), "error", err.Error())
			return mcp.NewToolResultError(err.Error()), nil
		}

		if obj, ok := result.(map[string]any); ok {
			return mcp.NewToolResultStructured(obj, renderResult(obj)), nil
		}

		return mcp.NewToolResultText(renderResult(result)), nil
	}
}

func renderResult(v any) string {
	switch r := v.(type) {
	case nil:
		return ""
	case string:
		return r
	case []byte:
		return string(r)
	default:
		b, err := json.Marshal(r)
		if err != nil {
			return fmt.Sprint(r)
		}
		return string(b)
	}
}
