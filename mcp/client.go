package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/mcpagents/logging"
	"github.com/hupe1980/mcpagents/tool"
)

// DefaultTimeout bounds a single tools/call request.
const DefaultTimeout = 30 * time.Second

// ClientInfo identifies this library during initialize.
var ClientInfo = mcp.Implementation{Name: "mcpagents", Version: "0.1.0"}

// ClientConfig configures a stdio backed MCP client.
type ClientConfig struct {
	// ServerName identifies the server in logs and errors.
	ServerName string

	// Command is the executable that starts the server.
	Command string

	// Args are passed to Command.
	Args []string

	// Env holds additional KEY=VALUE entries for the server process.
	Env []string

	// Timeout bounds each tool call. Zero selects DefaultTimeout.
	Timeout time.Duration

	Logger logging.Logger
}

// Remote transports.
const (
	TransportStreamableHTTP = "streamable-http"
	TransportSSE            = "sse"
)

// RemoteConfig configures an HTTP backed MCP client.
type RemoteConfig struct {
	ServerName string

	// URL is the server endpoint, for example https://host/mcp or
	// https://host/sse.
	URL string

	// Transport selects TransportStreamableHTTP (default) or TransportSSE.
	Transport string

	// Headers are sent with every request.
	Headers map[string]string

	Timeout time.Duration
	Logger  logging.Logger
}

// ClientOptions configure NewClient.
type ClientOptions struct {
	Timeout time.Duration
	Logger  logging.Logger
}

// Client is an initialized connection to one MCP server.
type Client struct {
	serverName string
	client     *client.Client
	timeout    time.Duration
	logger     logging.Logger
}

// NewStdioClient launches the configured server process and initializes the
// session.
func NewStdioClient(ctx context.Context, config ClientConfig) (*Client, error) {
	if config.ServerName == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if config.Command == "" {
		return nil, fmt.Errorf("command is required for server %s", config.ServerName)
	}

	mcpClient, err := client.NewStdioMCPClient(config.Command, config.Env, config.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client for %s: %w", config.ServerName, err)
	}

	return NewClient(ctx, config.ServerName, mcpClient, func(o *ClientOptions) {
		o.Timeout = config.Timeout
		o.Logger = config.Logger
	})
}

// NewRemoteClient connects to a server over streamable HTTP or SSE and
// initializes the session.
func NewRemoteClient(ctx context.Context, config RemoteConfig) (*Client, error) {
	if config.ServerName == "" {
		return nil, fmt.Errorf("server name is required")
	}
	if config.URL == "" {
		return nil, fmt.Errorf("url is required for server %s", config.ServerName)
	}

	var (
		mcpClient *client.Client
		err       error
	)

	switch config.Transport {
	case "", TransportStreamableHTTP:
		var opts []transport.StreamableHTTPCOption
		if len(config.Headers) > 0 {
			opts = append(opts, transport.WithHTTPHeaders(config.Headers))
		}
		mcpClient, err = client.NewStreamableHttpClient(config.URL, opts...)
	case TransportSSE:
		var opts []transport.ClientOption
		if len(config.Headers) > 0 {
			opts = append(opts, client.WithHeaders(config.Headers))
		}
		mcpClient, err = client.NewSSEMCPClient(config.URL, opts...)
	default:
		return nil, fmt.Errorf("unknown transport %q for server %s", config.Transport, config.ServerName)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create MCP client for %s: %w", config.ServerName, err)
	}

	return NewClient(ctx, config.ServerName, mcpClient, func(o *ClientOptions) {
		o.Timeout = config.Timeout
		o.Logger = config.Logger
	})
}

// NewClient starts and initializes an existing mcp-go client, such as an
// in-process or HTTP client.
func NewClient(ctx context.Context, name string, mcpClient *client.Client, optFns ...func(o *ClientOptions)) (*Client, error) {
	opts := ClientOptions{Timeout: DefaultTimeout, Logger: logging.NoOpLogger{}}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if err := mcpClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start MCP client for %s: %w", name, err)
	}

	c := &Client{
		serverName: name,
		client:     mcpClient,
		timeout:    opts.Timeout,
		logger:     opts.Logger,
	}

	if err := c.initialize(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize MCP server %s: %w", name, err)
	}

	return c, nil
}

func (c *Client) initialize(ctx context.Context) error {
	initReq := mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			Capabilities:    mcp.ClientCapabilities{},
			ClientInfo:      ClientInfo,
		},
	}

	res, err := c.client.Initialize(ctx, initReq)
	if err != nil {
		return fmt.Errorf("initialize request failed: %w", err)
	}

	c.logger.Info("mcp.client.initialized",
		"server", c.serverName,
		"server_name", res.ServerInfo.Name,
		"server_version", res.ServerInfo.Version,
		"protocol", res.ProtocolVersion,
	)

	return nil
}

// ServerName returns the configured server name.
func (c *Client) ServerName() string { return c.serverName }

// ListTools returns the server's tools as RemoteTool values.
func (c *Client) ListTools(ctx context.Context) ([]tool.Tool, error) {
	result, err := c.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tools of %s: %w", c.serverName, err)
	}

	tools := make([]tool.Tool, 0, len(result.Tools))

	for _, t := range result.Tools {
		raw := []byte(t.RawInputSchema)
		if len(raw) == 0 {
			raw, err = json.Marshal(t.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("failed to marshal input schema for %s: %w", t.Name, err)
			}
		}

		schema, err := tool.ParseJSONSchema(raw)
		if err != nil {
			return nil, fmt.Errorf("tool %s of %s: %w", t.Name, c.serverName, err)
		}

		tools = append(tools, &RemoteTool{
			client:      c,
			name:        t.Name,
			description: t.Description,
			schema:      schema,
		})
	}

	c.logger.Debug("mcp.client.tools", "server", c.serverName, "count", len(tools))

	return tools, nil
}

// CallTool invokes a tool by name, bounded by the client timeout.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("tool call %s on %s failed: %w", name, c.serverName, err)
	}

	return result, nil
}

// Ping checks if the server is still responsive.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("server %s connection closed", c.serverName)
		}
		return fmt.Errorf("ping %s failed: %w", c.serverName, err)
	}
	return nil
}

// Close closes the connection. Stdio server processes are stopped.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("failed to close MCP client %s: %w", c.serverName, err)
	}
	return nil
}
