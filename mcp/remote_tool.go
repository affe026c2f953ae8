package mcp

import (
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/tool"
)

// RemoteTool is a tool served by an MCP server.
type RemoteTool struct {
	client      *Client
	name        string
	description string
	schema      tool.Schema
}

// Name implements tool.Tool.
func (t *RemoteTool) Name() string { return t.name }

// Description implements tool.Tool.
func (t *RemoteTool) Description() string { return t.description }

// Schema implements tool.Tool.
func (t *RemoteTool) Schema() tool.Schema { return t.schema.Clone() }

// Server returns the name of the server providing the tool.
func (t *RemoteTool) Server() string { return t.client.serverName }

// Call invokes tools/call. Structured content is returned as is when the
// server sends it; otherwise text blocks are joined with newlines. A result
// flagged isError becomes a *tool.ToolError with CodeRemote.
func (t *RemoteTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()

	logger.Debug("mcp.tool.call", "server", t.client.serverName, "tool", t.name, "call_id", toolCtx.CallID())

	result, err := t.client.CallTool(toolCtx.Context(), t.name, args)
	if err != nil {
		logger.Error("mcp.tool.transport_error", "server", t.client.serverName, "tool", t.name, "error", err.Error())
		return nil, &tool.ToolError{Tool: t.name, Message: err.Error(), Code: tool.CodeRemote, Details: err}
	}

	text := contentText(result.Content)

	if result.IsError {
		logger.Warn("mcp.tool.error", "server", t.client.serverName, "tool", t.name, "error", text)
		return nil, tool.NewToolError(t.name, text, tool.CodeRemote)
	}

	if result.StructuredContent != nil {
		return result.StructuredContent, nil
	}

	return text, nil
}

// contentText flattens content blocks. Non-text blocks are JSON encoded.
func contentText(content []mcp.Content) string {
	parts := make([]string, 0, len(content))

	for _, c := range content {
		if text, ok := mcp.AsTextContent(c); ok {
			parts = append(parts, text.Text)
			continue
		}

		b, err := json.Marshal(c)
		if err != nil {
			continue
		}
		parts = append(parts, string(b))
	}

	return strings.Join(parts, "\n")
}
