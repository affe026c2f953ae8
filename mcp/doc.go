// Package mcp connects agents to Model Context Protocol servers and exposes
// tools and agents as an MCP server.
//
// Client wraps an mcp-go client and turns the server's tools into
// RemoteTool values usable in a tool.Registry. Proxy is an mcp-go server
// that serves any tool.Tool, typically transformed remote tools and agents
// exposed through agent.AsTool.
//
// Nothing is written to stdout besides protocol traffic; logs go to the
// configured logging.Logger.
package mcp
