// Package tool implements the tool calling subsystem that lets agents invoke
// structured capabilities (local Go functions, remote MCP tools, other
// agents) with schema validated arguments, consistent error handling and
// metadata for LLM guidance.
package tool

import (
	"fmt"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/internal/util"
)

// Error codes carried by ToolError.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
	CodeRemote     = "REMOTE_ERROR"
)

// Tool defines the interface for extending agent capabilities with external functions.
//
// Tool implementations should:
//   - Provide clear, descriptive names and descriptions
//   - Declare an accurate parameter schema
//   - Return errors instead of panicking
//   - Be safe for concurrent use; one turn may call a tool several times in parallel
type Tool interface {
	// Name returns the unique identifier for this tool within a registry.
	Name() string

	// Description returns a human-readable description of what this tool does.
	// It is provided to the LLM to help it decide when and how to use the tool.
	Description() string

	// Schema returns the ordered parameter schema used for validation and
	// LLM function calling.
	Schema() Schema

	// Call executes the tool with decoded arguments. Cancellation is
	// observed through toolCtx.Context().
	Call(toolCtx *core.ToolContext, args map[string]any) (any, error)
}

// Definition is the static metadata of a tool.
type Definition struct {
	Name        string
	Description string
	Schema      Schema
}

// DefinitionOf captures the metadata of t.
func DefinitionOf(t Tool) Definition {
	return Definition{Name: t.Name(), Description: t.Description(), Schema: t.Schema().Clone()}
}

// Clone returns a deep copy.
func (d Definition) Clone() Definition {
	d.Schema = d.Schema.Clone()
	return d
}

// ValidationError represents parameter validation errors with detailed information.
type ValidationError = util.ValidationError

// ValidateArguments checks args against schema.
func ValidateArguments(schema Schema, args map[string]any) error {
	return util.ValidateParameters(args, schema.JSONSchema())
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`              // Name of the tool that failed
	Message string `json:"message"`           // Error message
	Code    string `json:"code"`              // Error code for categorization
	Details any    `json:"details,omitempty"` // Additional error details
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// Unwrap returns Details when it is an error.
func (e *ToolError) Unwrap() error {
	if err, ok := e.Details.(error); ok {
		return err
	}
	return nil
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
