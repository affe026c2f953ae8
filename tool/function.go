package tool

import (
	"errors"
	"fmt"
	"time"

	"github.com/hupe1980/mcpagents/core"
	"github.com/hupe1980/mcpagents/internal/util"
)

// Func is the signature of a Go function exposed as a tool.
type Func func(toolCtx *core.ToolContext, args map[string]any) (any, error)

// FunctionTool is a generic adapter that exposes a plain Go function as a tool.
//
// Responsibilities:
//   - Holds an ordered parameter Schema
//   - Validates model supplied arguments against that schema before execution
//   - Normalizes error handling so callers receive *ToolError with consistent codes:
//     VALIDATION_ERROR  -> schema / argument mismatch
//     EXECUTION_ERROR   -> underlying function returned an error (non-ToolError)
//     (custom codes preserved if the function returns *ToolError directly)
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	schema      Schema
	fn          Func
}

// NewFunctionTool constructs a FunctionTool from an explicit schema.
//
// Example:
//
//	convert := tool.NewFunctionTool(
//	  "convert_time",
//	  "Convert a time between timezones",
//	  tool.Schema{Parameters: []tool.Parameter{
//	    {Name: "source_timezone", Type: "string", Required: true},
//	    {Name: "time", Type: "string", Required: true},
//	    {Name: "target_timezone", Type: "string", Required: true},
//	  }},
//	  convertFn,
//	)
func NewFunctionTool(name, description string, schema Schema, fn Func) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		schema:      schema.Clone(),
		fn:          fn,
	}
}

// NewFunctionToolFromMap builds a FunctionTool from a JSON-schema map.
func NewFunctionToolFromMap(name, description string, parameters map[string]any, fn Func) (*FunctionTool, error) {
	schema, err := SchemaFromMap(parameters)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return NewFunctionTool(name, description, schema, fn), nil
}

// NewFunctionToolFromStruct derives the parameter schema from a struct using reflection.
//
// Example:
//
//	type SumArgs struct {
//	  A float64 `json:"a" description:"First addend"`
//	  B float64 `json:"b" description:"Second addend"`
//	}
//
//	sumTool, err := tool.NewFunctionToolFromStruct("calculate_sum", "Calculate the sum of two numbers", SumArgs{}, sumFn)
//
// Parameters keep the struct's field order.
func NewFunctionToolFromStruct(name, description string, structType any, fn Func) (*FunctionTool, error) {
	fields := util.StructFields(structType)
	if fields == nil {
		return nil, fmt.Errorf("tool %s: %T is not a struct", name, structType)
	}

	params := make([]Parameter, len(fields))
	for i, f := range fields {
		params[i] = Parameter{Name: f.Name, Type: f.Type, Description: f.Description, Required: f.Required}
		if len(f.Enum) > 0 {
			enum := make([]any, len(f.Enum))
			for j, e := range f.Enum {
				enum[j] = e
			}
			params[i].Extra = map[string]any{"enum": enum}
		}
	}

	return NewFunctionTool(name, description, Schema{Parameters: params}, fn), nil
}

// Name returns the unique tool name used in function call declarations and routing.
func (t *FunctionTool) Name() string { return t.name }

// Description returns the short natural language description exposed to models.
func (t *FunctionTool) Description() string { return t.description }

// Schema returns a copy of the parameter schema.
func (t *FunctionTool) Schema() Schema { return t.schema.Clone() }

// Call validates the provided args against the declared schema then invokes
// the underlying function.
//
// Logging Fields:
//
//	tool: tool name
//	call_id: tool call identifier (correlates model request & tool execution)
//	duration_ms: execution time in milliseconds
func (t *FunctionTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	logger := toolCtx.Logger()
	start := time.Now()

	logger.Debug("tool.call.start", "tool", t.name, "call_id", toolCtx.CallID())

	if err := ValidateArguments(t.schema, args); err != nil {
		logger.Warn("tool.call.validation_failed", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: fmt.Sprintf("parameter validation failed: %v", err),
			Code:    CodeValidation,
			Details: err,
		}
	}

	result, err := t.fn(toolCtx, args)
	if err != nil {
		var toolErr *ToolError
		if errors.As(err, &toolErr) { // Already a ToolError -> just log and forward
			logger.Error("tool.call.error", "tool", t.name, "error", toolErr.Message)

			return nil, toolErr
		}

		logger.Error("tool.call.error", "tool", t.name, "error", err.Error())

		return nil, &ToolError{
			Tool:    t.name,
			Message: err.Error(),
			Code:    CodeExecution,
			Details: err,
		}
	}

	logger.Debug("tool.call.success", "tool", t.name, "duration_ms", time.Since(start).Milliseconds())

	return result, nil
}
