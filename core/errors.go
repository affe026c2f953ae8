package core

import (
	"errors"
	"fmt"
)

// Sentinel causes wrapped by the typed errors below. Match them with errors.Is.
var (
	ErrParameterNotFound  = errors.New("parameter not found")
	ErrParameterExists    = errors.New("parameter already exists")
	ErrRequiredDowngrade  = errors.New("required parameter cannot be made optional")
	ErrDefaultAndConstant = errors.New("parameter cannot have both a default and a constant")
	ErrUnknownHook        = errors.New("unknown hook")
	ErrToolNotFound       = errors.New("tool not found")
	ErrDuplicateTool      = errors.New("duplicate tool name")
	ErrStepLimitExceeded  = errors.New("step limit exceeded")
	ErrTaskFailed         = errors.New("task failed")
	ErrNoResponse         = errors.New("no response")
)

// ConfigurationError reports a malformed tool override or agent configuration.
// It is raised at load time, never while a run is in progress.
type ConfigurationError struct {
	Tool      string
	Parameter string
	Reason    string
	Err       error
}

// NewConfigurationError creates a ConfigurationError for the given tool.
func NewConfigurationError(tool, parameter string, err error, reason string) *ConfigurationError {
	return &ConfigurationError{Tool: tool, Parameter: parameter, Reason: reason, Err: err}
}

func (e *ConfigurationError) Error() string {
	msg := "configuration error"
	if e.Tool != "" {
		msg += fmt.Sprintf(" for tool %q", e.Tool)
	}
	if e.Parameter != "" {
		msg += fmt.Sprintf(" parameter %q", e.Parameter)
	}
	switch {
	case e.Reason != "":
		msg += ": " + e.Reason
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ToolNotFoundError reports an LLM request for a tool outside the agent's
// resolved tool set. It is fed back into the conversation, not to the caller.
type ToolNotFoundError struct {
	Agent string
	Tool  string
}

func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("Agent '%s' tried calling tool '%s' but it was not found", e.Agent, e.Tool)
}

func (e *ToolNotFoundError) Unwrap() error { return ErrToolNotFound }

// ToolExecutionError wraps a failure raised by a tool invocation.
type ToolExecutionError struct {
	Tool   string
	CallID string
	Err    error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %s (call %s) failed: %v", e.Tool, e.CallID, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// LLMLinkError wraps a completion provider failure. It is fatal to the run
// and never retried here.
type LLMLinkError struct {
	Agent    string
	Provider string
	Err      error
}

func (e *LLMLinkError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("llm link error (%s) for agent %s: %v", e.Provider, e.Agent, e.Err)
	}
	return fmt.Sprintf("llm link error for agent %s: %v", e.Agent, e.Err)
}

func (e *LLMLinkError) Unwrap() error { return e.Err }

// TaskFailedError reports that an agent gave up on its task, either by
// calling report_failure or by running out of steps.
type TaskFailedError struct {
	Agent        string
	Reason       string
	StepLimit    bool
	Steps        int
	Conversation []Message
}

func (e *TaskFailedError) Error() string {
	return fmt.Sprintf("agent %s failed its task after %d steps: %s", e.Agent, e.Steps, e.Reason)
}

// Unwrap exposes ErrStepLimitExceeded for exhausted runs and ErrTaskFailed
// for explicit failures.
func (e *TaskFailedError) Unwrap() error {
	if e.StepLimit {
		return ErrStepLimitExceeded
	}
	return ErrTaskFailed
}
