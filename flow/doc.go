// Package flow implements the step machinery of an agent run.
//
// A SingleStep performs one LLM turn: it asks the model which tools to call,
// dispatches the requested calls through a FunctionExecutor and appends the
// assistant message and every tool result to the run's conversation.
//
// A MultiStep repeats single steps until the model calls one of the control
// tools (report_success or report_failure) or the step budget of the run is
// used up. Every tool call identifier produced by a turn is answered by
// exactly one tool result, including calls that were never dispatched.
//
// A Planner can interrupt a MultiStep to ask for a plan before the second
// step and for plan updates at a fixed interval.
package flow
