// Package agent contains the tool calling agent built on the flow package.
//
// An Agent owns a resolved tool registry, a system prompt, instructions and a
// memory provider. Run leases a conversation, seeds it on first use, appends
// the task and drives a flow.MultiStep until the model reports success or
// failure, or the step limit is reached.
//
// Failures are returned as *core.TaskFailedError by Run and as data by
// RunWithConversation. Provider errors (*core.LLMLinkError) and context
// cancellation always propagate as errors.
//
// The Evaluator is an Agent without domain tools whose success payload is an
// evaluation.Result.
package agent
