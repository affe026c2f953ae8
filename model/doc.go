// Package model defines the provider-agnostic LLM link used by flows and
// agents.
//
// Core goals:
//   - One synchronous call per assistant turn (Model.Generate)
//   - Normalize tool / function call representation (ToolDefinition, core.ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate scripted mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement Model in sub-packages so higher
// layers remain decoupled from vendor SDKs.
package model
