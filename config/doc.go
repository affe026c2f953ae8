// Package config loads the declarative document that describes an
// mcpagents deployment: global settings, the LLM provider, backend MCP
// servers with their tool overrides, and the agents built on top of them.
//
// Documents are YAML (JSON is accepted as a YAML subset). ${VAR} and
// ${VAR:-default} references are expanded from the process environment
// before decoding, so secrets can live in the environment or in .env files
// loaded through LoadEnvFiles.
package config
