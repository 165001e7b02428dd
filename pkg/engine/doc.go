// Package engine assembles phoenix from configuration. It loads the YAML
// config, builds the model backend (OpenAI with native tool calls, or a local
// Ollama model driven through the text tool-call protocol), registers the
// built-in and MCP-provided tools, and creates agent loops wired to them.
package engine
