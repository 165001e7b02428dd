// Package providers groups the model backends:
//   - [github.com/germanamz/phoenix/pkg/providers/openai]: OpenAI Chat Completions with native tool calls
//   - [github.com/germanamz/phoenix/pkg/providers/ollama]: raw text generation against a local Ollama runtime
//   - [github.com/germanamz/phoenix/pkg/providers/textproto]: turns a raw generator into a Completer by rendering a chat template and extracting tool calls from the output
//
// Shared plumbing (the Completer interface, HTTP helpers, retries, usage
// tracking) lives in [github.com/germanamz/phoenix/pkg/modeladapter].
package providers
