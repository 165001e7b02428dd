// Package modeladapter defines the model provider boundary the agent loop
// talks to.
//
// It contains:
//   - [Completer]: turns a conversation plus a tool manifest into one assistant message
//   - [Generator]: raw prompt-in, text-out generation used by text-protocol backends
//   - [ModelAdapter]: embeddable HTTP base with auth, custom headers and usage tracking
//   - [RetryCompleter]: opt-in retry of rate-limited completions
//   - [github.com/germanamz/phoenix/pkg/modeladapter/usage]: thread-safe token usage tracker
//
// Concrete providers live in separate packages that import modeladapter.
package modeladapter
