// Package chats holds the conversation model shared by the agent loop, the
// model backends and the tools.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/phoenix/pkg/chats/role]: turn roles (system, user, assistant, tool)
//   - [github.com/germanamz/phoenix/pkg/chats/content]: turn content parts (text, tool call, tool result)
//   - [github.com/germanamz/phoenix/pkg/chats/message]: a single turn: role, sender and parts
//   - [github.com/germanamz/phoenix/pkg/chats/chat]: append-only conversation container
//
// Nothing here talks to a provider. Backends translate a chat into their own
// wire format.
package chats
