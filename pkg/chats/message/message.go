// Package message defines a single conversation turn.
package message

import (
	"strings"

	"github.com/germanamz/phoenix/pkg/chats/content"
	"github.com/germanamz/phoenix/pkg/chats/role"
)

// MetaRawOutput is the metadata key under which text-protocol backends keep
// the unprocessed model output, markers included.
const MetaRawOutput = "raw_output"

// Message is one turn of a conversation. It is a value type.
type Message struct {
	Sender   string
	Role     role.Role
	Parts    []content.Part
	Metadata map[string]any
}

// New creates a message with the given sender, role, and content parts.
func New(sender string, r role.Role, parts ...content.Part) Message {
	return Message{
		Sender: sender,
		Role:   r,
		Parts:  parts,
	}
}

// NewText creates a message with a single Text part.
func NewText(sender string, r role.Role, text string) Message {
	return New(sender, r, content.Text{Text: text})
}

// TextContent concatenates the text of all Text parts.
func (m Message) TextContent() string {
	var b strings.Builder
	for _, p := range m.Parts {
		if t, ok := p.(content.Text); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// ToolCalls returns all ToolCall parts in order.
func (m Message) ToolCalls() []content.ToolCall {
	var calls []content.ToolCall
	for _, p := range m.Parts {
		if tc, ok := p.(content.ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// ToolResults returns all ToolResult parts in order.
func (m Message) ToolResults() []content.ToolResult {
	var results []content.ToolResult
	for _, p := range m.Parts {
		if tr, ok := p.(content.ToolResult); ok {
			results = append(results, tr)
		}
	}
	return results
}

// SetMeta sets a metadata key, allocating the map on first use.
func (m *Message) SetMeta(key string, value any) {
	if m.Metadata == nil {
		m.Metadata = make(map[string]any)
	}
	m.Metadata[key] = value
}

// GetMeta retrieves a metadata value by key.
func (m Message) GetMeta(key string) (any, bool) {
	if m.Metadata == nil {
		return nil, false
	}
	v, ok := m.Metadata[key]
	return v, ok
}

// RawOutput returns the unprocessed model output recorded by a text-protocol
// backend, if any.
func (m Message) RawOutput() (string, bool) {
	v, ok := m.GetMeta(MetaRawOutput)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
