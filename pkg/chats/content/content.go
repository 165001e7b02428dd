// Package content defines the parts a conversation turn is made of.
package content

// Part is a piece of content within a turn.
type Part interface {
	PartKind() string
}

// Text is free text written by any role.
type Text struct {
	Text string
}

func (t Text) PartKind() string { return "text" }

// ToolCall is a model-issued request to invoke a named tool.
// Arguments holds the raw JSON object exactly as the model produced it; it is
// decoded only at dispatch time. ID is the provider's opaque call identifier
// and is empty when calls are correlated by position.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
	Metadata  map[string]string
}

func (tc ToolCall) PartKind() string { return "tool_call" }

// ToolResult is the outcome of one ToolCall. Content is always a serialized
// JSON object; on failure it carries a single "error" field and IsError is set.
type ToolResult struct {
	ToolCallID string
	Name       string
	Content    string
	IsError    bool
}

func (tr ToolResult) PartKind() string { return "tool_result" }
