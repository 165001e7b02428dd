package main

import (
	"testing"

	"github.com/germanamz/phoenix/pkg/chats/chat"
	"github.com/germanamz/phoenix/pkg/chats/content"
	"github.com/germanamz/phoenix/pkg/chats/message"
	"github.com/germanamz/phoenix/pkg/chats/role"
	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{name: "short", in: "hello", width: 10, want: "hello"},
		{name: "flattens whitespace", in: "a\n  b\tc", width: 0, want: "a b c"},
		{name: "truncates", in: "hello world", width: 8, want: "hello..."},
		{name: "wide runes", in: "日本語テキスト", width: 7, want: "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, preview(tt.in, tt.width))
		})
	}
}

func TestRenderAnswerWithoutRenderer(t *testing.T) {
	assert.Equal(t, "**plain**", renderAnswer(nil, "**plain**"))
}

func TestRenderAnswer(t *testing.T) {
	out := renderAnswer(newMarkdownRenderer(80), "The user likes **tea**.")
	assert.Contains(t, out, "tea")
}

func TestRenderConversation(t *testing.T) {
	c := chat.New(
		message.NewText("subagent", role.System, "You are a subagent."),
		message.NewText("subagent", role.User, "Read the memory"),
		message.New("agent", role.Assistant, content.ToolCall{ID: "c1", Name: "read_memory", Arguments: `{"truncate": true}`}),
		message.New("agent", role.Tool, content.ToolResult{ToolCallID: "c1", Name: "read_memory", Content: `{"memory":"likes tea","status":"ok"}`}),
		message.New("agent", role.Tool, content.ToolResult{Name: "fetch_url", Content: `{"error":"boom"}`, IsError: true}),
		message.NewText("agent", role.Assistant, "The user likes tea."),
	)

	out := renderConversation(c, 80)

	assert.Contains(t, out, "Conversation (6 turns)")
	assert.Contains(t, out, "1. ")
	assert.Contains(t, out, "system")
	assert.Contains(t, out, "You are a subagent.")
	assert.Contains(t, out, "read_memory")
	assert.Contains(t, out, `{"truncate": true}`)
	assert.Contains(t, out, `{"memory":"likes tea","status":"ok"}`)
	assert.Contains(t, out, `{"error":"boom"}`)
	assert.Contains(t, out, "6. ")
	assert.Contains(t, out, "The user likes tea.")
}

func TestRenderConversationTruncatesPayloads(t *testing.T) {
	long := `{"memory":"a very long memory entry that keeps going and going"}`
	c := chat.New(message.New("agent", role.Tool, content.ToolResult{Name: "read_memory", Content: long}))

	out := renderConversation(c, 20)

	assert.NotContains(t, out, "keeps going")
	assert.Contains(t, out, "...")
}

func TestRenderConversationEmpty(t *testing.T) {
	assert.Contains(t, renderConversation(chat.New(), 80), "Conversation (0 turns)")
}
