package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/germanamz/phoenix/pkg/chats/chat"
	"github.com/germanamz/phoenix/pkg/chats/content"
	"github.com/germanamz/phoenix/pkg/chats/message"
	"github.com/germanamz/phoenix/pkg/chats/role"
	"github.com/germanamz/phoenix/pkg/modeladapter"
	"github.com/germanamz/phoenix/pkg/providers/openai"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *openai.Adapter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return openai.New(srv.URL+"/", "test-key", "gpt-5")
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Errorf("failed to encode response: %v", err)
	}
}

func readBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}

	var req map[string]any
	if err := json.Unmarshal(body, &req); err != nil {
		t.Fatalf("failed to unmarshal body: %v", err)
	}

	return req
}

func textReply(text string) map[string]any {
	return map[string]any{
		"choices": []map[string]any{
			{
				"message":       map[string]any{"role": "assistant", "content": text},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
	}
}

func TestNew_Defaults(t *testing.T) {
	a := openai.New("", "k", "gpt-5")

	assert.Equal(t, openai.DefaultBaseURL, a.BaseURL)
	assert.Equal(t, 2048, a.MaxTokens)
}

func TestComplete_SimpleText(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		req := readBody(t, r)
		assert.Equal(t, "gpt-5", req["model"])
		assert.InDelta(t, 2048, req["max_completion_tokens"], 0)
		assert.NotContains(t, req, "tools")
		assert.NotContains(t, req, "tool_choice")
		assert.NotContains(t, req, "temperature")

		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 2)

		first, _ := msgs[0].(map[string]any)
		assert.Equal(t, "system", first["role"])
		assert.Equal(t, "You are helpful.", first["content"])

		writeJSON(t, w, textReply("Hello there!"))
	})

	c := chat.New(
		message.NewText("system", role.System, "You are helpful."),
		message.NewText("user", role.User, "Hi"),
	)

	msg, err := adapter.Complete(context.Background(), c, nil)
	require.NoError(t, err)

	assert.Equal(t, role.Assistant, msg.Role)
	assert.Equal(t, "Hello there!", msg.TextContent())
	assert.Empty(t, msg.ToolCalls())

	reason, _ := msg.GetMeta("finish_reason")
	assert.Equal(t, "stop", reason)

	last, ok := adapter.Usage.Last()
	require.True(t, ok)
	assert.Equal(t, 10, last.InputTokens)
	assert.Equal(t, 5, last.OutputTokens)
}

func TestComplete_Temperature(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		req := readBody(t, r)
		assert.InDelta(t, 0.2, req["temperature"], 1e-9)

		writeJSON(t, w, textReply("ok"))
	})
	adapter.Temperature = 0.2

	_, err := adapter.Complete(context.Background(), chat.New(message.NewText("user", role.User, "Hi")), nil)
	require.NoError(t, err)
}

func TestComplete_ToolCallRoundTrip(t *testing.T) {
	callCount := 0

	adapter := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		callCount++

		req := readBody(t, r)
		assert.Equal(t, "auto", req["tool_choice"])

		tools, ok := req["tools"].([]any)
		require.True(t, ok)
		require.Len(t, tools, 1)

		tool, _ := tools[0].(map[string]any)
		assert.Equal(t, "function", tool["type"])
		fn, _ := tool["function"].(map[string]any)
		assert.Equal(t, "read_memory", fn["name"])
		assert.NotNil(t, fn["parameters"])

		if callCount == 1 {
			writeJSON(t, w, map[string]any{
				"choices": []map[string]any{
					{
						"message": map[string]any{
							"role":    "assistant",
							"content": nil,
							"tool_calls": []map[string]any{
								{
									"id":   "call_1",
									"type": "function",
									"function": map[string]any{
										"name":      "read_memory",
										"arguments": `{"truncate":false}`,
									},
								},
							},
						},
						"finish_reason": "tool_calls",
					},
				},
				"usage": map[string]any{"prompt_tokens": 15, "completion_tokens": 8},
			})
			return
		}

		msgs, ok := req["messages"].([]any)
		require.True(t, ok)
		require.Len(t, msgs, 3)

		assistant, _ := msgs[1].(map[string]any)
		assert.Equal(t, "assistant", assistant["role"])
		assert.Nil(t, assistant["content"])
		calls, _ := assistant["tool_calls"].([]any)
		require.Len(t, calls, 1)

		toolMsg, _ := msgs[2].(map[string]any)
		assert.Equal(t, "tool", toolMsg["role"])
		assert.Equal(t, "call_1", toolMsg["tool_call_id"])
		assert.Equal(t, `{"status":"ok","memory":"likes tea"}`, toolMsg["content"])

		writeJSON(t, w, map[string]any{
			"choices": []map[string]any{
				{
					"message":       map[string]any{"role": "assistant", "content": "The user likes tea."},
					"finish_reason": "stop",
				},
			},
			"usage": map[string]any{"prompt_tokens": 25, "completion_tokens": 12},
		})
	})

	tools := []toolbox.Descriptor{{Name: "read_memory", Description: "Reads the memory"}}

	c := chat.New(message.NewText("user", role.User, "What does the user like?"))

	msg, err := adapter.Complete(context.Background(), c, tools)
	require.NoError(t, err)

	calls := msg.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "call_1", calls[0].ID)
	assert.Equal(t, "read_memory", calls[0].Name)
	assert.JSONEq(t, `{"truncate":false}`, calls[0].Arguments)
	assert.Empty(t, msg.TextContent())

	c.Append(msg)
	c.Append(message.New("tool", role.Tool, content.ToolResult{
		ToolCallID: "call_1",
		Name:       "read_memory",
		Content:    `{"status":"ok","memory":"likes tea"}`,
	}))

	msg, err = adapter.Complete(context.Background(), c, tools)
	require.NoError(t, err)
	assert.Equal(t, "The user likes tea.", msg.TextContent())

	total := adapter.Usage.Total()
	assert.Equal(t, 40, total.InputTokens)
	assert.Equal(t, 20, total.OutputTokens)
}

func TestComplete_EmptyChoices(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]any{
			"choices": []map[string]any{},
			"usage":   map[string]any{"prompt_tokens": 5, "completion_tokens": 0},
		})
	})

	_, err := adapter.Complete(context.Background(), chat.New(message.NewText("user", role.User, "Hi")), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty choices")
}

func TestComplete_RateLimited(t *testing.T) {
	adapter := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit exceeded"}}`))
	})

	_, err := adapter.Complete(context.Background(), chat.New(message.NewText("user", role.User, "Hi")), nil)
	require.Error(t, err)

	var rle *modeladapter.RateLimitError
	assert.ErrorAs(t, err, &rle)
	assert.ErrorContains(t, err, "openai: ")
}
