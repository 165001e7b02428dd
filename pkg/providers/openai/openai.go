// Package openai provides the structured backend: a Completer for the OpenAI
// Chat Completions API, where tool calls arrive as native tool_calls.
package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/phoenix/pkg/chats/chat"
	"github.com/germanamz/phoenix/pkg/chats/content"
	"github.com/germanamz/phoenix/pkg/chats/message"
	"github.com/germanamz/phoenix/pkg/chats/role"
	"github.com/germanamz/phoenix/pkg/modeladapter"
	"github.com/germanamz/phoenix/pkg/modeladapter/usage"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
)

// DefaultBaseURL is the public OpenAI API endpoint.
const DefaultBaseURL = "https://api.openai.com"

const completionsPath = "/v1/chat/completions"

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter implements modeladapter.Completer for the OpenAI Chat Completions API.
type Adapter struct {
	modeladapter.ModelAdapter
}

// New creates an Adapter. baseURL has no trailing slash; an empty value
// selects DefaultBaseURL.
func New(baseURL, apiKey, model string) *Adapter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	a := &Adapter{}
	a.BaseURL = strings.TrimSuffix(baseURL, "/")
	a.Auth = modeladapter.Auth{Key: apiKey}
	a.Name = model
	a.MaxTokens = 2048
	a.HeaderParser = modeladapter.ParseOpenAIRateLimitHeaders

	return a
}

// Complete sends the conversation and tool manifest and returns the first
// choice as an assistant message. Text and tool calls keep the order the
// API reports them in.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Descriptor) (message.Message, error) {
	req := a.buildRequest(c, tools)

	var resp apiResponse
	if err := a.PostJSON(ctx, completionsPath, req, &resp); err != nil {
		return message.Message{}, fmt.Errorf("openai: %w", err)
	}

	a.Usage.Add(usage.TokenCount{
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	})

	if len(resp.Choices) == 0 {
		return message.Message{}, errors.New("openai: empty choices in response")
	}

	return parseChoice(a.Name, resp.Choices[0]), nil
}

// --- request types ---

type apiRequest struct {
	Model               string               `json:"model"`
	Messages            []apiMessage         `json:"messages"`
	MaxCompletionTokens int                  `json:"max_completion_tokens,omitempty"`
	Temperature         *float64             `json:"temperature,omitempty"`
	Tools               []toolbox.Definition `json:"tools,omitempty"`
	ToolChoice          string               `json:"tool_choice,omitempty"`
}

type apiMessage struct {
	Role       string        `json:"role"`
	Content    *string       `json:"content"`
	ToolCalls  []apiToolCall `json:"tool_calls,omitempty"`
	ToolCallID string        `json:"tool_call_id,omitempty"`
}

type apiToolCall struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Function apiToolFunction `json:"function"`
}

type apiToolFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// --- response types ---

type apiResponse struct {
	Choices []apiChoice `json:"choices"`
	Usage   apiUsage    `json:"usage"`
}

type apiChoice struct {
	Message      apiRespMessage `json:"message"`
	FinishReason string         `json:"finish_reason"`
}

type apiRespMessage struct {
	Role      string        `json:"role"`
	Content   *string       `json:"content"`
	ToolCalls []apiToolCall `json:"tool_calls,omitempty"`
}

type apiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// --- conversion helpers ---

func (a *Adapter) buildRequest(c *chat.Chat, tools []toolbox.Descriptor) apiRequest {
	req := apiRequest{
		Model:               a.Name,
		MaxCompletionTokens: a.MaxTokens,
	}

	if a.Temperature != 0 {
		t := a.Temperature
		req.Temperature = &t
	}

	if len(tools) > 0 {
		req.Tools = toolbox.Definitions(tools)
		req.ToolChoice = "auto"
	}

	c.Each(func(_ int, m message.Message) bool {
		req.Messages = appendMessages(req.Messages, m)
		return true
	})

	return req
}

func appendMessages(msgs []apiMessage, m message.Message) []apiMessage {
	switch m.Role {
	case role.System, role.User:
		text := m.TextContent()
		return append(msgs, apiMessage{Role: m.Role.String(), Content: &text})

	case role.Assistant:
		msg := apiMessage{Role: "assistant"}
		if text := m.TextContent(); text != "" {
			msg.Content = &text
		}
		for _, tc := range m.ToolCalls() {
			msg.ToolCalls = append(msg.ToolCalls, apiToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: apiToolFunction{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		return append(msgs, msg)

	case role.Tool:
		for _, tr := range m.ToolResults() {
			msgs = append(msgs, apiMessage{
				Role:       "tool",
				Content:    &tr.Content,
				ToolCallID: tr.ToolCallID,
			})
		}
	}

	return msgs
}

func parseChoice(model string, choice apiChoice) message.Message {
	var parts []content.Part

	if choice.Message.Content != nil && *choice.Message.Content != "" {
		parts = append(parts, content.Text{Text: *choice.Message.Content})
	}

	for _, tc := range choice.Message.ToolCalls {
		parts = append(parts, content.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	msg := message.New(model, role.Assistant, parts...)
	if choice.FinishReason != "" {
		msg.SetMeta("finish_reason", choice.FinishReason)
	}

	return msg
}
