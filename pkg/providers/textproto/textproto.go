// Package textproto adapts a raw text generator into a modeladapter.Completer
// for models without a native tool-call channel.
//
// Each completion renders the conversation and tool manifest through a chat
// template, generates, and splits the raw output into visible text and tool
// calls using the template's protocol. The returned message has the same
// shape a structured backend produces, so the agent loop never parses text
// itself. Calls carry no ID; tool results are correlated by position.
package textproto

import (
	"context"
	"fmt"

	"github.com/germanamz/phoenix/pkg/chats/chat"
	"github.com/germanamz/phoenix/pkg/chats/content"
	"github.com/germanamz/phoenix/pkg/chats/message"
	"github.com/germanamz/phoenix/pkg/chats/role"
	"github.com/germanamz/phoenix/pkg/chattemplate"
	"github.com/germanamz/phoenix/pkg/modeladapter"
	"github.com/germanamz/phoenix/pkg/modeladapter/usage"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
)

var _ modeladapter.Completer = (*Adapter)(nil)

// Adapter implements modeladapter.Completer on top of a Generator.
type Adapter struct {
	gen      modeladapter.Generator
	template *chattemplate.Template
	sender   string

	fallbackTracker usage.Tracker
}

// New creates an Adapter. A nil template selects chattemplate.ChatML.
func New(gen modeladapter.Generator, template *chattemplate.Template) *Adapter {
	if template == nil {
		template = chattemplate.ChatML()
	}

	return &Adapter{gen: gen, template: template, sender: "textproto"}
}

// Template returns the chat template used to render prompts.
func (a *Adapter) Template() *chattemplate.Template { return a.template }

// Complete renders, generates and splits. The raw output is recorded in the
// message metadata under message.MetaRawOutput.
func (a *Adapter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Descriptor) (message.Message, error) {
	prompt, err := a.template.Render(c, tools)
	if err != nil {
		return message.Message{}, fmt.Errorf("textproto: %w", err)
	}

	raw, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return message.Message{}, fmt.Errorf("textproto: %w", err)
	}

	split := a.template.Protocol().Split(raw)

	var parts []content.Part
	if split.Visible != "" {
		parts = append(parts, content.Text{Text: split.Visible})
	}
	for _, call := range split.Calls {
		parts = append(parts, content.ToolCall{
			Name:      call.Name,
			Arguments: string(call.Arguments),
		})
	}

	msg := message.New(a.sender, role.Assistant, parts...)
	msg.SetMeta(message.MetaRawOutput, raw)

	return msg, nil
}

// UsageTracker forwards to the generator if it reports usage.
func (a *Adapter) UsageTracker() *usage.Tracker {
	if ur, ok := a.gen.(modeladapter.UsageReporter); ok {
		return ur.UsageTracker()
	}
	return &a.fallbackTracker
}

// ModelMaxTokens forwards to the generator if it reports usage.
func (a *Adapter) ModelMaxTokens() int {
	if ur, ok := a.gen.(modeladapter.UsageReporter); ok {
		return ur.ModelMaxTokens()
	}
	return 0
}
