// Package chattemplate renders a conversation and a tool manifest into the
// single prompt string a raw text-generation model expects.
//
// Templates are Jinja sources executed with gonja. The Go side prepares the
// data: every turn arrives as a {role, content} pair with tool calls already
// formatted as protocol directives and tool results wrapped for the model,
// and every tool arrives as one JSON manifest line.
package chattemplate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/germanamz/phoenix/pkg/chats/chat"
	"github.com/germanamz/phoenix/pkg/chats/message"
	"github.com/germanamz/phoenix/pkg/chats/role"
	"github.com/germanamz/phoenix/pkg/toolcall"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
	"github.com/nikolalohinski/gonja"
)

// Template is a compiled chat template bound to a tool-call protocol.
type Template struct {
	name     string
	protocol toolcall.Protocol
	stop     []string
	execute  func(data map[string]any) (string, error)
}

// Options describes a template source.
type Options struct {
	Name     string
	Source   string
	Protocol toolcall.Protocol
	// Stop lists end-of-turn markers a generator should stop on.
	Stop []string
}

// New compiles a template.
func New(opts Options) (*Template, error) {
	tpl, err := gonja.FromString(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("chattemplate: compile %s: %w", opts.Name, err)
	}

	return &Template{
		name:     opts.Name,
		protocol: opts.Protocol,
		stop:     opts.Stop,
		execute: func(data map[string]any) (string, error) {
			return tpl.Execute(data)
		},
	}, nil
}

// Name returns the template name.
func (t *Template) Name() string { return t.name }

// Protocol returns the tool-call protocol the template teaches the model.
func (t *Template) Protocol() toolcall.Protocol { return t.protocol }

// Stop returns the end-of-turn markers for generators.
func (t *Template) Stop() []string { return t.stop }

// Render produces the prompt for c, advertising tools, and ends with an open
// assistant turn for the model to continue.
func (t *Template) Render(c *chat.Chat, tools []toolbox.Descriptor) (string, error) {
	manifest := make([]string, 0, len(tools))
	for _, d := range tools {
		line, err := toolbox.EncodeJSON(d.Definition())
		if err != nil {
			return "", fmt.Errorf("chattemplate: encode tool %s: %w", d.Name, err)
		}
		manifest = append(manifest, line)
	}

	out, err := t.execute(map[string]any{
		"system":                c.SystemPrompt(),
		"tools":                 manifest,
		"messages":              t.turns(c),
		"add_generation_prompt": true,
	})
	if err != nil {
		return "", fmt.Errorf("chattemplate: render %s: %w", t.name, err)
	}

	return out, nil
}

// turns flattens the conversation into template turns. System turns are
// exposed separately through "system". Consecutive tool turns merge into a
// single user turn, one <tool_response> block per result in order.
func (t *Template) turns(c *chat.Chat) []map[string]string {
	var (
		out     []map[string]string
		pending []string
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		out = append(out, map[string]string{"role": "user", "content": strings.Join(pending, "\n")})
		pending = nil
	}

	c.Each(func(_ int, m message.Message) bool {
		switch m.Role {
		case role.System:
			return true
		case role.Tool:
			for _, tr := range m.ToolResults() {
				pending = append(pending, "<tool_response>\n"+tr.Content+"\n</tool_response>")
			}
			if len(m.ToolResults()) == 0 {
				pending = append(pending, "<tool_response>\n"+m.TextContent()+"\n</tool_response>")
			}
			return true
		}

		flush()
		out = append(out, map[string]string{"role": m.Role.String(), "content": t.messageContent(m)})

		return true
	})
	flush()

	return out
}

func (t *Template) messageContent(m message.Message) string {
	parts := []string{}
	if text := m.TextContent(); text != "" {
		parts = append(parts, text)
	}
	for _, tc := range m.ToolCalls() {
		parts = append(parts, t.protocol.Format(tc.Name, json.RawMessage(tc.Arguments)))
	}

	return strings.Join(parts, "\n")
}
