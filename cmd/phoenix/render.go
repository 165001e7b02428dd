package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/germanamz/phoenix/pkg/chats/chat"
	"github.com/germanamz/phoenix/pkg/chats/content"
	"github.com/germanamz/phoenix/pkg/chats/message"
	"github.com/germanamz/phoenix/pkg/chats/role"
	"github.com/mattn/go-runewidth"
)

// newMarkdownRenderer returns nil when glamour cannot build a renderer, in
// which case answers print as plain text.
func newMarkdownRenderer(width int) *glamour.TermRenderer {
	if width <= 0 {
		width = outputWidth
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}

// renderAnswer converts markdown text to terminal-formatted output.
func renderAnswer(r *glamour.TermRenderer, text string) string {
	if r == nil {
		return text
	}
	out, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// preview flattens s to one line that fits in width terminal cells.
func preview(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

func roleLabel(r role.Role) string {
	var style lipgloss.Style
	switch r {
	case role.System:
		style = systemLabelStyle
	case role.User:
		style = userLabelStyle
	case role.Assistant:
		style = assistantLabelStyle
	case role.Tool:
		style = toolLabelStyle
	default:
		style = lipgloss.NewStyle()
	}
	return style.Render(r.String())
}

// renderConversation dumps every turn of c. Text is printed in full; tool
// call arguments and results are shortened to width cells.
func renderConversation(c *chat.Chat, width int) string {
	var sb strings.Builder

	sb.WriteString(headerStyle.Render(fmt.Sprintf("Conversation (%d turns)", c.Len())))

	c.Each(func(i int, m message.Message) bool {
		sb.WriteString("\n\n")
		sb.WriteString(fmt.Sprintf("%d. %s", i+1, roleLabel(m.Role)))
		if body := renderParts(m, width); body != "" {
			sb.WriteString("\n")
			sb.WriteString(turnBlockStyle.Render(body))
		}
		return true
	})

	return sb.String()
}

func renderParts(m message.Message, width int) string {
	lines := make([]string, 0, len(m.Parts))

	for _, p := range m.Parts {
		switch p := p.(type) {
		case content.Text:
			if p.Text != "" {
				lines = append(lines, p.Text)
			}
		case content.ToolCall:
			lines = append(lines, callArrow+toolNameStyle.Render(p.Name)+" "+preview(p.Arguments, width))
		case content.ToolResult:
			style := toolResultStyle
			if p.IsError {
				style = toolErrorStyle
			}
			lines = append(lines, resultArrow+toolNameStyle.Render(p.Name)+" "+style.Render(preview(p.Content, width)))
		}
	}

	return strings.Join(lines, "\n")
}
