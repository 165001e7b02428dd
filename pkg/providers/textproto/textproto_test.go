package textproto_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/germanamz/phoenix/pkg/chats/chat"
	"github.com/germanamz/phoenix/pkg/chats/message"
	"github.com/germanamz/phoenix/pkg/chats/role"
	"github.com/germanamz/phoenix/pkg/modeladapter"
	"github.com/germanamz/phoenix/pkg/providers/textproto"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGenerator records prompts and replays outputs in order.
type fakeGenerator struct {
	outputs []string
	err     error
	prompts []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	out := g.outputs[0]
	g.outputs = g.outputs[1:]
	return out, nil
}

var _ modeladapter.Generator = (*fakeGenerator)(nil)

func newChat() *chat.Chat {
	return chat.New(
		message.NewText("", role.System, "Execute only what is provided."),
		message.NewText("", role.User, "Read the memory"),
	)
}

func TestComplete_TextOnly(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{"  The user likes tea.  "}}
	a := textproto.New(gen, nil)

	msg, err := a.Complete(context.Background(), newChat(), nil)
	require.NoError(t, err)

	assert.Equal(t, role.Assistant, msg.Role)
	assert.Equal(t, "The user likes tea.", msg.TextContent())
	assert.Empty(t, msg.ToolCalls())

	raw, ok := msg.RawOutput()
	require.True(t, ok)
	assert.Equal(t, "  The user likes tea.  ", raw)
}

func TestComplete_ToolCalls(t *testing.T) {
	out := "Let me look.\n<tool_call>\n{\"name\": \"read_memory\", \"arguments\": {\"truncate\": false}}\n</tool_call>\n<tool_call>{oops}</tool_call>"
	gen := &fakeGenerator{outputs: []string{out}}
	a := textproto.New(gen, nil)

	tools := []toolbox.Descriptor{{Name: "read_memory", Description: "Reads the memory"}}
	msg, err := a.Complete(context.Background(), newChat(), tools)
	require.NoError(t, err)

	assert.Equal(t, "Let me look.", msg.TextContent())

	calls := msg.ToolCalls()
	require.Len(t, calls, 1)
	assert.Empty(t, calls[0].ID)
	assert.Equal(t, "read_memory", calls[0].Name)
	assert.Equal(t, `{"truncate":false}`, calls[0].Arguments)

	raw, _ := msg.RawOutput()
	assert.Equal(t, out, raw)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], `"name":"read_memory"`)
	assert.True(t, strings.HasSuffix(gen.prompts[0], "<|im_start|>assistant\n"))
}

func TestComplete_OnlyDirectives(t *testing.T) {
	gen := &fakeGenerator{outputs: []string{`<tool_call>{"name":"read_memory"}</tool_call>`}}
	a := textproto.New(gen, nil)

	msg, err := a.Complete(context.Background(), newChat(), nil)
	require.NoError(t, err)

	assert.Empty(t, msg.TextContent())
	assert.Len(t, msg.ToolCalls(), 1)
}

func TestComplete_GeneratorError(t *testing.T) {
	boom := errors.New("runtime down")
	a := textproto.New(&fakeGenerator{err: boom}, nil)

	_, err := a.Complete(context.Background(), newChat(), nil)
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "textproto: ")
}

func TestUsageFallback(t *testing.T) {
	a := textproto.New(&fakeGenerator{}, nil)

	assert.Equal(t, 0, a.UsageTracker().Count())
	assert.Equal(t, 0, a.ModelMaxTokens())
	assert.Equal(t, "chatml-hermes", a.Template().Name())
}
