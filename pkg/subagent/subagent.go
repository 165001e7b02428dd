// Package subagent runs a single task on a fresh conversation.
//
// A Subagent seeds a two-turn context (a restricted persona and the task)
// and hands it to a Loop. A supplied Loop is reused as an engine: whatever
// conversation it held before is replaced, never extended.
package subagent

import (
	"context"
	"fmt"

	"github.com/germanamz/phoenix/pkg/agent"
	"github.com/germanamz/phoenix/pkg/chats/chat"
	"github.com/germanamz/phoenix/pkg/chats/message"
	"github.com/germanamz/phoenix/pkg/chats/role"
	"github.com/germanamz/phoenix/pkg/chattemplate"
	"github.com/germanamz/phoenix/pkg/providers/ollama"
	"github.com/germanamz/phoenix/pkg/providers/textproto"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
)

// Persona is the system turn of every subagent conversation.
const Persona = "You are a subagent that only does what's provided to you and nothing else!"

const sender = "subagent"

// Context builds the initial conversation for task.
func Context(task string) *chat.Chat {
	prompt := fmt.Sprintf(
		"You have been given the following task info: %s. "+
			"Try to execute the provided task by using all the tools available to you.",
		task,
	)

	return chat.New(
		message.NewText(sender, role.System, Persona),
		message.NewText(sender, role.User, prompt),
	)
}

// Subagent executes Task on Loop.
type Subagent struct {
	Task string
	Loop *agent.Loop
}

// New creates a Subagent. loop may be nil, in which case Run builds
// DefaultLoop on first use.
func New(task string, loop *agent.Loop) *Subagent {
	return &Subagent{Task: task, Loop: loop}
}

// Run resets the loop's conversation to Context(Task) and runs it.
func (s *Subagent) Run(ctx context.Context) (string, error) {
	if s.Loop == nil {
		loop, err := DefaultLoop()
		if err != nil {
			return "", fmt.Errorf("subagent: %w", err)
		}
		s.Loop = loop
	}

	s.Loop.Chat().Reset(Context(s.Task).Messages()...)

	return s.Loop.Run(ctx)
}

// DefaultLoop is a text-protocol loop over a local Ollama model with no
// tools registered.
func DefaultLoop() (*agent.Loop, error) {
	tpl := chattemplate.ChatML()

	gen, err := ollama.New(ollama.Options{
		Model: ollama.DefaultModel,
		Stop:  tpl.Stop(),
	})
	if err != nil {
		return nil, err
	}

	backend := textproto.New(gen, tpl)

	return agent.NewTextProtocol(backend, toolbox.New(), agent.Options{}), nil
}
