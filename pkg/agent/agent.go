// Package agent runs the tool-calling loop: generate, dispatch the requested
// tools through a Registry, feed the results back, and repeat until the model
// answers without tool calls or the round budget runs out.
//
// One Loop type serves both execution strategies. A structured loop talks to
// a backend with a native tool-call channel and correlates results by call
// ID. A text-protocol loop talks to a backend that extracts directives from
// free text (see the textproto provider) and correlates results by position.
// The variants differ only in how turns are recorded and in their final
// answer policy.
package agent

import (
	"context"
	"log/slog"

	"github.com/germanamz/phoenix/pkg/chats/chat"
	"github.com/germanamz/phoenix/pkg/chats/content"
	"github.com/germanamz/phoenix/pkg/chats/message"
	"github.com/germanamz/phoenix/pkg/chats/role"
	"github.com/germanamz/phoenix/pkg/modeladapter"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
)

// Variant selects the loop's execution strategy.
type Variant int

const (
	// Structured loops record whole replies, tool calls included, and echo
	// call IDs on tool turns.
	Structured Variant = iota
	// TextProtocol loops record only the visible text of replies and leave
	// tool turns without IDs.
	TextProtocol
)

func (v Variant) String() string {
	switch v {
	case Structured:
		return "structured"
	case TextProtocol:
		return "text-protocol"
	default:
		return "unknown"
	}
}

// Default round budgets per variant.
const (
	DefaultStructuredMaxLoop   = 10
	DefaultTextProtocolMaxLoop = 3
)

// Fallback answers of the structured variant when the model returns no text.
const (
	NoResponse     = "No response generated"
	MaxLoopReached = "Max loop reached"
)

const sender = "agent"

// Options configures a Loop.
type Options struct {
	MaxLoop    int          // Dispatch rounds before the forced final generation (0 = variant default).
	Middleware []Middleware // Applied around Run, first is outermost.
	Logger     *slog.Logger // Defaults to slog.Default().
}

// Loop drives one conversation against a model. A Loop owns its Chat while
// Run executes and must not be run concurrently with itself.
type Loop struct {
	variant   Variant
	completer modeladapter.Completer
	registry  *toolbox.Registry
	chat      *chat.Chat
	maxLoop   int
	opts      Options
	log       *slog.Logger
}

// NewStructured creates a loop for a backend with native tool calls.
func NewStructured(completer modeladapter.Completer, registry *toolbox.Registry, opts Options) *Loop {
	return newLoop(Structured, DefaultStructuredMaxLoop, completer, registry, opts)
}

// NewTextProtocol creates a loop for a backend that embeds tool calls in text.
func NewTextProtocol(completer modeladapter.Completer, registry *toolbox.Registry, opts Options) *Loop {
	return newLoop(TextProtocol, DefaultTextProtocolMaxLoop, completer, registry, opts)
}

func newLoop(v Variant, defaultMax int, completer modeladapter.Completer, registry *toolbox.Registry, opts Options) *Loop {
	maxLoop := opts.MaxLoop
	if maxLoop <= 0 {
		maxLoop = defaultMax
	}

	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	if registry == nil {
		registry = toolbox.New()
	}

	return &Loop{
		variant:   v,
		completer: completer,
		registry:  registry,
		chat:      chat.New(),
		maxLoop:   maxLoop,
		opts:      opts,
		log:       log.With("loop", v.String()),
	}
}

// Variant returns the loop's execution strategy.
func (l *Loop) Variant() Variant { return l.variant }

// MaxLoop returns the effective round budget.
func (l *Loop) MaxLoop() int { return l.maxLoop }

// Registry returns the tools the loop dispatches to.
func (l *Loop) Registry() *toolbox.Registry { return l.registry }

// Completer returns the model backend.
func (l *Loop) Completer() modeladapter.Completer { return l.completer }

// Chat returns the conversation the loop appends to.
func (l *Loop) Chat() *chat.Chat { return l.chat }

// SetChat hands the loop a new conversation, dropping the previous one.
func (l *Loop) SetChat(c *chat.Chat) {
	if c == nil {
		c = chat.New()
	}
	l.chat = c
}

// Run executes the loop with middleware applied and returns the final answer.
// Provider errors are returned as is; tool failures never are.
func (l *Loop) Run(ctx context.Context) (string, error) {
	var runner Runner = RunnerFunc(l.run)

	for i := len(l.opts.Middleware) - 1; i >= 0; i-- {
		runner = l.opts.Middleware[i](runner)
	}

	return runner.Run(ctx)
}

func (l *Loop) run(ctx context.Context) (string, error) {
	tools := l.registry.Descriptors()

	// lastVisible is the latest assistant text recorded by a text-protocol run.
	var lastVisible string

	for round := range l.maxLoop {
		reply, err := l.completer.Complete(ctx, l.chat, tools)
		if err != nil {
			return "", err
		}

		calls := reply.ToolCalls()
		text := reply.TextContent()

		switch {
		case l.variant == TextProtocol && text != "":
			l.chat.Append(message.NewText(sender, role.Assistant, text))
			lastVisible = text
		case l.variant == Structured && (len(calls) > 0 || text != ""):
			reply.Sender = sender
			l.chat.Append(reply)
		}

		if len(calls) == 0 {
			return l.answer(reply, lastVisible), nil
		}

		l.log.DebugContext(ctx, "dispatch round", "round", round+1, "calls", len(calls))

		for _, tc := range calls {
			l.chat.Append(message.New(sender, role.Tool, l.dispatch(ctx, tc)))
		}
	}

	l.log.InfoContext(ctx, "round budget exhausted", "max_loop", l.maxLoop)

	final, err := l.completer.Complete(ctx, l.chat, tools)
	if err != nil {
		return "", err
	}

	return l.finalAnswer(final), nil
}

// dispatch runs one call. Results never carry an error past this point.
func (l *Loop) dispatch(ctx context.Context, tc content.ToolCall) content.ToolResult {
	if l.variant == TextProtocol {
		tc.ID = ""
	}

	res := l.registry.Call(ctx, tc)
	if res.IsError {
		l.log.WarnContext(ctx, "tool failed", "tool", tc.Name, "result", res.Content)
	} else {
		l.log.DebugContext(ctx, "tool succeeded", "tool", tc.Name)
	}

	return res
}

// answer is the result of a round that requested no tools.
func (l *Loop) answer(reply message.Message, lastVisible string) string {
	if l.variant == TextProtocol {
		if lastVisible != "" {
			return lastVisible
		}
		raw, ok := reply.RawOutput()
		if !ok {
			raw = reply.TextContent()
		}
		return raw
	}

	if text := reply.TextContent(); text != "" {
		return text
	}

	return NoResponse
}

// finalAnswer is the result of the forced generation after the budget runs
// out. Structured loops keep the text and record it; text-protocol loops
// return the raw output untouched and record nothing.
func (l *Loop) finalAnswer(reply message.Message) string {
	if l.variant == TextProtocol {
		if raw, ok := reply.RawOutput(); ok {
			return raw
		}
		return reply.TextContent()
	}

	text := reply.TextContent()
	if text == "" {
		return MaxLoopReached
	}

	l.chat.Append(message.NewText(sender, role.Assistant, text))

	return text
}
