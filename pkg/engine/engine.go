package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/germanamz/phoenix/pkg/agent"
	"github.com/germanamz/phoenix/pkg/tools/fetch"
	"github.com/germanamz/phoenix/pkg/tools/mcpclient"
	"github.com/germanamz/phoenix/pkg/tools/memory"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
)

// DefaultTask is run when the config names no task.
const DefaultTask = "Read the memory and tell me what the user likes"

// DefaultMaxLoop is the structured round budget when max_loop is unset.
// Text-protocol loops fall back to agent.DefaultTextProtocolMaxLoop.
const DefaultMaxLoop = 5

// Engine is the composition root: it builds the model backend, the tool
// registry and the MCP connections from a Config and hands out loops wired
// to them.
type Engine struct {
	cfg        Config
	log        *slog.Logger
	backend    Backend
	registry   *toolbox.Registry
	memory     *memory.Store
	timeout    time.Duration
	mcpClients []*mcpclient.MCPClient
}

// New creates an Engine from the given configuration. It validates the
// config, builds the provider backend, registers the built-in tools and
// connects every configured MCP server.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := buildBackend(cfg.Provider)
	if err != nil {
		return nil, err
	}

	registry, store, err := builtins(cfg)
	if err != nil {
		return nil, err
	}

	// Validate already parsed it.
	timeout, _ := parseDuration(cfg.Loop.Timeout)

	e := &Engine{
		cfg:      cfg,
		log:      slog.Default().With("component", "engine"),
		backend:  backend,
		registry: registry,
		memory:   store,
		timeout:  timeout,
	}

	for _, mc := range cfg.MCPServers {
		if err := e.connectMCP(ctx, mc); err != nil {
			_ = e.Close()
			return nil, err
		}
	}

	return e, nil
}

// BuiltinRegistry returns a registry holding the memory and fetch tools
// configured by cfg.
func BuiltinRegistry(cfg Config) (*toolbox.Registry, error) {
	reg, _, err := builtins(cfg)
	return reg, err
}

func builtins(cfg Config) (*toolbox.Registry, *memory.Store, error) {
	fetchTimeout, err := parseDuration(cfg.Fetch.Timeout)
	if err != nil {
		return nil, nil, fmt.Errorf("engine: fetch timeout: %w", err)
	}

	store := memory.New(cfg.Memory.Path, cfg.Memory.ReadLimit)
	fetcher := fetch.New(fetch.Options{
		MaxChars: cfg.Fetch.MaxChars,
		Timeout:  fetchTimeout,
	})

	reg := toolbox.New()
	reg.Register(store.Tools()...)
	reg.Register(fetcher.Tool())

	return reg, store, nil
}

func (e *Engine) connectMCP(ctx context.Context, mc MCPConfig) error {
	var (
		client *mcpclient.MCPClient
		err    error
	)
	if mc.URL != "" {
		client, err = mcpclient.NewSSE(ctx, mc.URL)
	} else {
		client, err = mcpclient.New(ctx, mc.Command, mc.Args...)
	}
	if err != nil {
		return fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
	}
	e.mcpClients = append(e.mcpClients, client)

	remote := toolbox.New()
	if err := client.Register(ctx, remote); err != nil {
		return fmt.Errorf("engine: mcp %q: %w", mc.Name, err)
	}
	e.registry.Merge(remote)

	e.log.InfoContext(ctx, "mcp server connected", "name", mc.Name, "tools", remote.Len())

	return nil
}

// Config returns the configuration the engine was built from.
func (e *Engine) Config() Config { return e.cfg }

// Backend returns the model backend and its loop variant.
func (e *Engine) Backend() Backend { return e.backend }

// Registry returns the shared tool registry.
func (e *Engine) Registry() *toolbox.Registry { return e.registry }

// Memory returns the memory store behind the memory tools.
func (e *Engine) Memory() *memory.Store { return e.memory }

// Task returns the configured task, or DefaultTask.
func (e *Engine) Task() string {
	if e.cfg.Task != "" {
		return e.cfg.Task
	}

	return DefaultTask
}

// MaxLoop returns the round budget loops are created with.
func (e *Engine) MaxLoop() int {
	if e.cfg.Loop.MaxLoop > 0 {
		return e.cfg.Loop.MaxLoop
	}
	if e.backend.Variant == agent.TextProtocol {
		return agent.DefaultTextProtocolMaxLoop
	}

	return DefaultMaxLoop
}

// NewLoop returns a loop over the engine's backend and registry, with a
// fresh conversation. name labels the run in logs.
func (e *Engine) NewLoop(name string) *agent.Loop {
	mw := []agent.Middleware{
		agent.Logger(e.log, name),
		agent.Recovery(),
	}
	if e.timeout > 0 {
		mw = append(mw, agent.Timeout(e.timeout))
	}

	opts := agent.Options{
		MaxLoop:    e.MaxLoop(),
		Middleware: mw,
		Logger:     e.log,
	}

	if e.backend.Variant == agent.TextProtocol {
		return agent.NewTextProtocol(e.backend.Completer, e.registry, opts)
	}

	return agent.NewStructured(e.backend.Completer, e.registry, opts)
}

// Close shuts down MCP clients.
func (e *Engine) Close() error {
	var firstErr error
	for _, c := range e.mcpClients {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	e.mcpClients = nil

	return firstErr
}
