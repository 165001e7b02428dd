// Command phoenix-mcp serves the built-in memory and fetch tools over MCP on
// stdin and stdout.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/germanamz/phoenix/pkg/engine"
	"github.com/germanamz/phoenix/pkg/tools/mcpserver"
	"github.com/joho/godotenv"
)

const (
	serverName    = "phoenix"
	serverVersion = "0.1.0"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the protocol, so logs go to stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := engine.Load("")
	if err != nil {
		return err
	}

	reg, err := engine.BuiltinRegistry(cfg)
	if err != nil {
		return err
	}

	srv := mcpserver.New(serverName, serverVersion)
	srv.Register(reg)

	slog.InfoContext(ctx, "serving tools over stdio", "tools", reg.Len())

	err = srv.ServeStdio(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
