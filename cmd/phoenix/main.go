// Command phoenix runs one subagent over the configured model and tools,
// then prints its answer and the conversation that produced it.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/germanamz/phoenix/pkg/engine"
	"github.com/germanamz/phoenix/pkg/subagent"
	"github.com/joho/godotenv"
)

// logLevelEnv selects the stderr log level.
const logLevelEnv = "PHOENIX_LOG_LEVEL"

// outputWidth bounds rendered answers and transcript previews.
const outputWidth = 100

func main() {
	if err := loadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(os.Stderr, os.Getenv(logLevelEnv)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, out io.Writer) error {
	cfg, err := engine.Load("")
	if err != nil {
		return err
	}

	eng, err := engine.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = eng.Close() }()

	sa := subagent.New(eng.Task(), eng.NewLoop("subagent"))

	answer, err := sa.Run(ctx)
	if err != nil {
		return err
	}

	renderer := newMarkdownRenderer(outputWidth)

	fmt.Fprintln(out, renderAnswer(renderer, answer))
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderConversation(sa.Loop.Chat(), outputWidth))

	return nil
}

// loadDotEnv loads environment variables from path. Missing files are ignored.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// newLogger returns a text logger on w. Unknown levels fall back to info.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
