package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Runner executes a loop and returns its final answer.
type Runner interface {
	Run(ctx context.Context) (string, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context) (string, error)

// Run calls the underlying function.
func (f RunnerFunc) Run(ctx context.Context) (string, error) {
	return f(ctx)
}

// Middleware wraps a Runner, returning a new Runner with added behaviour.
type Middleware func(next Runner) Runner

// --- Timeout middleware ---

// Timeout returns a Middleware that bounds the whole run with a deadline. The
// deadline reaches the backend through the context; a generation cut short
// fails the run like any other provider error.
func Timeout(d time.Duration) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (string, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()

			return next.Run(ctx)
		})
	}
}

// --- Recovery middleware ---

// Recovery returns a Middleware that catches panics and converts them to errors.
func Recovery() Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (answer string, err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("agent panicked: %v", r)
				}
			}()

			return next.Run(ctx)
		})
	}
}

// --- Logger middleware ---

// Logger returns a Middleware that logs run start, duration, and error.
func Logger(log *slog.Logger, name string) Middleware {
	return func(next Runner) Runner {
		return RunnerFunc(func(ctx context.Context) (string, error) {
			log.InfoContext(ctx, "agent started", "agent", name)

			start := time.Now()

			answer, err := next.Run(ctx)

			duration := time.Since(start)

			if err != nil {
				log.ErrorContext(ctx, "agent finished with error",
					"agent", name,
					"duration", duration,
					"error", err,
				)
			} else {
				log.InfoContext(ctx, "agent finished",
					"agent", name,
					"duration", duration,
					"answer_len", len(answer),
				)
			}

			return answer, err
		})
	}
}
