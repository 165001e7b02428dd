package agent

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- test helpers ---

func stubRunner(answer string, err error) Runner {
	return RunnerFunc(func(_ context.Context) (string, error) {
		return answer, err
	})
}

func panicRunner() Runner {
	return RunnerFunc(func(_ context.Context) (string, error) {
		panic("something went wrong")
	})
}

func slowRunner(delay time.Duration) Runner {
	return RunnerFunc(func(ctx context.Context) (string, error) {
		select {
		case <-time.After(delay):
			return "done", nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
}

// --- Timeout tests ---

func TestTimeout(t *testing.T) {
	answer, err := Timeout(time.Second)(stubRunner("done", nil)).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "done", answer)
}

func TestTimeoutExpires(t *testing.T) {
	_, err := Timeout(50 * time.Millisecond)(slowRunner(time.Second)).Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// --- Recovery tests ---

func TestRecovery(t *testing.T) {
	answer, err := Recovery()(stubRunner("ok", nil)).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ok", answer)
}

func TestRecoveryCatchesPanic(t *testing.T) {
	answer, err := Recovery()(panicRunner()).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent panicked")
	assert.Contains(t, err.Error(), "something went wrong")
	assert.Empty(t, answer)
}

// --- Logger tests ---

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	answer, err := Logger(log, "phoenix")(stubRunner("hello", nil)).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "hello", answer)
	assert.Contains(t, buf.String(), "agent started")
	assert.Contains(t, buf.String(), "agent finished")
	assert.Contains(t, buf.String(), "agent=phoenix")
	assert.Contains(t, buf.String(), "answer_len=5")
}

func TestLoggerError(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))

	_, err := Logger(log, "phoenix")(stubRunner("", errors.New("provider down"))).Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, buf.String(), "agent finished with error")
	assert.Contains(t, buf.String(), "provider down")
}

// --- chaining ---

func TestMiddlewareOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Runner) Runner {
			return RunnerFunc(func(ctx context.Context) (string, error) {
				order = append(order, name)
				return next.Run(ctx)
			})
		}
	}

	l := NewStructured(&sequenceCompleter{replies: textReplies("done")}, nil, Options{
		Middleware: []Middleware{mark("outer"), mark("inner")},
	})

	_, err := l.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestRecoveryAroundLoop(t *testing.T) {
	l := NewStructured(panicCompleter{}, nil, Options{Middleware: []Middleware{Recovery()}})

	_, err := l.Run(context.Background())
	assert.ErrorContains(t, err, "agent panicked: completer exploded")
}
