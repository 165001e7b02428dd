package modeladapter

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/germanamz/phoenix/pkg/chats/chat"
	"github.com/germanamz/phoenix/pkg/chats/message"
	"github.com/germanamz/phoenix/pkg/modeladapter/usage"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
)

var _ Completer = (*RetryCompleter)(nil)

// RetryOpts configures a RetryCompleter.
type RetryOpts struct {
	MaxRetries int           // Max retries on 429 (default 3).
	BaseDelay  time.Duration // Initial backoff delay (default 1s).
}

// RetryCompleter wraps a Completer and retries completions rejected with a
// *RateLimitError, backing off exponentially with jitter. Every other error
// is returned on the first attempt. When the inner completer reports that
// its provider quota is nearly spent, a successful call waits for the reset
// before returning.
type RetryCompleter struct {
	inner      Completer
	maxRetries int
	baseDelay  time.Duration

	fallbackTracker usage.Tracker

	nowFunc   func() time.Time
	sleepFunc func(ctx context.Context, d time.Duration) error
	randFunc  func() float64
}

// NewRetryCompleter wraps inner with rate-limit retries.
func NewRetryCompleter(inner Completer, opts RetryOpts) *RetryCompleter {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 3
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = time.Second
	}

	return &RetryCompleter{
		inner:      inner,
		maxRetries: opts.MaxRetries,
		baseDelay:  opts.BaseDelay,
		nowFunc:    time.Now,
		sleepFunc:  contextSleep,
		randFunc:   rand.Float64,
	}
}

// SetNowFunc overrides the time source (for testing).
func (r *RetryCompleter) SetNowFunc(fn func() time.Time) { r.nowFunc = fn }

// SetSleepFunc overrides the sleep function (for testing).
func (r *RetryCompleter) SetSleepFunc(fn func(ctx context.Context, d time.Duration) error) {
	r.sleepFunc = fn
}

// SetRandFunc overrides the random number generator (for testing).
func (r *RetryCompleter) SetRandFunc(fn func() float64) { r.randFunc = fn }

// contextSleep sleeps for d or until ctx is cancelled.
func contextSleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// jitter applies ±25% random jitter to a duration.
func (r *RetryCompleter) jitter(d time.Duration) time.Duration {
	factor := 0.75 + r.randFunc()*0.5 //nolint:mnd // jitter range: ±25%
	return time.Duration(float64(d) * factor)
}

// Complete implements Completer.
func (r *RetryCompleter) Complete(ctx context.Context, c *chat.Chat, tools []toolbox.Descriptor) (message.Message, error) {
	var lastErr error

	for attempt := range r.maxRetries + 1 {
		msg, err := r.inner.Complete(ctx, c, tools)
		if err == nil {
			if err := r.waitForReset(ctx); err != nil {
				return message.Message{}, err
			}
			return msg, nil
		}

		var rle *RateLimitError
		if !errors.As(err, &rle) {
			return message.Message{}, err
		}

		lastErr = err
		if attempt == r.maxRetries {
			break
		}

		// baseDelay * 2^attempt, or Retry-After when the server asks for longer.
		backoff := r.jitter(max(r.baseDelay<<attempt, rle.RetryAfter))
		if err := r.sleepFunc(ctx, backoff); err != nil {
			return message.Message{}, err
		}
	}

	return message.Message{}, lastErr
}

// waitForReset sleeps until the provider's reset time when the inner
// completer reports near-zero remaining requests or tokens.
func (r *RetryCompleter) waitForReset(ctx context.Context) error {
	reporter, ok := r.inner.(RateLimitInfoReporter)
	if !ok {
		return nil
	}

	info := reporter.LastRateLimitInfo()
	if info == nil {
		return nil
	}

	now := r.nowFunc()
	var until time.Time

	if info.RemainingRequests <= 1 && info.RequestsReset.After(now) {
		until = info.RequestsReset
	}
	if info.RemainingTokens <= 1 && info.TokensReset.After(now) && info.TokensReset.After(until) {
		until = info.TokensReset
	}

	if until.IsZero() {
		return nil
	}

	return r.sleepFunc(ctx, until.Sub(now))
}

// UsageTracker forwards to the inner completer if it implements UsageReporter.
func (r *RetryCompleter) UsageTracker() *usage.Tracker {
	if ur, ok := r.inner.(UsageReporter); ok {
		return ur.UsageTracker()
	}
	return &r.fallbackTracker
}

// ModelMaxTokens forwards to the inner completer if it implements UsageReporter.
func (r *RetryCompleter) ModelMaxTokens() int {
	if ur, ok := r.inner.(UsageReporter); ok {
		return ur.ModelMaxTokens()
	}
	return 0
}
