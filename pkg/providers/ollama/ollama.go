// Package ollama generates raw completions from a local Ollama runtime.
//
// The client talks to /api/generate in raw mode, so the prompt must already
// be rendered with the model's chat template. It implements
// modeladapter.Generator and is usually wrapped by the textproto backend.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/germanamz/phoenix/pkg/modeladapter"
	"github.com/germanamz/phoenix/pkg/modeladapter/usage"
	"github.com/ollama/ollama/api"
)

// DefaultBaseURL is where a local Ollama runtime listens by default.
const DefaultBaseURL = "http://localhost:11434"

// DefaultModel is the small instruction-tuned model used when none is set.
const DefaultModel = "qwen3:4b-instruct"

var _ modeladapter.Generator = (*Client)(nil)

// Options configures a Client.
type Options struct {
	BaseURL     string        // Defaults to DefaultBaseURL.
	Model       string        // Defaults to DefaultModel.
	MaxTokens   int           // num_predict; zero leaves the runtime default.
	Temperature float64       // Sampling temperature; zero leaves the runtime default.
	Stop        []string      // Stop sequences, e.g. the template's end-of-turn marker.
	HTTPClient  *http.Client  // Defaults to a client with Timeout.
	Timeout     time.Duration // Used only when HTTPClient is nil. Defaults to 10 minutes.
}

// Client is a raw-mode Ollama generator.
type Client struct {
	api   *api.Client
	model string
	opts  map[string]any
	max   int

	Usage usage.Tracker
}

// New creates a Client.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}

	u, err := url.Parse(strings.TrimSuffix(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("ollama: invalid base url %q: %w", opts.BaseURL, err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Minute
		}
		hc = &http.Client{Timeout: timeout}
	}

	params := map[string]any{}
	if opts.MaxTokens > 0 {
		params["num_predict"] = opts.MaxTokens
	}
	if opts.Temperature != 0 {
		params["temperature"] = opts.Temperature
	}
	if len(opts.Stop) > 0 {
		params["stop"] = opts.Stop
	}

	return &Client{
		api:   api.NewClient(u, hc),
		model: opts.Model,
		opts:  params,
		max:   opts.MaxTokens,
	}, nil
}

// Model returns the model name requests are sent for.
func (c *Client) Model() string { return c.model }

// Generate sends prompt verbatim and returns the model's continuation.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	stream := false
	req := &api.GenerateRequest{
		Model:   c.model,
		Prompt:  prompt,
		Raw:     true,
		Stream:  &stream,
		Options: c.opts,
	}

	var (
		out  strings.Builder
		last api.GenerateResponse
	)

	err := c.api.Generate(ctx, req, func(gr api.GenerateResponse) error {
		out.WriteString(gr.Response)
		last = gr
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("ollama: %w", translateError(err))
	}

	c.Usage.Add(usage.TokenCount{
		InputTokens:  last.PromptEvalCount,
		OutputTokens: last.EvalCount,
	})

	return out.String(), nil
}

// UsageTracker returns the client's token usage tracker.
func (c *Client) UsageTracker() *usage.Tracker { return &c.Usage }

// ModelMaxTokens returns the configured generation limit.
func (c *Client) ModelMaxTokens() int { return c.max }

// translateError maps a 429 from the runtime to *modeladapter.RateLimitError
// so callers can treat every provider the same.
func translateError(err error) error {
	var se api.StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusTooManyRequests {
		return &modeladapter.RateLimitError{Body: se.ErrorMessage}
	}
	return err
}
