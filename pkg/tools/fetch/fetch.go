// Package fetch provides the fetch_url tool: an HTTP GET whose body, raw or
// reduced to readable text, is returned truncated to a character budget.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/germanamz/phoenix/pkg/tools/toolbox"
)

// Defaults for a zero Options.
const (
	DefaultMaxChars = 1000
	DefaultTimeout  = 30 * time.Second
)

// maxBodyBytes caps how much of a response is read before truncation.
const maxBodyBytes = 4 << 20

const userAgent = "phoenix-fetch/1.0"

// Options configures a Fetcher.
type Options struct {
	MaxChars int           // Characters of content returned (default 1000).
	Timeout  time.Duration // Per-request timeout when Client is nil (default 30s).
	Client   *http.Client
}

// Fetcher performs GET requests on behalf of a model.
type Fetcher struct {
	client   *http.Client
	maxChars int
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}

	client := opts.Client
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		client = &http.Client{Timeout: timeout}
	}

	return &Fetcher{client: client, maxChars: opts.MaxChars}
}

// Fetch GETs url. With text set, HTML is reduced to its visible text.
func (f *Fetcher) Fetch(ctx context.Context, url string, text bool) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch content, status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	content := string(body)
	if text {
		if content, err = readableText(content); err != nil {
			return "", fmt.Errorf("extract text: %w", err)
		}
	}

	return truncate(content, f.maxChars), nil
}

// readableText drops non-content elements and collapses whitespace.
func readableText(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript, template").Remove()

	var parts []string
	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		parts = append(parts, title)
	}
	if body := strings.Join(strings.Fields(doc.Find("body").Text()), " "); body != "" {
		parts = append(parts, body)
	}

	return strings.Join(parts, "\n\n"), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

type fetchArgs struct {
	URL  string `json:"url" jsonschema:"description=The fully-qualified URL to fetch (must start with http:// or https://)." validate:"required,http_url"`
	Text bool   `json:"text,omitempty" jsonschema:"description=Return readable text instead of raw HTML"`
}

// Tool returns the fetch_url factory.
func (f *Fetcher) Tool() toolbox.Factory {
	return toolbox.Define("fetch_url",
		"Fetch a URL via HTTP GET and return its content as text. If the request fails, return an error message.",
		func(ctx context.Context, args fetchArgs) (toolbox.Result, error) {
			content, err := f.Fetch(ctx, args.URL, args.Text)
			if err != nil {
				return nil, err
			}

			return toolbox.Result{"url": args.URL, "content": content}, nil
		})
}
