// Package memory provides long-term memory tools backed by a single
// append-only text file.
package memory

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/germanamz/phoenix/pkg/tools/toolbox"
)

// DefaultReadLimit is how many trailing characters a truncated read returns.
const DefaultReadLimit = 1000

// Store is an append-only memory file.
type Store struct {
	path      string
	readLimit int
	mu        sync.Mutex
}

// New creates a Store over path. A non-positive readLimit selects
// DefaultReadLimit.
func New(path string, readLimit int) *Store {
	if readLimit <= 0 {
		readLimit = DefaultReadLimit
	}

	return &Store{path: path, readLimit: readLimit}
}

// Path returns the memory file location.
func (s *Store) Path() string { return s.path }

// Read returns the memory contents, or only the trailing read-limit
// characters when truncate is set. A missing file is created empty.
func (s *Store) Read(truncate bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.create(); err != nil {
			return "", err
		}
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read memory: %w", err)
	}

	text := string(data)
	if truncate {
		text = tail(text, s.readLimit)
	}

	return text, nil
}

// Append adds content as a new entry. Entries after the first are separated
// by a newline.
func (s *Store) Append(content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, err := os.Stat(s.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := s.create(); err != nil {
			return err
		}
	case err != nil:
		return fmt.Errorf("stat memory: %w", err)
	}

	entry := content
	if info != nil && info.Size() > 0 {
		entry = "\n" + content
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open memory: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.WriteString(entry); err != nil {
		return fmt.Errorf("write memory: %w", err)
	}

	return nil
}

func (s *Store) create() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create memory dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, nil, 0o600); err != nil {
		return fmt.Errorf("create memory: %w", err)
	}
	return nil
}

// tail returns the last n characters of s.
func tail(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[len(r)-n:])
}

type readArgs struct {
	Truncate *bool `json:"truncate,omitempty" jsonschema:"description=Return only the most recent part of the memory (default true)"`
}

type writeArgs struct {
	Content string `json:"content" jsonschema:"description=The text content to append to memory." validate:"required"`
}

// Tools returns the read_memory and write_memory factories bound to s.
func (s *Store) Tools() []toolbox.Factory {
	return []toolbox.Factory{s.ReadTool(), s.WriteTool()}
}

// ReadTool returns the read_memory factory.
func (s *Store) ReadTool() toolbox.Factory {
	return toolbox.Define("read_memory", "Read the long-term memory stored in the memory file.",
		func(_ context.Context, args readArgs) (toolbox.Result, error) {
			truncate := args.Truncate == nil || *args.Truncate

			text, err := s.Read(truncate)
			if err != nil {
				return nil, err
			}

			return toolbox.Result{"status": "ok", "memory": text}, nil
		})
}

// WriteTool returns the write_memory factory.
func (s *Store) WriteTool() toolbox.Factory {
	return toolbox.Define("write_memory", "Append new content to the long-term memory file.",
		func(_ context.Context, args writeArgs) (toolbox.Result, error) {
			if err := s.Append(args.Content); err != nil {
				return nil, err
			}

			return toolbox.Result{"status": "ok", "message": "Memory saved successfully"}, nil
		})
}
