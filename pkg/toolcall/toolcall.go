// Package toolcall extracts tool-call directives embedded in free model text.
//
// A directive is a JSON object wrapped in a pair of case-sensitive markers:
//
//	<tool_call>
//	{"name": "read_memory", "arguments": {"truncate": true}}
//	</tool_call>
//
// The marker pair and payload grammar form a small versioned protocol so a
// different model family can plug in its own markers without touching the
// agent loop. Scanning never fails: malformed payloads are skipped and an
// unterminated open marker is left as plain text.
//
// Stripping is a single pass. Text on both sides of a removed span is joined,
// so an input built from marker fragments can join into a new directive that
// a second Split would find. Strip is idempotent only for text where that
// does not happen.
package toolcall

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Protocol is a versioned marker pair delimiting tool-call payloads.
type Protocol struct {
	Version string
	Open    string
	Close   string
}

// Hermes is the <tool_call>...</tool_call> protocol used by Hermes and Qwen
// style chat templates.
var Hermes = Protocol{
	Version: "hermes-1",
	Open:    "<tool_call>",
	Close:   "</tool_call>",
}

// Call is one parsed directive. Arguments is always a compact JSON object.
type Call struct {
	Name      string
	Arguments json.RawMessage
}

// Extraction is the outcome of splitting model output.
type Extraction struct {
	// Visible is the text with every marker-delimited span removed and
	// surrounding whitespace trimmed.
	Visible string
	// Calls holds the well-formed directives in order of appearance.
	Calls []Call
}

// Split scans text once, returning the visible text and the parsed calls.
//
// When a span contains another open marker before its close marker, the
// payload is read from the innermost open marker and the whole region from
// the outer open marker through the close marker is removed.
func (p Protocol) Split(text string) Extraction {
	var (
		visible strings.Builder
		calls   []Call
		pos     int
	)

	for pos < len(text) {
		start := strings.Index(text[pos:], p.Open)
		if start < 0 {
			break
		}
		start += pos

		bodyStart := start + len(p.Open)
		end := strings.Index(text[bodyStart:], p.Close)
		if end < 0 {
			break
		}
		end += bodyStart

		body := text[bodyStart:end]
		if inner := strings.LastIndex(body, p.Open); inner >= 0 {
			body = body[inner+len(p.Open):]
		}

		visible.WriteString(text[pos:start])
		if c, ok := parsePayload(body); ok {
			calls = append(calls, c)
		}

		pos = end + len(p.Close)
	}

	if pos < len(text) {
		visible.WriteString(text[pos:])
	}

	return Extraction{
		Visible: strings.TrimSpace(visible.String()),
		Calls:   calls,
	}
}

// Extract returns the well-formed directives found in text.
func (p Protocol) Extract(text string) []Call {
	return p.Split(text).Calls
}

// Strip returns text with every directive span removed and trimmed.
func (p Protocol) Strip(text string) string {
	return p.Split(text).Visible
}

// Format renders a call as a directive, the inverse of Extract. It is used
// to replay earlier assistant turns into a prompt.
func (p Protocol) Format(name string, arguments json.RawMessage) string {
	args, ok := compactObject(arguments)
	if !ok {
		args = json.RawMessage("{}")
	}

	var payload bytes.Buffer
	enc := json.NewEncoder(&payload)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}{Name: name, Arguments: args})

	return p.Open + "\n" + strings.TrimSuffix(payload.String(), "\n") + "\n" + p.Close
}

// Split applies the Hermes protocol.
func Split(text string) Extraction { return Hermes.Split(text) }

// Extract applies the Hermes protocol.
func Extract(text string) []Call { return Hermes.Extract(text) }

// Strip applies the Hermes protocol.
func Strip(text string) string { return Hermes.Strip(text) }

// parsePayload accepts a JSON object with a non-empty string "name" and an
// optional object "arguments". Missing or null arguments become {}.
func parsePayload(body string) (Call, bool) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(body)), &raw); err != nil || raw == nil {
		return Call{}, false
	}

	var name string
	if err := json.Unmarshal(raw["name"], &name); err != nil || name == "" {
		return Call{}, false
	}

	args, ok := compactObject(raw["arguments"])
	if !ok {
		return Call{}, false
	}

	return Call{Name: name, Arguments: args}, true
}

func compactObject(data json.RawMessage) (json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage("{}"), true
	}
	if trimmed[0] != '{' {
		return nil, false
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, false
	}

	return buf.Bytes(), true
}
