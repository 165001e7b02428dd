// Package toolbox holds the tool registry both agent loop variants dispatch
// through. A Registry maps tool names to factories and advertises their
// descriptors in registration order.
package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/germanamz/phoenix/pkg/chats/content"
	"github.com/kaptinlin/jsonrepair"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry is an ordered collection of tool factories. Register tools before
// handing the registry to a loop; lookups are safe to run concurrently once
// registration is done. A nil *Registry and the zero Registry both behave as
// an empty one; the zero value is ready to Register into.
type Registry struct {
	tools *orderedmap.OrderedMap[string, Factory]
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		tools: orderedmap.New[string, Factory](),
	}
}

// Register adds factories in order. Registering a name that already exists
// replaces its factory but keeps its original position in the manifest.
func (r *Registry) Register(factories ...Factory) {
	r.init()
	for _, f := range factories {
		r.tools.Set(f.Descriptor().Name, f)
	}
}

// Merge registers every tool of other into r, in other's order.
func (r *Registry) Merge(other *Registry) {
	if other == nil || other.tools == nil {
		return
	}
	r.init()
	for pair := other.tools.Oldest(); pair != nil; pair = pair.Next() {
		r.tools.Set(pair.Key, pair.Value)
	}
}

func (r *Registry) init() {
	if r.tools == nil {
		r.tools = orderedmap.New[string, Factory]()
	}
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	if r == nil || r.tools == nil {
		return 0
	}
	return r.tools.Len()
}

// Resolve returns the factory registered under name.
func (r *Registry) Resolve(name string) (Factory, bool) {
	if r == nil || r.tools == nil {
		return nil, false
	}
	return r.tools.Get(name)
}

// Descriptors returns the descriptors of all tools in registration order.
func (r *Registry) Descriptors() []Descriptor {
	if r == nil || r.tools == nil {
		return nil
	}

	out := make([]Descriptor, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, pair.Value.Descriptor())
	}

	return out
}

// Definitions converts descriptors into the model-facing manifest, keeping
// their order.
func Definitions(descs []Descriptor) []Definition {
	if len(descs) == 0 {
		return nil
	}

	out := make([]Definition, len(descs))
	for i, d := range descs {
		out[i] = d.Definition()
	}

	return out
}

// Call resolves, constructs and runs the tool named by tc. It never fails:
// unknown tools, bad arguments, runtime errors and panics are all converted
// into a result whose content is {"error": "..."}.
func (r *Registry) Call(ctx context.Context, tc content.ToolCall) content.ToolResult {
	res := content.ToolResult{ToolCallID: tc.ID, Name: tc.Name}

	f, ok := r.Resolve(tc.Name)
	if !ok {
		return failed(res, fmt.Sprintf("Unknown tool: %s", tc.Name))
	}

	args, err := normalizeArguments(tc.Arguments)
	if err != nil {
		return failed(res, fmt.Sprintf("Bad arguments for %s: %v", tc.Name, err))
	}

	h, err := construct(f, args)
	if err != nil {
		var argErr *ArgError
		if errors.As(err, &argErr) {
			return failed(res, fmt.Sprintf("Bad arguments for %s: %v", tc.Name, argErr))
		}
		return failed(res, err.Error())
	}

	out, err := run(ctx, h)
	if err != nil {
		return failed(res, err.Error())
	}
	if out == nil {
		out = Result{}
	}

	data, err := EncodeJSON(out)
	if err != nil {
		return failed(res, fmt.Sprintf("encode result: %v", err))
	}

	res.Content = data

	return res
}

func construct(f Factory, args json.RawMessage) (h Handle, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()

	return f.New(args)
}

func run(ctx context.Context, h Handle) (out Result, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%v", p)
		}
	}()

	return h.Run(ctx)
}

// normalizeArguments turns model-emitted argument text into valid JSON.
// Empty input means no arguments; malformed JSON is repaired when possible.
func normalizeArguments(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return json.RawMessage("{}"), nil
	}

	if json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed), nil
	}

	repaired, err := jsonrepair.JSONRepair(trimmed)
	if err != nil || !json.Valid([]byte(repaired)) {
		return nil, fmt.Errorf("invalid JSON arguments: %s", trimmed)
	}

	return json.RawMessage(repaired), nil
}

func failed(res content.ToolResult, msg string) content.ToolResult {
	data, err := EncodeJSON(Result{"error": msg})
	if err != nil {
		data = `{"error":"unencodable error"}`
	}

	res.Content = data
	res.IsError = true

	return res
}

// EncodeJSON serializes v compactly without HTML escaping, so non-ASCII text
// and markup reach the model unchanged.
func EncodeJSON(v any) (string, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	if err := enc.Encode(v); err != nil {
		return "", err
	}

	return strings.TrimSuffix(buf.String(), "\n"), nil
}
