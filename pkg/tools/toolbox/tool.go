package toolbox

import (
	"context"
	"encoding/json"
	"fmt"
)

// defaultParameters is advertised for tools that declare no parameter schema.
var defaultParameters = json.RawMessage(`{"type":"object","properties":{},"required":[]}`)

// Descriptor advertises a tool to a model: its unique name, a human-readable
// description and a JSON Schema object describing its parameters.
type Descriptor struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Definition is the model-facing manifest entry for a tool.
type Definition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition is the "function" object of a Definition.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Definition formats d as a {type:"function", function:{...}} manifest entry.
func (d Descriptor) Definition() Definition {
	params := d.Parameters
	if len(params) == 0 {
		params = defaultParameters
	}

	return Definition{
		Type: "function",
		Function: FunctionDefinition{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  params,
		},
	}
}

// Result is the JSON-serializable outcome of a successful tool run.
type Result map[string]any

// Handle is a constructed tool invocation, bound to its arguments.
type Handle interface {
	Run(ctx context.Context) (Result, error)
}

// HandleFunc adapts a plain function to the Handle interface.
type HandleFunc func(ctx context.Context) (Result, error)

// Run calls f(ctx).
func (f HandleFunc) Run(ctx context.Context) (Result, error) { return f(ctx) }

// Factory describes a tool and constructs invocations of it. New must report
// argument/schema mismatches as *ArgError so they can be told apart from
// failures inside Run.
type Factory interface {
	Descriptor() Descriptor
	New(args json.RawMessage) (Handle, error)
}

// ArgError reports that a tool could not be constructed from the supplied
// arguments.
type ArgError struct {
	Err error
}

func (e *ArgError) Error() string { return e.Err.Error() }

func (e *ArgError) Unwrap() error { return e.Err }

// ArgErrorf formats an *ArgError.
func ArgErrorf(format string, args ...any) error {
	return &ArgError{Err: fmt.Errorf(format, args...)}
}
