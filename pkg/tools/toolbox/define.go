package toolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names, the names the model sees.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Func runs a tool with decoded, validated arguments.
type Func[A any] func(ctx context.Context, args A) (Result, error)

// Define builds a Factory from a typed argument struct. The parameter schema
// is reflected from A: `json` tags name the parameters, `jsonschema` tags add
// descriptions, and fields without omitempty are required. Construction
// rejects unknown parameters and enforces `validate` tags.
func Define[A any](name, description string, run Func[A]) Factory {
	return &typedFactory[A]{
		desc: Descriptor{
			Name:        name,
			Description: description,
			Parameters:  Parameters[A](),
		},
		run: run,
	}
}

type typedFactory[A any] struct {
	desc Descriptor
	run  Func[A]
}

func (f *typedFactory[A]) Descriptor() Descriptor { return f.desc }

func (f *typedFactory[A]) New(args json.RawMessage) (Handle, error) {
	var a A

	if len(bytes.TrimSpace(args)) > 0 {
		dec := json.NewDecoder(bytes.NewReader(args))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&a); err != nil {
			return nil, &ArgError{Err: err}
		}
	}

	if err := validate.Struct(&a); err != nil {
		return nil, &ArgError{Err: describeValidation(err)}
	}

	return HandleFunc(func(ctx context.Context) (Result, error) {
		return f.run(ctx, a)
	}), nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			msgs = append(msgs, fmt.Sprintf("missing required argument %q", fe.Field()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("argument %q failed %q validation", fe.Field(), fe.Tag()))
	}

	return errors.New(strings.Join(msgs, "; "))
}

type parametersSchema struct {
	Type       string                                             `json:"type"`
	Properties *orderedmap.OrderedMap[string, *jsonschema.Schema] `json:"properties"`
	Required   []string                                           `json:"required"`
}

// Parameters reflects the JSON Schema object for the argument struct A.
func Parameters[A any]() json.RawMessage {
	r := &jsonschema.Reflector{DoNotReference: true}

	var zero A
	s := r.Reflect(&zero)

	ps := parametersSchema{
		Type:       "object",
		Properties: s.Properties,
		Required:   s.Required,
	}
	if ps.Properties == nil {
		ps.Properties = orderedmap.New[string, *jsonschema.Schema]()
	}
	if ps.Required == nil {
		ps.Required = []string{}
	}

	data, err := json.Marshal(ps)
	if err != nil {
		return defaultParameters
	}

	return data
}
