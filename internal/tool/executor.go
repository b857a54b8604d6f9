package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// EmptyOutputPlaceholder is returned when a tool produces no output.
// LLM APIs reject tool messages with empty content.
const EmptyOutputPlaceholder = "(Tool executed successfully with no output)"

// Executor validates and runs tool calls against a registry. It never
// returns a Go error: every failure becomes an error Result.
type Executor struct {
	registry *Registry

	mu      sync.Mutex
	schemas map[string]*jsonschema.Schema
}

func NewExecutor(registry *Registry) *Executor {
	return &Executor{
		registry: registry,
		schemas:  make(map[string]*jsonschema.Schema),
	}
}

// Registry returns the registry the executor dispatches to
func (e *Executor) Registry() *Registry {
	return e.registry
}

// Execute runs one tool call
func (e *Executor) Execute(ctx context.Context, callID, name string, args map[string]any) *Result {
	t, err := e.registry.Get(name)
	if err != nil {
		return Failure(callID, KindUnknownTool, "Unknown tool: %s", name)
	}

	desc := t.Descriptor()
	if args == nil {
		args = make(map[string]any)
	}

	for _, p := range desc.Params {
		if p.Required && isMissing(args[p.Name]) {
			return Failure(callID, KindMissingArgument, "Missing required parameter: %s", p.Name)
		}
	}

	schema, err := e.schema(desc)
	if err != nil {
		return Failure(callID, KindToolExecutionFailed, "%v", err)
	}
	if err := schema.Validate(args); err != nil {
		return Failure(callID, KindInvalidArgument, "%s", describeValidationError(err))
	}

	output, err := e.run(ctx, t, withDefaults(desc, args))
	if err != nil {
		var toolErr *Error
		if errors.As(err, &toolErr) {
			return Failure(callID, toolErr.Kind, "%s", toolErr.Message)
		}
		return Failure(callID, KindToolExecutionFailed, "Error executing %s: %v", name, err)
	}

	if output == "" {
		output = EmptyOutputPlaceholder
	}
	return Success(callID, output)
}

// run invokes the tool and converts a panic into an error
func (e *Executor) run(ctx context.Context, t Tool, args map[string]any) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return t.Execute(ctx, args)
}

func (e *Executor) schema(desc Descriptor) (*jsonschema.Schema, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s, ok := e.schemas[desc.Name]; ok {
		return s, nil
	}

	s, err := compileSchema(desc)
	if err != nil {
		return nil, err
	}
	e.schemas[desc.Name] = s
	return s, nil
}

func isMissing(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	default:
		return false
	}
}

// withDefaults returns a copy of args with defaults of absent optional params filled in
func withDefaults(desc Descriptor, args map[string]any) map[string]any {
	out := make(map[string]any, len(args)+len(desc.Params))
	for k, v := range args {
		out[k] = v
	}
	for _, p := range desc.Params {
		if _, ok := out[p.Name]; !ok && p.Default != nil {
			out[p.Name] = p.Default
		}
	}
	return out
}
