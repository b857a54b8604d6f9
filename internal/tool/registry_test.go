package tool

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
)

// mockTool records the arguments it was called with
type mockTool struct {
	desc     Descriptor
	output   string
	err      error
	panicVal any
	lastArgs map[string]any
	calls    int
}

func (t *mockTool) Descriptor() Descriptor {
	return t.desc
}

func (t *mockTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	t.calls++
	t.lastArgs = args
	if t.panicVal != nil {
		panic(t.panicVal)
	}
	return t.output, t.err
}

func floatPtr(v float64) *float64 { return &v }

func searchDescriptor() Descriptor {
	return Descriptor{
		Name:        "search",
		Description: "Search things",
		Params: []Param{
			{Name: "query", Type: TypeString, Description: "The search query", Required: true},
			{Name: "max_results", Type: TypeInteger, Description: "Maximum results", Default: 3, Minimum: floatPtr(1)},
		},
	}
}

func newMockRegistry(t *testing.T, tools ...Tool) *Registry {
	t.Helper()
	registry := NewRegistry()
	for _, tl := range tools {
		if err := registry.Register(tl); err != nil {
			t.Fatalf("Failed to register tool: %v", err)
		}
	}
	return registry
}

func TestRegistry_ListIsDeterministic(t *testing.T) {
	registry := newMockRegistry(t,
		&mockTool{desc: Descriptor{Name: "zeta"}},
		&mockTool{desc: Descriptor{Name: "alpha"}},
		&mockTool{desc: Descriptor{Name: "mid"}},
	)

	first := registry.List()
	second := registry.List()

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("List() not deterministic:\n%v\n%v", first, second)
	}

	names := []string{first[0].Name, first[1].Name, first[2].Name}
	if !reflect.DeepEqual(names, []string{"zeta", "alpha", "mid"}) {
		t.Errorf("Expected registration order, got %v", names)
	}
}

func TestRegistry_Empty(t *testing.T) {
	registry := NewRegistry()

	if got := registry.List(); len(got) != 0 {
		t.Errorf("Expected empty list, got %v", got)
	}
	if registry.Len() != 0 {
		t.Errorf("Expected zero length")
	}
}

func TestRegistry_RejectsDuplicates(t *testing.T) {
	registry := newMockRegistry(t, &mockTool{desc: Descriptor{Name: "search"}})

	if err := registry.Register(&mockTool{desc: Descriptor{Name: "search"}}); err == nil {
		t.Error("Expected duplicate registration to fail")
	}
	if err := registry.Register(&mockTool{desc: Descriptor{Name: ""}}); err == nil {
		t.Error("Expected empty name to fail")
	}
}

func TestDefinitions(t *testing.T) {
	defs := Definitions([]Descriptor{searchDescriptor()})

	if len(defs) != 1 {
		t.Fatalf("Expected 1 definition, got %d", len(defs))
	}
	def := defs[0]
	if def.Type != "function" || def.Function.Name != "search" {
		t.Errorf("Unexpected definition: %+v", def)
	}

	params := def.Function.Parameters
	if params["type"] != "object" {
		t.Errorf("Expected object schema, got %v", params["type"])
	}
	if !reflect.DeepEqual(params["required"], []string{"query"}) {
		t.Errorf("Expected required [query], got %v", params["required"])
	}
	props := params["properties"].(map[string]any)
	maxResults := props["max_results"].(map[string]any)
	if maxResults["type"] != "integer" || maxResults["default"] != 3 {
		t.Errorf("Unexpected max_results property: %v", maxResults)
	}
}

func TestDescriptorFromSchema_PreservesOrder(t *testing.T) {
	want := Descriptor{
		Name: "multi",
		Params: []Param{
			{Name: "zz", Type: TypeString, Required: true},
			{Name: "aa", Type: TypeBoolean},
			{Name: "mm", Type: TypeNumber, Required: true, Maximum: floatPtr(10)},
		},
	}

	got, err := DescriptorFromSchema(want.Name, want.Description, want.Schema())
	if err != nil {
		t.Fatalf("DescriptorFromSchema failed: %v", err)
	}

	if !reflect.DeepEqual(got, want) {
		t.Errorf("Descriptor did not survive schema round-trip:\nwant %+v\ngot  %+v", want, got)
	}
}

func TestDescriptorFromSchema_WithoutOrderHints(t *testing.T) {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"max_results": map[string]any{"type": "integer"},
			"query":       map[string]any{"type": "string"},
			"category":    map[string]any{"type": "string"},
		},
		"required": []any{"query"},
	}

	got, err := DescriptorFromSchema("search", "", schema)
	if err != nil {
		t.Fatalf("DescriptorFromSchema failed: %v", err)
	}

	var names []string
	for _, p := range got.Params {
		names = append(names, p.Name)
	}
	want := []string{"query", "category", "max_results"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("Expected %v, got %v", want, names)
	}
}

func TestDescriptorFromSchema_RejectsNonObject(t *testing.T) {
	if _, err := DescriptorFromSchema("bad", "", map[string]any{"type": "string"}); err == nil {
		t.Error("Expected error for non-object schema")
	}
}

func TestExecutor_UnknownTool(t *testing.T) {
	executor := NewExecutor(newMockRegistry(t, &mockTool{desc: searchDescriptor()}))

	result := executor.Execute(context.Background(), "call_1", "nope", map[string]any{})

	if !result.IsError || result.Kind != KindUnknownTool {
		t.Fatalf("Expected UnknownTool error, got %+v", result)
	}
	if result.CallID != "call_1" {
		t.Errorf("Expected call id to be preserved, got %q", result.CallID)
	}
}

func TestExecutor_MissingArgument(t *testing.T) {
	mock := &mockTool{desc: searchDescriptor(), output: "ok"}
	executor := NewExecutor(newMockRegistry(t, mock))

	cases := []map[string]any{
		nil,
		{},
		{"query": nil},
		{"query": ""},
		{"max_results": 5},
	}

	for _, args := range cases {
		result := executor.Execute(context.Background(), "c", "search", args)
		if !result.IsError || result.Kind != KindMissingArgument {
			t.Errorf("args %v: expected MissingArgument, got %+v", args, result)
		}
		if !strings.Contains(result.Content, "query") {
			t.Errorf("args %v: expected message to name the parameter, got %q", args, result.Content)
		}
	}

	if mock.calls != 0 {
		t.Errorf("Tool should not run with missing arguments, ran %d times", mock.calls)
	}
}

func TestExecutor_InvalidArgument(t *testing.T) {
	mock := &mockTool{desc: searchDescriptor(), output: "ok"}
	executor := NewExecutor(newMockRegistry(t, mock))

	cases := []map[string]any{
		{"query": "x", "max_results": 0.0},
		{"query": "x", "max_results": "three"},
		{"query": "x", "max_results": 2.5},
		{"query": 42.0},
	}

	for _, args := range cases {
		result := executor.Execute(context.Background(), "c", "search", args)
		if !result.IsError || result.Kind != KindInvalidArgument {
			t.Errorf("args %v: expected InvalidArgument, got %+v", args, result)
		}
	}
}

func TestExecutor_AppliesDefaults(t *testing.T) {
	mock := &mockTool{desc: searchDescriptor(), output: "found"}
	executor := NewExecutor(newMockRegistry(t, mock))

	args := map[string]any{"query": "spintronics"}
	result := executor.Execute(context.Background(), "c", "search", args)

	if result.IsError {
		t.Fatalf("Unexpected error: %+v", result)
	}
	if result.Content != "found" {
		t.Errorf("Expected content 'found', got %q", result.Content)
	}
	if mock.lastArgs["max_results"] != 3 {
		t.Errorf("Expected default max_results 3, got %v", mock.lastArgs["max_results"])
	}
	if _, ok := args["max_results"]; ok {
		t.Error("Caller's argument map must not be modified")
	}
}

func TestExecutor_ToolErrors(t *testing.T) {
	tests := []struct {
		name     string
		tool     *mockTool
		wantKind ErrorKind
		contains string
	}{
		{
			name:     "plain error",
			tool:     &mockTool{desc: searchDescriptor(), err: errors.New("connection refused")},
			wantKind: KindToolExecutionFailed,
			contains: "connection refused",
		},
		{
			name:     "typed error",
			tool:     &mockTool{desc: searchDescriptor(), err: Errorf(KindInvalidArgument, "bad query syntax")},
			wantKind: KindInvalidArgument,
			contains: "bad query syntax",
		},
		{
			name:     "panic",
			tool:     &mockTool{desc: searchDescriptor(), panicVal: "nil map"},
			wantKind: KindToolExecutionFailed,
			contains: "nil map",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			executor := NewExecutor(newMockRegistry(t, tt.tool))
			result := executor.Execute(context.Background(), "c", "search", map[string]any{"query": "q"})

			if !result.IsError || result.Kind != tt.wantKind {
				t.Fatalf("Expected %s, got %+v", tt.wantKind, result)
			}
			if !strings.Contains(result.Content, tt.contains) {
				t.Errorf("Expected content to contain %q, got %q", tt.contains, result.Content)
			}
		})
	}
}

func TestExecutor_EmptyOutputPlaceholder(t *testing.T) {
	executor := NewExecutor(newMockRegistry(t, &mockTool{desc: searchDescriptor()}))

	result := executor.Execute(context.Background(), "c", "search", map[string]any{"query": "q"})

	if result.Content != EmptyOutputPlaceholder {
		t.Errorf("Expected placeholder, got %q", result.Content)
	}
}

func TestResult_Text(t *testing.T) {
	if got := Success("c", "papers").Text(); got != "papers" {
		t.Errorf("Unexpected success text: %q", got)
	}

	got := Failure("c", KindChannelClosed, "tool server exited").Text()
	if got != "Error (ChannelClosed): tool server exited" {
		t.Errorf("Unexpected failure text: %q", got)
	}
}

func TestParseKind(t *testing.T) {
	if ParseKind("MissingArgument") != KindMissingArgument {
		t.Error("Expected MissingArgument to round-trip")
	}
	if ParseKind("SomethingElse") != KindToolExecutionFailed {
		t.Error("Unknown kinds should map to ToolExecutionFailed")
	}
}
