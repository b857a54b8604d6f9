package agent

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"arxivagent/internal/llm"
	"arxivagent/internal/tool"
	"arxivagent/internal/transport"
)

// fakeClient replays scripted responses and records every request
type fakeClient struct {
	responses []*llm.ChatResponse
	errs      []error
	requests  []*llm.ChatRequest
}

func (c *fakeClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	i := len(c.requests)
	c.requests = append(c.requests, req)
	if i < len(c.errs) && c.errs[i] != nil {
		return nil, c.errs[i]
	}
	if i >= len(c.responses) {
		return nil, errors.New("unexpected completion request")
	}
	return c.responses[i], nil
}

func (c *fakeClient) Provider() string { return "fake" }
func (c *fakeClient) Model() string    { return "fake-model" }

func textResponse(content string) *llm.ChatResponse {
	return &llm.ChatResponse{
		Message:    llm.Message{Role: llm.RoleAssistant, Content: content},
		StopReason: llm.StopReasonStop,
	}
}

func toolCallResponse(calls ...*llm.ToolCall) *llm.ChatResponse {
	return &llm.ChatResponse{
		Message:    llm.Message{Role: llm.RoleAssistant, ToolCalls: calls},
		StopReason: llm.StopReasonToolCalls,
	}
}

func call(id, name, args string) *llm.ToolCall {
	return &llm.ToolCall{ID: id, Type: "function", Function: &llm.FunctionCall{Name: name, Arguments: args}}
}

// fakeChannel dispatches calls to handlers keyed by tool name
type fakeChannel struct {
	descs    []tool.Descriptor
	capsErr  error
	handlers map[string]func(args map[string]any) *tool.Result
	calls    []string
	closed   int
}

func (c *fakeChannel) Capabilities(ctx context.Context) ([]tool.Descriptor, error) {
	return c.descs, c.capsErr
}

func (c *fakeChannel) Call(ctx context.Context, callID, name string, args map[string]any) *tool.Result {
	c.calls = append(c.calls, name)
	h, ok := c.handlers[name]
	if !ok {
		return tool.Failure(callID, tool.KindUnknownTool, "Unknown tool: %s", name)
	}
	r := h(args)
	r.CallID = callID
	return r
}

func (c *fakeChannel) Close() error {
	c.closed++
	return nil
}

func (c *fakeChannel) opener() transport.Opener {
	return transport.OpenerFunc(func(ctx context.Context) (transport.Channel, error) {
		return c, nil
	})
}

var searchDescriptor = tool.Descriptor{
	Name:        "search_arxiv_papers",
	Description: "Search for papers on arXiv",
	Params: []tool.Param{
		{Name: "query", Type: tool.TypeString, Description: "The search query", Required: true},
		{Name: "max_results", Type: tool.TypeInteger, Description: "Maximum number of results", Default: 3},
	},
}

func newSearchChannel() *fakeChannel {
	return &fakeChannel{
		descs: []tool.Descriptor{searchDescriptor},
		handlers: map[string]func(map[string]any) *tool.Result{
			"search_arxiv_papers": func(args map[string]any) *tool.Result {
				return tool.Success("", "No papers found for '"+args["query"].(string)+"'.")
			},
		},
	}
}

func TestRun_NoToolCalls(t *testing.T) {
	client := &fakeClient{responses: []*llm.ChatResponse{textResponse("Paris.")}}
	ch := newSearchChannel()

	answer, turn := New(Config{Model: "m"}, client, ch.opener(), nil).Run(context.Background(), "What is the capital of France?")

	if answer != "Paris." {
		t.Errorf("Expected direct answer, got %q", answer)
	}
	if len(ch.calls) != 0 {
		t.Errorf("Channel should not be called, got %v", ch.calls)
	}
	if len(client.requests) != 1 {
		t.Errorf("Expected a single completion, got %d", len(client.requests))
	}
	if ch.closed != 1 {
		t.Errorf("Expected channel closed once, got %d", ch.closed)
	}

	want := []State{StateIdle, StateCapabilitiesFetched, StateFirstCompletionRequested, StateNoToolCalls, StateDone}
	if !reflect.DeepEqual(turn.History, want) {
		t.Errorf("Unexpected state history: %v", turn.History)
	}

	req := client.requests[0]
	if req.ToolChoice != llm.ToolChoiceAuto || len(req.Tools) != 1 {
		t.Errorf("First request should offer tools with tool_choice auto: %+v", req)
	}
	if req.Messages[0].Role != llm.RoleSystem || !strings.Contains(req.Messages[0].Content, "search_arxiv_papers") {
		t.Errorf("Expected system prompt naming the search tool, got %+v", req.Messages[0])
	}
	if req.Messages[1].Content != "What is the capital of France?" {
		t.Errorf("Expected user question, got %+v", req.Messages[1])
	}
}

func TestRun_ToolCallNoPapers(t *testing.T) {
	client := &fakeClient{responses: []*llm.ChatResponse{
		toolCallResponse(call("call_1", "search_arxiv_papers", `{"query":"spintronics","max_results":3}`)),
		textResponse("I could not find recent papers on spintronics."),
	}}
	ch := newSearchChannel()

	answer, turn := New(Config{}, client, ch.opener(), nil).Run(context.Background(), "Latest in spintronics?")

	if answer != "I could not find recent papers on spintronics." {
		t.Errorf("Unexpected answer: %q", answer)
	}
	if len(client.requests) != 2 {
		t.Fatalf("Expected two completions, got %d", len(client.requests))
	}

	second := client.requests[1]
	if len(second.Tools) != 0 || second.ToolChoice != "" {
		t.Errorf("Second request must not offer tools: %+v", second)
	}

	// system, user, assistant(tool_calls), tool
	if len(second.Messages) != 4 {
		t.Fatalf("Expected 4 messages in second request, got %d", len(second.Messages))
	}
	toolMsg := second.Messages[3]
	if toolMsg.Role != llm.RoleTool || toolMsg.ToolCallID != "call_1" {
		t.Errorf("Unexpected tool message: %+v", toolMsg)
	}
	if toolMsg.Content != "No papers found for 'spintronics'." {
		t.Errorf("Expected non-empty no-papers content, got %q", toolMsg.Content)
	}
	if !second.Messages[2].HasToolCalls() {
		t.Errorf("Assistant message should keep its tool calls: %+v", second.Messages[2])
	}

	want := []State{
		StateIdle, StateCapabilitiesFetched, StateFirstCompletionRequested, StateToolCallsPending,
		StateToolsExecuting, StateSecondCompletionRequested, StateDone,
	}
	if !reflect.DeepEqual(turn.History, want) {
		t.Errorf("Unexpected state history: %v", turn.History)
	}
}

func TestRun_ChannelClosedResultStillAnswers(t *testing.T) {
	client := &fakeClient{responses: []*llm.ChatResponse{
		toolCallResponse(call("call_1", "search_arxiv_papers", `{"query":"spintronics"}`)),
		textResponse("The search service is unavailable right now."),
	}}
	ch := &fakeChannel{
		descs: []tool.Descriptor{searchDescriptor},
		handlers: map[string]func(map[string]any) *tool.Result{
			"search_arxiv_papers": func(map[string]any) *tool.Result {
				return tool.Failure("", tool.KindChannelClosed, "tool server closed its output")
			},
		},
	}

	answer, turn := New(Config{}, client, ch.opener(), nil).Run(context.Background(), "q")

	if answer != "The search service is unavailable right now." {
		t.Errorf("Unexpected answer: %q", answer)
	}
	if turn.State != StateDone {
		t.Errorf("Expected Done, got %s", turn.State)
	}

	toolMsg := client.requests[1].Messages[3]
	if !strings.Contains(toolMsg.Content, "ChannelClosed") {
		t.Errorf("Expected ChannelClosed error fed to the model, got %q", toolMsg.Content)
	}
}

func TestRun_UnknownToolThenValid(t *testing.T) {
	client := &fakeClient{responses: []*llm.ChatResponse{
		toolCallResponse(
			call("call_a", "search_zotero", `{"query":"x"}`),
			call("call_b", "search_arxiv_papers", `{"query":"magnons"}`),
		),
		textResponse("done"),
	}}
	ch := newSearchChannel()

	_, turn := New(Config{}, client, ch.opener(), nil).Run(context.Background(), "q")

	results := turn.Results()
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if !results[0].IsError || results[0].Kind != tool.KindUnknownTool || results[0].CallID != "call_a" {
		t.Errorf("Expected UnknownTool for first call, got %+v", results[0])
	}
	if results[1].IsError || results[1].CallID != "call_b" {
		t.Errorf("Expected success for second call, got %+v", results[1])
	}

	msgs := client.requests[1].Messages
	if msgs[3].ToolCallID != "call_a" || msgs[4].ToolCallID != "call_b" {
		t.Errorf("Tool messages out of order: %q, %q", msgs[3].ToolCallID, msgs[4].ToolCallID)
	}
}

func TestRun_MalformedArgumentsDoNotStopOtherCalls(t *testing.T) {
	client := &fakeClient{responses: []*llm.ChatResponse{
		toolCallResponse(
			call("call_1", "search_arxiv_papers", `{"query":`),
			call("call_2", "search_arxiv_papers", `{"query":"spin"}`),
		),
		textResponse("ok"),
	}}
	ch := newSearchChannel()

	_, turn := New(Config{}, client, ch.opener(), nil).Run(context.Background(), "q")

	results := turn.Results()
	if results[0].Kind != tool.KindProtocolError {
		t.Errorf("Expected ProtocolError for malformed arguments, got %+v", results[0])
	}
	if results[1].IsError {
		t.Errorf("Second call should succeed, got %+v", results[1])
	}
	if len(ch.calls) != 1 {
		t.Errorf("Malformed call must not reach the channel, calls: %v", ch.calls)
	}
}

func TestRun_AssignsMissingCallIDs(t *testing.T) {
	client := &fakeClient{responses: []*llm.ChatResponse{
		toolCallResponse(call("", "search_arxiv_papers", `{"query":"spin"}`)),
		textResponse("ok"),
	}}

	_, turn := New(Config{}, client, newSearchChannel().opener(), nil).Run(context.Background(), "q")

	id := turn.ToolCalls[0].CallID
	if id == "" {
		t.Fatal("Expected a generated call id")
	}
	msgs := client.requests[1].Messages
	if msgs[2].ToolCalls[0].ID != id || msgs[3].ToolCallID != id {
		t.Errorf("Generated id %q not used consistently: %+v / %+v", id, msgs[2].ToolCalls[0], msgs[3])
	}
}

func TestRun_EmptyCapabilities(t *testing.T) {
	client := &fakeClient{responses: []*llm.ChatResponse{textResponse("")}}
	ch := &fakeChannel{}

	answer, _ := New(Config{}, client, ch.opener(), nil).Run(context.Background(), "q")

	if answer != FallbackAnswer {
		t.Errorf("Expected fallback answer, got %q", answer)
	}
	req := client.requests[0]
	if req.Tools != nil || req.ToolChoice != "" {
		t.Errorf("Tool-free completion expected, got tools=%v tool_choice=%q", req.Tools, req.ToolChoice)
	}
}

func TestRun_EmptySecondAnswerUsesFallback(t *testing.T) {
	client := &fakeClient{responses: []*llm.ChatResponse{
		toolCallResponse(call("call_1", "search_arxiv_papers", `{"query":"spin"}`)),
		textResponse("   "),
	}}

	answer, _ := New(Config{}, client, newSearchChannel().opener(), nil).Run(context.Background(), "q")

	if answer != FallbackAnswer {
		t.Errorf("Expected fallback answer, got %q", answer)
	}
}

func TestRun_Failures(t *testing.T) {
	completionErr := &llm.CompletionError{Provider: "fake", Model: "m", Err: errors.New("401 unauthorized")}

	tests := []struct {
		name     string
		client   *fakeClient
		opener   func(ch *fakeChannel) transport.Opener
		capsErr  error
		contains string
		closed   int
	}{
		{
			name:   "open fails",
			client: &fakeClient{},
			opener: func(*fakeChannel) transport.Opener {
				return transport.OpenerFunc(func(ctx context.Context) (transport.Channel, error) {
					return nil, errors.New("exec: not found")
				})
			},
			contains: "exec: not found",
		},
		{
			name:     "capabilities fail",
			client:   &fakeClient{},
			capsErr:  errors.New("tool server closed its output"),
			contains: "capabilities",
			closed:   1,
		},
		{
			name:     "first completion fails",
			client:   &fakeClient{errs: []error{completionErr}},
			contains: "401 unauthorized",
			closed:   1,
		},
		{
			name: "second completion fails",
			client: &fakeClient{
				responses: []*llm.ChatResponse{toolCallResponse(call("c", "search_arxiv_papers", `{"query":"q"}`))},
				errs:      []error{nil, completionErr},
			},
			contains: "completion API error",
			closed:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := newSearchChannel()
			ch.capsErr = tt.capsErr
			opener := ch.opener()
			if tt.opener != nil {
				opener = tt.opener(ch)
			}

			answer, turn := New(Config{}, tt.client, opener, nil).Run(context.Background(), "q")

			if !strings.HasPrefix(answer, ErrorPrefix) || !strings.Contains(answer, tt.contains) {
				t.Errorf("Unexpected answer: %q", answer)
			}
			if turn.State != StateFailed || turn.Err == nil {
				t.Errorf("Expected Failed state with error, got %s / %v", turn.State, turn.Err)
			}
			if ch.closed != tt.closed {
				t.Errorf("Expected channel closed %d time(s), got %d", tt.closed, ch.closed)
			}
		})
	}
}

func TestRun_CompletionErrorIsTyped(t *testing.T) {
	client := &fakeClient{errs: []error{&llm.CompletionError{Provider: "fake", Model: "m", Err: errors.New("boom")}}}

	_, turn := New(Config{}, client, newSearchChannel().opener(), nil).Run(context.Background(), "q")

	var completionErr *llm.CompletionError
	if !errors.As(turn.Err, &completionErr) {
		t.Errorf("Expected *llm.CompletionError in turn, got %T", turn.Err)
	}
}

func TestState_String(t *testing.T) {
	if StateToolsExecuting.String() != "ToolsExecuting" {
		t.Errorf("Unexpected name: %s", StateToolsExecuting)
	}
	if State(99).String() != "Unknown" {
		t.Errorf("Unexpected name for invalid state: %s", State(99))
	}
}
