package llm

import "context"

// Client is the completion API collaborator. Any vendor able to answer a
// ChatRequest with an assistant message is interchangeable.
type Client interface {
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
	Provider() string
	Model() string
}

// ToolChoice values understood by every provider
const (
	ToolChoiceAuto = "auto"
)

type ChatRequest struct {
	Model       string // Overrides the client's default model when set
	Messages    []Message
	Tools       []*ToolDefinition
	ToolChoice  string  // Ignored when Tools is empty
	Temperature float32 // 0 requests deterministic sampling
}

type ChatResponse struct {
	Message    Message
	StopReason StopReason
	Usage      Usage
}

type ToolDefinition struct {
	Type     string
	Function *FunctionDef
}

type FunctionDef struct {
	Name        string
	Description string
	Parameters  map[string]any
}
