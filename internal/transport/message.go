package transport

import (
	"bytes"
	"encoding/json"
	"fmt"

	"arxivagent/internal/tool"
)

// MessageType tags a wire message. The same "capabilities" tag is used for
// the request and its response; the response carries the payload.
type MessageType string

const (
	TypeCapabilities MessageType = "capabilities"
	TypeToolCall     MessageType = "tool_call"
	TypeToolResult   MessageType = "tool_result"
	TypeError        MessageType = "error"
)

// NoContent is reported when a tool_result arrives without content
const NoContent = "No content returned"

// Message is one line of the stdio protocol. Exactly one payload field is
// set, matching Type (none for a capabilities request).
type Message struct {
	Type         MessageType          `json:"type"`
	Capabilities *CapabilitiesPayload `json:"capabilities,omitempty"`
	ToolCall     *ToolCallPayload     `json:"tool_call,omitempty"`
	ToolResult   *ToolResultPayload   `json:"tool_result,omitempty"`
	Error        *ErrorPayload        `json:"error,omitempty"`
}

type CapabilitiesPayload struct {
	Tools []WireTool `json:"tools"`
}

// WireTool is a descriptor in the OpenAI function-tool shape
type WireTool struct {
	Type     string       `json:"type"`
	Function WireFunction `json:"function"`
}

type WireFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

type ToolCallPayload struct {
	ID         string         `json:"id,omitempty"`
	Name       string         `json:"name"`
	Parameters map[string]any `json:"parameters"`
}

// ToolResultPayload carries tool output. Content may be any JSON value;
// Text renders it for the conversation.
type ToolResultPayload struct {
	ID      string          `json:"id,omitempty"`
	Content json.RawMessage `json:"content,omitempty"`
	IsError bool            `json:"is_error,omitempty"`
	Kind    string          `json:"kind,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Kind    string `json:"kind,omitempty"`
}

// Text returns string content as-is and any other JSON value as compact JSON text
func (p *ToolResultPayload) Text() string {
	raw := bytes.TrimSpace(p.Content)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return NoContent
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// CapabilitiesRequest asks the server for its tool descriptors
func CapabilitiesRequest() *Message {
	return &Message{Type: TypeCapabilities}
}

// CapabilitiesResponse advertises descriptors in registry order
func CapabilitiesResponse(descs []tool.Descriptor) *Message {
	tools := make([]WireTool, 0, len(descs))
	for _, d := range descs {
		tools = append(tools, WireTool{
			Type: "function",
			Function: WireFunction{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Schema(),
			},
		})
	}
	return &Message{Type: TypeCapabilities, Capabilities: &CapabilitiesPayload{Tools: tools}}
}

// ToolCallMessage requests one tool invocation
func ToolCallMessage(callID, name string, args map[string]any) *Message {
	if args == nil {
		args = map[string]any{}
	}
	return &Message{Type: TypeToolCall, ToolCall: &ToolCallPayload{ID: callID, Name: name, Parameters: args}}
}

// ToolResultMessage encodes a successful or failed result as a tool_result
func ToolResultMessage(r *tool.Result) *Message {
	content, _ := json.Marshal(r.Content)
	return &Message{Type: TypeToolResult, ToolResult: &ToolResultPayload{
		ID:      r.CallID,
		Content: content,
		IsError: r.IsError,
		Kind:    string(r.Kind),
	}}
}

// ErrorMessage builds an error reply
func ErrorMessage(kind tool.ErrorKind, format string, args ...any) *Message {
	return &Message{Type: TypeError, Error: &ErrorPayload{Message: fmt.Sprintf(format, args...), Kind: string(kind)}}
}

// Descriptors decodes the advertised tools back into ordered descriptors
func (p *CapabilitiesPayload) Descriptors() ([]tool.Descriptor, error) {
	descs := make([]tool.Descriptor, 0, len(p.Tools))
	for _, t := range p.Tools {
		if t.Function.Name == "" {
			return nil, fmt.Errorf("tool descriptor without name")
		}
		d, err := tool.DescriptorFromSchema(t.Function.Name, t.Function.Description, t.Function.Parameters)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
	}
	return descs, nil
}

// Result converts a tool_result or error reply into a tool.Result
func (m *Message) Result(callID string) *tool.Result {
	switch m.Type {
	case TypeToolResult:
		r := &tool.Result{CallID: callID, Content: m.ToolResult.Text(), IsError: m.ToolResult.IsError}
		if r.IsError {
			r.Kind = tool.ParseKind(m.ToolResult.Kind)
		}
		return r
	case TypeError:
		return &tool.Result{
			CallID:  callID,
			Content: m.Error.Message,
			IsError: true,
			Kind:    tool.ParseKind(m.Error.Kind),
		}
	default:
		return tool.Failure(callID, tool.KindProtocolError, "Unexpected response type: %s", m.Type)
	}
}

// Encode renders the message as a single line including the trailing newline
func Encode(m *Message) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s message: %w", m.Type, err)
	}
	return append(data, '\n'), nil
}

// Decode parses and validates one line. Failures are *tool.Error values of
// kind ProtocolError whose message is suitable for an error reply.
func Decode(line []byte) (*Message, error) {
	var m Message
	if err := json.Unmarshal(line, &m); err != nil {
		return nil, tool.Errorf(tool.KindProtocolError, "Invalid JSON: %v", err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Message) validate() error {
	switch m.Type {
	case TypeCapabilities:
		return nil
	case TypeToolCall:
		if m.ToolCall == nil {
			return tool.Errorf(tool.KindProtocolError, "tool_call message without tool_call payload")
		}
	case TypeToolResult:
		if m.ToolResult == nil {
			return tool.Errorf(tool.KindProtocolError, "tool_result message without tool_result payload")
		}
	case TypeError:
		if m.Error == nil {
			return tool.Errorf(tool.KindProtocolError, "error message without error payload")
		}
	default:
		return tool.Errorf(tool.KindProtocolError, "Unsupported message type: %s", m.Type)
	}
	return nil
}

func formatArgs(args map[string]any) string {
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return string(data)
}
