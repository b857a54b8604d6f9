package tool

import (
	"context"
	"fmt"
)

// Tool defines the interface that all tools must implement
type Tool interface {
	// Descriptor returns the immutable name, description and parameter list
	Descriptor() Descriptor

	// Execute runs the tool with already validated arguments. Returning a
	// *Error selects the error kind reported to the model; any other error
	// is reported as ToolExecutionFailed.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// ParamType is a JSON schema primitive type name
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeInteger ParamType = "integer"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeArray   ParamType = "array"
	TypeObject  ParamType = "object"
)

// Param describes one named tool argument
type Param struct {
	Name        string
	Type        ParamType
	Description string
	Required    bool
	Default     any      // Applied by the executor when the argument is absent
	Minimum     *float64 // Optional numeric lower bound
	Maximum     *float64 // Optional numeric upper bound
}

// Descriptor is the schema-described capability the model may call
type Descriptor struct {
	Name        string
	Description string
	Params      []Param
}

// Param returns the parameter with the given name
func (d Descriptor) Param(name string) (Param, bool) {
	for _, p := range d.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// ErrorKind classifies a failed tool result
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindUnknownTool         ErrorKind = "UnknownTool"
	KindMissingArgument     ErrorKind = "MissingArgument"
	KindInvalidArgument     ErrorKind = "InvalidArgument"
	KindProtocolError       ErrorKind = "ProtocolError"
	KindChannelClosed       ErrorKind = "ChannelClosed"
	KindToolExecutionFailed ErrorKind = "ToolExecutionFailed"
)

// ParseKind maps a wire string back to a known kind. Unknown strings are
// reported as ToolExecutionFailed so a misbehaving server cannot invent kinds.
func ParseKind(s string) ErrorKind {
	switch k := ErrorKind(s); k {
	case KindUnknownTool, KindMissingArgument, KindInvalidArgument,
		KindProtocolError, KindChannelClosed, KindToolExecutionFailed:
		return k
	default:
		return KindToolExecutionFailed
	}
}

// Error is a tool failure with an explicit kind
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Errorf builds a *Error
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Result is the outcome of one tool call, correlated by call id
type Result struct {
	CallID  string
	Content string
	IsError bool
	Kind    ErrorKind
}

// Success builds a successful result
func Success(callID, content string) *Result {
	return &Result{CallID: callID, Content: content}
}

// Failure builds an error result
func Failure(callID string, kind ErrorKind, format string, args ...any) *Result {
	return &Result{
		CallID:  callID,
		Content: fmt.Sprintf(format, args...),
		IsError: true,
		Kind:    kind,
	}
}

// Text renders the result as the tool-role message content fed back to the
// model. Errors are prefixed so the model can explain them to the user.
func (r *Result) Text() string {
	if !r.IsError {
		return r.Content
	}
	return fmt.Sprintf("Error (%s): %s", r.Kind, r.Content)
}
