// Package transport carries tool discovery and tool calls between the agent
// and the tool-hosting process.
package transport

import (
	"context"

	"arxivagent/internal/tool"
)

// Channel is a session with a tool host. Calls are serialized: a channel
// serves one agent turn at a time.
type Channel interface {
	// Capabilities lists the tools the host offers. An error here is fatal
	// for the turn.
	Capabilities(ctx context.Context) ([]tool.Descriptor, error)

	// Call invokes one tool. Every failure, including a dead host, is
	// reported through the returned Result.
	Call(ctx context.Context, callID, name string, args map[string]any) *tool.Result

	// Close tears the session down. It is safe to call more than once.
	Close() error
}

// Opener starts a fresh channel for each turn
type Opener interface {
	Open(ctx context.Context) (Channel, error)
}

// OpenerFunc adapts a function to the Opener interface
type OpenerFunc func(ctx context.Context) (Channel, error)

func (f OpenerFunc) Open(ctx context.Context) (Channel, error) {
	return f(ctx)
}
