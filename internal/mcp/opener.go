package mcp

import (
	"context"
	"fmt"

	"arxivagent/internal/logger"
	"arxivagent/internal/tool"
	"arxivagent/internal/transport"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CommandOpener starts the tool server as a child process speaking MCP on
// its stdio
type CommandOpener struct {
	Process transport.Process
}

func (o *CommandOpener) Open(ctx context.Context) (transport.Channel, error) {
	if o.Process.Command == "" {
		return nil, fmt.Errorf("tool server command is empty")
	}

	// The session outlives ctx: it ends with Close, not with the caller's context
	cmd := o.Process.Cmd(context.WithoutCancel(ctx))
	t := &mcp.CommandTransport{Command: cmd, TerminateDuration: o.Process.ShutdownGrace}

	ch, err := Connect(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("failed to start MCP tool server %q: %w", o.Process.Command, err)
	}
	return ch, nil
}

// InProcessOpener serves the executor's tools from the agent's own process,
// still going through the MCP initialize handshake
type InProcessOpener struct {
	Executor *tool.Executor
	Logger   *logger.Logger
}

func (o *InProcessOpener) Open(ctx context.Context) (transport.Channel, error) {
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := NewServer(o.Executor, o.Logger).Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to start in-process MCP server: %w", err)
	}

	ch, err := Connect(ctx, clientTransport)
	if err != nil {
		ss.Close()
		return nil, err
	}

	ch.onClose = func() error {
		// The server session ends with the client; its close error carries
		// nothing the caller can act on
		ss.Close()
		return nil
	}
	return ch, nil
}
