// Package mcp serves the tool registry over the Model Context Protocol and
// provides a transport.Channel backed by an MCP client session.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"arxivagent/internal/tool"

	"github.com/modelcontextprotocol/go-sdk/jsonrpc"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const clientName = "arxivagent"

// Channel is a transport.Channel over an initialized MCP client session
type Channel struct {
	session *mcp.ClientSession
	onClose func() error

	mu     sync.Mutex
	known  map[string]bool // nil until Capabilities has listed the tools
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// Connect performs the initialize handshake over t
func Connect(ctx context.Context, t mcp.Transport) (*Channel, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: version}, nil)

	session, err := client.Connect(ctx, t, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MCP server: %w", err)
	}
	return &Channel{session: session}, nil
}

// Capabilities lists the server's tools in the order the server reports them
func (c *Channel) Capabilities(ctx context.Context) ([]tool.Descriptor, error) {
	var descs []tool.Descriptor
	known := make(map[string]bool)

	for t, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("failed to list tools: %w", err)
		}
		d, err := fromMCPTool(t)
		if err != nil {
			return nil, err
		}
		descs = append(descs, d)
		known[d.Name] = true
	}

	c.mu.Lock()
	c.known = known
	c.mu.Unlock()

	return descs, nil
}

func (c *Channel) Call(ctx context.Context, callID, name string, args map[string]any) *tool.Result {
	c.mu.Lock()
	closed, known := c.closed, c.known
	c.mu.Unlock()

	if closed {
		return tool.Failure(callID, tool.KindChannelClosed, "MCP session is closed")
	}
	if known != nil && !known[name] {
		return tool.Failure(callID, tool.KindUnknownTool, "Unknown tool: %s", name)
	}
	if args == nil {
		args = map[string]any{}
	}

	res, err := c.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		// A JSON-RPC error is the server rejecting the request; anything
		// else means the session is gone
		var wireErr *jsonrpc.Error
		if errors.As(err, &wireErr) {
			return tool.Failure(callID, tool.KindProtocolError, "call tool request failed: %v", err)
		}
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		return tool.Failure(callID, tool.KindChannelClosed, "MCP session lost: %v", err)
	}

	return fromCallToolResult(callID, res)
}

// ReadResource returns the text of a server resource such as HelpURI
func (c *Channel) ReadResource(ctx context.Context, uri string) (string, error) {
	res, err := c.session.ReadResource(ctx, &mcp.ReadResourceParams{URI: uri})
	if err != nil {
		return "", fmt.Errorf("failed to read resource %s: %w", uri, err)
	}

	var text string
	for _, content := range res.Contents {
		text += content.Text
	}
	return text, nil
}

// ServerName returns the name the server reported during initialize
func (c *Channel) ServerName() string {
	if init := c.session.InitializeResult(); init != nil && init.ServerInfo != nil {
		return init.ServerInfo.Name
	}
	return ""
}

// Close ends the session and releases whatever hosts the server
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		err := c.session.Close()
		if c.onClose != nil {
			err = errors.Join(err, c.onClose())
		}
		c.closeErr = err
	})
	return c.closeErr
}
