package mcp

import (
	"context"
	"encoding/json"
	"time"

	"arxivagent/internal/logger"
	"arxivagent/internal/tool"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// ServerName is advertised during the initialize handshake
	ServerName = "arXiv Knowledge"

	// HelpURI names the help resource
	HelpURI = "arxiv://help"

	version = "1.0.0"
)

const helpText = `# ArXiv Knowledge Server Help

This is an MCP server that gives you access to scientific papers on arXiv.

## Available tools

### search_arxiv_papers

Searches for papers on arXiv and returns the most relevant results.

Parameters:
- query: Search query (keywords, authors, categories, etc.)
- max_results: Maximum number of results (default 3, at most 50)

Example usage:

    Can you find papers on spintronics published in 2023?

## Tips for effective searching

- Use specific keywords for more accurate results
- Combine author names with topics
- Specify categories for targeted searches
`

// NewServer exposes every tool of the executor's registry, plus the help
// resource, as an MCP server
func NewServer(executor *tool.Executor, log *logger.Logger) *mcp.Server {
	if log == nil {
		log = logger.Discard()
	}

	server := mcp.NewServer(&mcp.Implementation{Name: ServerName, Version: version}, &mcp.ServerOptions{
		Logger:       log.Slog(),
		Instructions: "Use search_arxiv_papers to find scientific papers on arXiv.",
	})

	for _, d := range executor.Registry().List() {
		server.AddTool(toMCPTool(d), toolHandler(executor, log))
	}

	server.AddResource(&mcp.Resource{
		URI:         HelpURI,
		Name:        "arxiv_help",
		Description: "Help information on using the arXiv MCP server",
		MIMEType:    "text/markdown",
	}, func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{URI: HelpURI, MIMEType: "text/markdown", Text: helpText}},
		}, nil
	})

	return server
}

// toolHandler runs calls through the executor. Tool failures are reported
// in the result, never as protocol errors.
func toolHandler(executor *tool.Executor, log *logger.Logger) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name := req.Params.Name

		args := map[string]any{}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return toCallToolResult(tool.Failure("", tool.KindProtocolError, "Invalid arguments for %s: %v", name, err)), nil
			}
		}

		log.ToolCall(name, "", string(req.Params.Arguments))
		start := time.Now()
		result := executor.Execute(ctx, "", name, args)
		log.ToolResult(name, result.IsError, string(result.Kind), result.Content, time.Since(start))

		return toCallToolResult(result), nil
	}
}

// Serve runs the MCP server over the given transport until the client
// disconnects or ctx is done
func Serve(ctx context.Context, executor *tool.Executor, log *logger.Logger, t mcp.Transport) error {
	return NewServer(executor, log).Run(ctx, t)
}

// ServeStdio serves MCP on the process's own stdin and stdout
func ServeStdio(ctx context.Context, executor *tool.Executor, log *logger.Logger) error {
	return Serve(ctx, executor, log, &mcp.StdioTransport{})
}
