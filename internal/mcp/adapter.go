package mcp

import (
	"encoding/json"
	"fmt"
	"strings"

	"arxivagent/internal/tool"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// errorKindKey carries the tool.ErrorKind of a failed call in the result's _meta
const errorKindKey = "error_kind"

// toMCPTool describes a registered tool to MCP clients
func toMCPTool(d tool.Descriptor) *mcp.Tool {
	return &mcp.Tool{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: d.Schema(),
	}
}

// fromMCPTool rebuilds an ordered descriptor from a listed MCP tool
func fromMCPTool(t *mcp.Tool) (tool.Descriptor, error) {
	schema, err := schemaMap(t.InputSchema)
	if err != nil {
		return tool.Descriptor{}, fmt.Errorf("tool %s: %w", t.Name, err)
	}
	return tool.DescriptorFromSchema(t.Name, t.Description, schema)
}

// schemaMap normalizes the SDK's untyped InputSchema to a JSON object
func schemaMap(s any) (map[string]any, error) {
	if s == nil {
		return map[string]any{"type": "object", "properties": map[string]any{}}, nil
	}
	if m, ok := s.(map[string]any); ok {
		return m, nil
	}

	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal input schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("input schema is not an object: %w", err)
	}
	return m, nil
}

// toCallToolResult reports a tool result as MCP text content. Failures set
// IsError and record their kind in _meta.
func toCallToolResult(r *tool.Result) *mcp.CallToolResult {
	res := &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: r.Content}},
		IsError: r.IsError,
	}
	if r.IsError {
		res.Meta = mcp.Meta{errorKindKey: string(r.Kind)}
	}
	return res
}

// fromCallToolResult converts an MCP result back to a tool.Result
func fromCallToolResult(callID string, res *mcp.CallToolResult) *tool.Result {
	content := formatContent(res.Content)
	if !res.IsError {
		return tool.Success(callID, content)
	}

	kind := tool.KindToolExecutionFailed
	if k, ok := res.Meta[errorKindKey].(string); ok {
		kind = tool.ParseKind(k)
	}
	if content == "" {
		content = "tool returned an error"
	}
	return &tool.Result{CallID: callID, Content: content, IsError: true, Kind: kind}
}

// formatContent converts an MCP content array to text
func formatContent(content []mcp.Content) string {
	var parts []string

	for _, item := range content {
		switch c := item.(type) {
		case *mcp.TextContent:
			parts = append(parts, c.Text)

		case *mcp.ImageContent:
			parts = append(parts, fmt.Sprintf("[Image: %s]", c.MIMEType))

		case *mcp.AudioContent:
			parts = append(parts, fmt.Sprintf("[Audio: %s]", c.MIMEType))

		default:
			data, err := json.Marshal(item)
			if err != nil {
				parts = append(parts, fmt.Sprintf("[Unknown content type: %T]", item))
			} else {
				parts = append(parts, string(data))
			}
		}
	}

	return strings.Join(parts, "\n")
}
