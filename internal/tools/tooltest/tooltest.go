// Package tooltest provides helpers for testing MCP tool handlers.
package tooltest

import (
	"context"
	"encoding/json"
	"sort"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"
)

// ToolNames returns the sorted names of the tools registered on s.
func ToolNames(t *testing.T, s *mcpserver.MCPServer) []string {
	t.Helper()
	tools := s.ListTools()

	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Request builds a tool call request with the given arguments.
func Request(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

// Call invokes handler and returns the text of its result and whether it
// is an error result.
func Call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	result, err := handler(context.Background(), Request("", args))
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text, result.IsError
}

// Decode unmarshals the JSON text of a tool result into dst.
func Decode(t *testing.T, text string, dst any) {
	t.Helper()
	require.NoError(t, json.Unmarshal([]byte(text), dst))
}
