package mcp

import (
	"encoding/json"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/routine/internal/transport"
)

// toolError reports err to the caller as a tool-level failure carrying
// the same error body the REST API returns.
func toolError(err error) *sdkmcp.CallToolResult {
	_, apiErr := transport.MapError(err)
	data, _ := json.Marshal(map[string]any{"error": apiErr})
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}

// toolResult encodes v as the JSON text of a successful result.
func toolResult(v any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}
