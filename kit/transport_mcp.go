package kit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pageshot/idgen"
)

var newTraceID = idgen.NanoID(8)

// Endpoint is a transport-agnostic handler: typed request in, JSON-able
// response out.
type Endpoint func(ctx context.Context, req any) (any, error)

// MCPDecodeResult holds the decoded request.
type MCPDecodeResult struct {
	Request any
}

// RegisterMCPTool registers endpoint as an MCP tool. decode extracts the
// typed request from req.Params.Arguments. Each call runs with transport
// "mcp" and a fresh trace ID. Decode and endpoint errors become tool
// errors, never protocol errors; endpoint messages are kept verbatim.
func RegisterMCPTool(srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint, decode func(*mcp.CallToolRequest) (*MCPDecodeResult, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		decoded, err := decode(req)
		if err != nil {
			return toolError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}
		ctx = WithTransport(ctx, "mcp")
		if GetTraceID(ctx) == "" {
			ctx = WithTraceID(ctx, newTraceID())
		}

		resp, err := endpoint(ctx, decoded.Request)
		if err != nil {
			return toolError(err.Error()), nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			return toolError(fmt.Sprintf("marshal: %v", err)), nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}

func toolError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
	}
}
