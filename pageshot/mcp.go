// CLAUDE:SUMMARY Registers the pageshot MCP tools: capture, list, get, progress.
package pageshot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pageshot/kit"
	"github.com/hazyhaar/pageshot/pageshot/internal/protocol"
)

// RegisterMCP registers pageshot tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerCaptureTool(srv)
	s.registerListTool(srv)
	s.registerGetTool(srv)
	s.registerProgressTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	sch := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sch["required"] = required
	}
	return sch
}

// --- capture ---

type mcpCaptureRequest struct {
	URL          string `json:"url"`
	IncludeImage bool   `json:"include_image,omitempty"`
}

type mcpCaptureResponse struct {
	*Record
	DataURL string `json:"data_url,omitempty"`
}

func (s *Service) registerCaptureTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pageshot_capture",
		Description: "Take a full-page screenshot of a URL. Returns the capture metadata, optionally with the image as a data URL.",
		InputSchema: inputSchema(map[string]any{
			"url":           map[string]any{"type": "string", "description": "Page to capture"},
			"include_image": map[string]any{"type": "boolean", "description": "Return the encoded image as a base64 data URL"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpCaptureRequest)
		res, err := s.Capture(ctx, r.URL)
		if err != nil {
			return nil, err
		}
		out := &mcpCaptureResponse{Record: res.Record}
		if r.IncludeImage {
			out.DataURL = protocol.EncodeDataURL(res.MIME, res.Image)
		}
		return out, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r mcpCaptureRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		if r.URL == "" {
			return nil, errors.New("url is required")
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- list ---

type mcpListRequest struct {
	Limit int `json:"limit,omitempty"`
}

func (s *Service) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pageshot_list",
		Description: "List stored captures, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max results (default 50)"},
		}, nil),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpListRequest)
		recs, err := s.List(ctx, r.Limit)
		if err != nil {
			return nil, err
		}
		if recs == nil {
			recs = []*Record{}
		}
		return recs, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r mcpListRequest
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- get ---

type mcpGetRequest struct {
	ID string `json:"id"`
}

func (s *Service) registerGetTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pageshot_get",
		Description: "Get a stored capture's metadata, content inventory and Markdown by ID.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Capture ID"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpGetRequest)
		rec, err := s.Get(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			return nil, fmt.Errorf("capture %s not found", r.ID)
		}
		return rec, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r mcpGetRequest
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- progress ---

func (s *Service) registerProgressTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pageshot_progress",
		Description: "Report the state of the running capture.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		p := s.Progress()
		return map[string]any{"state": p.State.String(), "tiles": p.Tiles}, nil
	}

	decode := func(*mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
