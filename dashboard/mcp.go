package dashboard

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anurag-bit/sih-tj/kit"
)

type statsReq struct {
	ForceRefresh bool `json:"force_refresh,omitempty"`
}

// RegisterMCP registers the dashboard tool on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "compass_dashboard",
		Description: "Get catalog analytics: category histogram, top organizations, and ranked keywords.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"force_refresh": map[string]any{"type": "boolean", "description": "Bypass the cache and rescan"},
			},
		},
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*statsReq)
		return s.Stats(ctx, r.ForceRefresh)
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		r := &statsReq{}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
