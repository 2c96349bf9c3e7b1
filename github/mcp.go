package github

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anurag-bit/sih-tj/kit"
)

type recommendReq struct {
	Username string `json:"username"`
}

// RegisterMCP registers the recommendation tool on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "compass_recommend",
		Description: "Recommend problem statements matching a GitHub user's public repositories and tech stack.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"username": map[string]any{"type": "string", "description": "GitHub username"},
			},
			"required": []string{"username"},
		},
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*recommendReq)
		results, err := s.Recommend(ctx, r.Username)
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": results, "count": len(results)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r recommendReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
