package search

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/anurag-bit/sih-tj/kit"
)

// RegisterMCP registers the search tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerSearchTool(srv)
	s.registerProblemTool(srv)
	s.registerStatsTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	sc := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		sc["required"] = required
	}
	return sc
}

// --- compass_search ---

type searchReq struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

func (s *Service) registerSearchTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "compass_search",
		Description: "Semantic search over hackathon problem statements. Returns the most similar problems with similarity scores.",
		InputSchema: inputSchema(map[string]any{
			"query": map[string]any{"type": "string", "description": "Free-text query describing interests or a problem area"},
			"limit": map[string]any{"type": "integer", "description": "Number of results (default: 20, max: 100)"},
		}, []string{"query"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*searchReq)
		results, err := s.Search(ctx, r.Query, r.Limit)
		if err != nil {
			return nil, err
		}
		return map[string]any{"results": results, "count": len(results)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r searchReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- compass_problem ---

type problemReq struct {
	ID string `json:"id"`
}

func (s *Service) registerProblemTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "compass_problem",
		Description: "Fetch one problem statement by its exact ID.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Problem statement ID (e.g. SIH1234)"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*problemReq)
		problem, err := s.GetByID(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		if problem == nil {
			return nil, errors.New("problem not found: " + r.ID)
		}
		return problem, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r problemReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- compass_stats ---

func (s *Service) registerStatsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "compass_stats",
		Description: "Get collection statistics: total problems plus category and organization histograms.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return s.CollectionStats(ctx)
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
