package rum

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/rumwatch/kit"
)

// RegisterMCP registers the agent's diagnostic tools on an MCP server.
func (a *Agent) RegisterMCP(srv *mcp.Server) {
	a.registerStatusTool(srv)
	a.registerRecentTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- status ---

type statusReq struct{}

func (a *Agent) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "rum_status",
		Description: "Current collection state: session, sampling decision, endpoint, enabled checkpoints, dispatch counters.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return a.Status(), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: &statusReq{}}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- recent ---

type recentReq struct {
	Limit int `json:"limit,omitempty"`
}

func (a *Agent) registerRecentTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "rum_recent",
		Description: "Most recently dispatched checkpoint records, newest first.",
		InputSchema: inputSchema(map[string]any{
			"limit": map[string]any{"type": "integer", "description": "Max records (default 20)"},
		}, nil),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*recentReq)
		limit := r.Limit
		if limit <= 0 {
			limit = 20
		}
		return a.Recent(limit), nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r recentReq
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
				return nil, err
			}
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
