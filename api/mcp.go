package api

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/notamwatch/internal/kit"
)

// NewMCPServer returns an MCP server with the notice tools registered.
func (s *Service) NewMCPServer(version string) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "notamwatch", Version: version}, nil)
	s.RegisterMCP(srv)
	return srv
}

// RegisterMCP registers notams_list, notams_get and notams_stats on srv.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "notams_list",
		Description: "List stored Israeli NOTAMs, optionally filtered by day, ICAO location, type and region.",
		InputSchema: inputSchema(map[string]any{
			"date":   map[string]any{"type": "string", "description": "Day the notices must be in force: YYYY-MM-DD, today or tomorrow (UTC)"},
			"icao":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "ICAO location codes (e.g. LLBG)"},
			"type":   map[string]any{"type": "string", "enum": []any{"A", "C", "R", "N"}, "description": "Notice scope letter"},
			"region": map[string]any{"type": "string", "enum": []any{"all", "north", "south"}, "description": "Geographic band"},
			"limit":  map[string]any{"type": "integer", "description": "Max notices returned"},
		}, nil),
	}, s.wrap("notams_list", s.listEndpoint), kit.DecodeJSON[ListRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "notams_get",
		Description: "Get one stored NOTAM by identifier, e.g. A0814/25.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "NOTAM identifier"},
		}, []string{"id"}),
	}, s.wrap("notams_get", s.getEndpoint), kit.DecodeJSON[GetRequest]())

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "notams_stats",
		Description: "Counts of stored NOTAMs by type and busiest locations, with the last update time.",
		InputSchema: inputSchema(map[string]any{
			"top": map[string]any{"type": "integer", "description": "Number of locations listed (default 10)"},
		}, nil),
	}, s.wrap("notams_stats", s.statsEndpoint), kit.DecodeJSON[StatsRequest]())
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
