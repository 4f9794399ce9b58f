package dashboard

import (
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/farmdash/kit"
)

// RegisterMCP registers the dashboard tools on an MCP server.
func (d *Dashboard) RegisterMCP(srv *mcp.Server) {
	eps := d.makeEndpoints()

	rect := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"left":   map[string]any{"type": "number"},
			"top":    map[string]any{"type": "number"},
			"right":  map[string]any{"type": "number"},
			"bottom": map[string]any{"type": "number"},
		},
		"required": []string{"left", "top", "right", "bottom"},
	}
	size := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"width":  map[string]any{"type": "number"},
			"height": map[string]any{"type": "number"},
		},
		"required": []string{"width", "height"},
	}

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "farmdash_summary",
		Description: "Summarize every map element matching a resource filter (total and average yield, estimated value after island tax, crop machine packages) and return the rendered card with its placement.",
		InputSchema: inputSchema(map[string]any{
			"filter_id": map[string]any{"type": "string", "description": "Filter key or resource name, e.g. \"wood\" or \"Sunflower Seed\""},
			"trigger":   rect,
			"markdown":  map[string]any{"type": "boolean", "description": "Also return the card as Markdown"},
		}, []string{"filter_id"}),
	}, eps.summary, decodeInto[summaryReq])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "farmdash_position",
		Description: "Place a card beside a single anchor rectangle without covering it, kept inside the viewport.",
		InputSchema: inputSchema(map[string]any{
			"card":     size,
			"anchor":   rect,
			"viewport": size,
		}, []string{"card", "anchor"}),
	}, eps.position, decodeInto[positionReq])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "farmdash_position_group",
		Description: "Place a card around a group of anchor rectangles so that it covers none of them. An empty group yields a hidden placement.",
		InputSchema: inputSchema(map[string]any{
			"card":     size,
			"anchors":  map[string]any{"type": "array", "items": rect},
			"viewport": size,
		}, []string{"card", "anchors"}),
	}, eps.positionGroup, decodeInto[positionGroupReq])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "farmdash_resource_card",
		Description: "Render the detail card of one map element (state, timers, yield, buffs, greenhouse pots, crop machine queue).",
		InputSchema: inputSchema(map[string]any{
			"index":    map[string]any{"type": "integer", "description": "Map element index, see farmdash_filters"},
			"markdown": map[string]any{"type": "boolean", "description": "Also return the card as Markdown"},
		}, []string{"index"}),
	}, eps.resource, decodeInto[resourceReq])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "farmdash_tax",
		Description: "Market tax applying to this farm: island, base rate, VIP discount, final rate.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, eps.tax, decodeInto[struct{}])

	kit.RegisterMCPTool(srv, &mcp.Tool{
		Name:        "farmdash_filters",
		Description: "List the legend triggers, every filter key present on the map, and the active filter.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}, eps.filters, decodeInto[struct{}])
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

// decodeInto decodes the tool arguments into a fresh T.
func decodeInto[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r T
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}
