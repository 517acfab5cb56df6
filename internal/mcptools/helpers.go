// Package mcptools exposes Grain's calculators, dashboard and project costing
// as MCP tools.
//
// Each tool is a struct holding its dependencies with two methods:
// Definition returns the mcp.Tool schema and Handle serves a call.
// Failures are reported as tool errors, never as protocol errors.
package mcptools

import (
	"github.com/dustin/go-humanize"
	"github.com/mark3labs/mcp-go/mcp"
)

// floatArg extracts a number argument. ok is false when the key is missing
// or not a number (JSON numbers arrive as float64).
func floatArg(req mcp.CallToolRequest, key string) (float64, bool) {
	v, ok := req.GetArguments()[key].(float64)
	return v, ok
}

func money(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func number(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
