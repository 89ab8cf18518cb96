package tools

import (
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// trimString removes leading and trailing whitespace from a string.
// This is a common helper used across MCP tool parameter validation.
func trimString(s string) string {
	return strings.TrimSpace(s)
}

// getOptionalString extracts an optional string argument from the request.
// Returns the empty string when the argument is absent or not a string.
func getOptionalString(req mcp.CallToolRequest, key string) string {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return ""
	}
	val, ok := args[key].(string)
	if !ok {
		return ""
	}
	return val
}

// getOptionalFloat extracts an optional float argument from the request.
func getOptionalFloat(req mcp.CallToolRequest, key string) (float64, bool) {
	args, ok := req.Params.Arguments.(map[string]any)
	if !ok {
		return 0, false
	}
	val, ok := args[key].(float64)
	return val, ok
}
