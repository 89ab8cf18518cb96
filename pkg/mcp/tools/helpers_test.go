package tools

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
)

func TestTrimString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"whitespace only", "   ", ""},
		{"leading whitespace", "  test", "test"},
		{"trailing whitespace", "test  ", "test"},
		{"both sides whitespace", "  test  ", "test"},
		{"tabs", "\ttest\t", "test"},
		{"newlines", "\ntest\n", "test"},
		{"mixed whitespace", " \t\ntest\n\t ", "test"},
		{"no whitespace", "test", "test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := trimString(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestGetOptionalString(t *testing.T) {
	t.Run("present string", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"table": "orders"}

		assert.Equal(t, "orders", getOptionalString(req, "table"))
	})

	t.Run("absent key", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		assert.Equal(t, "", getOptionalString(req, "table"))
	})

	t.Run("nil arguments", func(t *testing.T) {
		req := mcp.CallToolRequest{}

		assert.Equal(t, "", getOptionalString(req, "table"))
	})

	t.Run("wrong type", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"table": 7}

		assert.Equal(t, "", getOptionalString(req, "table"))
	})
}

func TestGetOptionalFloat(t *testing.T) {
	t.Run("present number", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"row_limit": float64(25)}

		val, ok := getOptionalFloat(req, "row_limit")
		assert.True(t, ok)
		assert.Equal(t, float64(25), val)
	})

	t.Run("absent key", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		_, ok := getOptionalFloat(req, "row_limit")
		assert.False(t, ok)
	})

	t.Run("nil arguments", func(t *testing.T) {
		req := mcp.CallToolRequest{}

		_, ok := getOptionalFloat(req, "row_limit")
		assert.False(t, ok)
	})

	t.Run("wrong type", func(t *testing.T) {
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"row_limit": "25"}

		_, ok := getOptionalFloat(req, "row_limit")
		assert.False(t, ok)
	})
}
