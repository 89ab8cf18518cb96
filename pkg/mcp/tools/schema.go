package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/catalog"
	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// SchemaToolDeps contains dependencies for the get_schema tool.
type SchemaToolDeps struct {
	Catalog catalog.Catalog
	Logger  *zap.Logger
}

// schemaResult is the response structure for get_schema.
type schemaResult struct {
	Tables      []models.Table `json:"tables"`
	TotalTables int            `json:"total_tables"`
	LoadedAt    string         `json:"loaded_at"`
}

// RegisterSchemaTool adds the get_schema tool to the MCP server.
// The tool returns the published schema snapshot: tables, columns, primary
// keys, and foreign keys, so an agent can see what questions are answerable.
func RegisterSchemaTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"get_schema",
		mcp.WithDescription(
			"Get the schema of the connected database: tables, columns with types and "+
				"nullability, primary keys, and foreign key relationships. "+
				"Use this before ask_question to see which tables and columns exist.",
		),
		mcp.WithString(
			"table",
			mcp.Description("Optional: return only the named table instead of the full schema"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snapshot := deps.Catalog.Describe()
		if snapshot == nil {
			return nil, errors.New("the schema catalog is unavailable")
		}

		tables := snapshot.Tables
		if name := trimString(getOptionalString(req, "table")); name != "" {
			table := snapshot.FindTable(name)
			if table == nil {
				return NewErrorResult("table_not_found",
					fmt.Sprintf("no table named '%s' in the schema", name)), nil
			}
			tables = []models.Table{*table}
		}

		result := schemaResult{
			Tables:      tables,
			TotalTables: len(tables),
			LoadedAt:    snapshot.LoadedAt.UTC().Format(time.RFC3339),
		}

		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
