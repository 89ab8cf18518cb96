package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// DBPinger reports database reachability. *pgxpool.Pool satisfies it.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// HealthToolDeps contains dependencies for the health tool.
// DB may be nil when no database pool is wired; the tool then reports
// the database as not configured.
type HealthToolDeps struct {
	Version   string
	StartedAt time.Time
	DB        DBPinger
	Logger    *zap.Logger
}

type healthResult struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
	Database      string `json:"database"`
}

// RegisterHealthTool adds a health check tool to the MCP server.
// The tool returns the engine status, version, uptime, and whether the
// database behind the pipeline is reachable.
func RegisterHealthTool(s *server.MCPServer, deps *HealthToolDeps) {
	tool := mcp.NewTool(
		"health",
		mcp.WithDescription("Returns engine health status, version, uptime, and database reachability"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		health := healthResult{
			Status:        "ok",
			Version:       deps.Version,
			UptimeSeconds: int64(time.Since(deps.StartedAt).Seconds()),
			Database:      "not_configured",
		}

		if deps.DB != nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := deps.DB.Ping(pingCtx); err != nil {
				deps.Logger.Warn("Database ping failed", zap.Error(err))
				health.Status = "degraded"
				health.Database = "unreachable"
			} else {
				health.Database = "ok"
			}
		}

		result, err := json.Marshal(health)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal health result: %w", err)
		}
		return mcp.NewToolResultText(string(result)), nil
	})
}
