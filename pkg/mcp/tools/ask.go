package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/apperrors"
	"github.com/askdb-ai/askdb-engine/pkg/models"
	"github.com/askdb-ai/askdb-engine/pkg/pipeline"
)

// AskToolDeps contains dependencies for the ask_question tool.
type AskToolDeps struct {
	Pipeline pipeline.Pipeline
	Logger   *zap.Logger
}

// RegisterAskTool adds the ask_question tool to the MCP server.
// The tool runs the full question-to-answer pipeline and returns the
// accepted SQL, the rows it produced, and a plain language explanation.
func RegisterAskTool(s *server.MCPServer, deps *AskToolDeps) {
	tool := mcp.NewTool(
		"ask_question",
		mcp.WithDescription(
			"Answer a natural language question about the connected database. "+
				"Generates a safe read-only SQL query, executes it, and returns the rows "+
				"along with the SQL and a plain language explanation. "+
				"Use get_schema first to see which tables and columns exist.",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question in plain language (e.g., \"Which customers placed the most orders last month?\")"),
		),
		mcp.WithNumber(
			"row_limit",
			mcp.Description("Optional: max rows to include in the result. The engine's own row cap still applies first."),
		),
		mcp.WithReadOnlyHintAnnotation(true), // Only SELECT statements ever execute
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false), // SQL generation is not deterministic
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		questionText, err := req.RequireString("question")
		if err != nil {
			return nil, err
		}
		if trimString(questionText) == "" {
			return NewErrorResult("bad_question", "parameter 'question' cannot be empty"), nil
		}

		rowLimit := 0
		if limitVal, ok := getOptionalFloat(req, "row_limit"); ok {
			rowLimit = int(limitVal)
		}

		question := models.NewQuestion(questionText)
		answer, err := deps.Pipeline.Answer(ctx, question)
		if err != nil {
			failure, ok := apperrors.AsFailure(err)
			if !ok {
				deps.Logger.Error("Question processing failed",
					zap.String("request_id", question.ID.String()),
					zap.Error(err))
				return nil, errors.New("failed to answer question")
			}
			deps.Logger.Warn("Question not answered",
				zap.String("request_id", question.ID.String()),
				zap.String("kind", string(failure.Kind)),
				zap.Error(failure.Err))
			if rephrasable(failure.Kind) {
				return NewErrorResult(string(failure.Kind), failure.Reason), nil
			}
			return nil, errors.New(failure.Reason)
		}

		// The engine row cap is authoritative; row_limit only narrows the
		// payload returned to the agent, never widens it.
		if rowLimit > 0 && answer.Result != nil && rowLimit < len(answer.Result.Rows) {
			answer.Result.Rows = answer.Result.Rows[:rowLimit]
			answer.Result.RowCount = rowLimit
			answer.Result.Truncated = true
		}

		jsonResult, err := json.Marshal(answer)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal answer: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
