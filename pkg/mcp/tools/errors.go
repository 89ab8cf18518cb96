package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/askdb-ai/askdb-engine/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results.
// This is used to return actionable error information to the calling agent
// as a tool result, ensuring error details are visible rather than being
// swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for failures the calling agent can act on by changing its
// input (e.g., an empty question, a question that asks for a write).
//
// Do NOT use this for system failures (database connection errors,
// generator outages) - those should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// rephrasable reports whether a failure can be fixed by the caller changing
// the question. Rephrasable failures come back as structured error results
// so the agent sees the reason and can retry; everything else is an
// infrastructure fault and surfaces as a plain error.
func rephrasable(kind apperrors.FailureKind) bool {
	switch kind {
	case apperrors.FailureBadQuestion, apperrors.FailureUnsafe, apperrors.FailureSyntaxExhausted:
		return true
	}
	return false
}
