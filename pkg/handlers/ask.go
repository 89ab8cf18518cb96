package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/apperrors"
	"github.com/askdb-ai/askdb-engine/pkg/models"
	"github.com/askdb-ai/askdb-engine/pkg/pipeline"
)

// Middleware wraps a handler with a cross-cutting concern.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// AskRequest is the POST /api/ask body.
type AskRequest struct {
	Question string `json:"question"`
}

// AskHandler answers natural-language questions over HTTP.
type AskHandler struct {
	pipeline pipeline.Pipeline
	logger   *zap.Logger
}

// NewAskHandler creates a new ask handler.
func NewAskHandler(p pipeline.Pipeline, logger *zap.Logger) *AskHandler {
	return &AskHandler{
		pipeline: p,
		logger:   logger,
	}
}

// RegisterRoutes registers the ask handler's routes on the given mux.
func (h *AskHandler) RegisterRoutes(mux *http.ServeMux, requireAuth Middleware) {
	mux.HandleFunc("POST /api/ask", requireAuth(h.Ask))
}

// Ask handles POST /api/ask.
func (h *AskHandler) Ask(w http.ResponseWriter, r *http.Request) {
	var req AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if req.Question == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "missing_question", "Question is required"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	question := models.NewQuestion(req.Question)
	answer, err := h.pipeline.Answer(r.Context(), question)
	if err != nil {
		failure, ok := apperrors.AsFailure(err)
		if !ok {
			h.logger.Error("Ask failed",
				zap.String("request_id", question.ID.String()),
				zap.Error(err))
			if err := ErrorResponse(w, http.StatusInternalServerError, "internal_error", "The request could not be completed"); err != nil {
				h.logger.Error("Failed to write error response", zap.Error(err))
			}
			return
		}

		h.logger.Warn("Question not answered",
			zap.String("request_id", question.ID.String()),
			zap.String("kind", string(failure.Kind)),
			zap.Error(failure.Err))
		if err := ErrorResponse(w, statusForKind(failure.Kind), string(failure.Kind), failure.Reason); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	response := ApiResponse{Success: true, Data: answer}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// statusForKind maps a terminal failure kind to an HTTP status. Client-side
// faults land in 4xx, dependency faults in 5xx.
func statusForKind(kind apperrors.FailureKind) int {
	switch kind {
	case apperrors.FailureBadQuestion:
		return http.StatusBadRequest
	case apperrors.FailureUnsafe, apperrors.FailureSyntaxExhausted:
		return http.StatusUnprocessableEntity
	case apperrors.FailureGenerator, apperrors.FailureCatalog:
		return http.StatusServiceUnavailable
	case apperrors.FailureTimeout:
		return http.StatusGatewayTimeout
	case apperrors.FailureExecution:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
