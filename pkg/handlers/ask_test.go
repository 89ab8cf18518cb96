package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/apperrors"
	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// mockPipeline implements pipeline.Pipeline for handler tests.
type mockPipeline struct {
	answer *models.Answer
	err    error
	calls  int
}

func (m *mockPipeline) Answer(ctx context.Context, question models.Question) (*models.Answer, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	a := models.Answer{
		RequestID: question.ID,
		Question:  question.Text,
	}
	if m.answer != nil {
		a.SQL = m.answer.SQL
		a.Explanation = m.answer.Explanation
		a.Result = m.answer.Result
		a.Metrics = m.answer.Metrics
	}
	return &a, nil
}

func passthrough(next http.HandlerFunc) http.HandlerFunc {
	return next
}

func postAsk(t *testing.T, handler *AskHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler.Ask(rec, req)
	return rec
}

func TestAskHandler_Success(t *testing.T) {
	mock := &mockPipeline{
		answer: &models.Answer{
			SQL:         "SELECT COUNT(*) FROM orders",
			Explanation: "There are 15 orders.",
			Result: &models.ExecutionResult{
				Columns:  []models.ColumnInfo{{Name: "count", Type: "int8"}},
				Rows:     []map[string]any{{"count": 15}},
				RowCount: 1,
			},
			Metrics: models.Metrics{Attempts: 1, RowCount: 1, ColumnCount: 1, Complexity: 1},
		},
	}
	handler := NewAskHandler(mock, zap.NewNop())

	rec := postAsk(t, handler, `{"question": "How many orders are there?"}`)

	assert.Equal(t, http.StatusOK, rec.Code)

	var response ApiResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.True(t, response.Success)

	dataBytes, err := json.Marshal(response.Data)
	require.NoError(t, err)

	var answer models.Answer
	require.NoError(t, json.Unmarshal(dataBytes, &answer))
	assert.Equal(t, "How many orders are there?", answer.Question)
	assert.Equal(t, "SELECT COUNT(*) FROM orders", answer.SQL)
	assert.Equal(t, "There are 15 orders.", answer.Explanation)
	require.NotNil(t, answer.Result)
	assert.Equal(t, 1, answer.Result.RowCount)
	assert.Equal(t, 1, answer.Metrics.Attempts)
}

func TestAskHandler_InvalidBody(t *testing.T) {
	mock := &mockPipeline{}
	handler := NewAskHandler(mock, zap.NewNop())

	rec := postAsk(t, handler, `{not json`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "invalid_request", errResp["error"])
	assert.Zero(t, mock.calls)
}

func TestAskHandler_MissingQuestion(t *testing.T) {
	mock := &mockPipeline{}
	handler := NewAskHandler(mock, zap.NewNop())

	rec := postAsk(t, handler, `{"question": ""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "missing_question", errResp["error"])
	assert.Zero(t, mock.calls)
}

func TestAskHandler_FailureStatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		kind       apperrors.FailureKind
		reason     string
		wantStatus int
	}{
		{"bad question", apperrors.FailureBadQuestion, "question rejected: question is empty", http.StatusBadRequest},
		{"unsafe", apperrors.FailureUnsafe, "unsafe query: statement must be a single SELECT", http.StatusUnprocessableEntity},
		{"syntax exhausted", apperrors.FailureSyntaxExhausted, "could not produce valid SQL in 3 attempts", http.StatusUnprocessableEntity},
		{"generator down", apperrors.FailureGenerator, "the SQL generator is unavailable", http.StatusServiceUnavailable},
		{"catalog down", apperrors.FailureCatalog, "the schema catalog is unavailable", http.StatusServiceUnavailable},
		{"timeout", apperrors.FailureTimeout, "the query exceeded its time budget", http.StatusGatewayTimeout},
		{"execution", apperrors.FailureExecution, "the database request failed", http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockPipeline{
				err: apperrors.NewFailure(tt.kind, tt.reason, errors.New("internal detail")),
			}
			handler := NewAskHandler(mock, zap.NewNop())

			rec := postAsk(t, handler, `{"question": "anything"}`)

			assert.Equal(t, tt.wantStatus, rec.Code)

			var errResp map[string]string
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
			assert.Equal(t, string(tt.kind), errResp["error"])
			assert.Equal(t, tt.reason, errResp["message"])
			assert.NotContains(t, errResp["message"], "internal detail")
		})
	}
}

func TestAskHandler_UnexpectedErrorStaysOpaque(t *testing.T) {
	mock := &mockPipeline{err: errors.New("pq: password authentication failed for user askdb")}
	handler := NewAskHandler(mock, zap.NewNop())

	rec := postAsk(t, handler, `{"question": "How many orders are there?"}`)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var errResp map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, "internal_error", errResp["error"])
	assert.NotContains(t, errResp["message"], "password")
}

func TestAskHandler_RegisterRoutes(t *testing.T) {
	handler := NewAskHandler(&mockPipeline{}, zap.NewNop())
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, passthrough)

	req := httptest.NewRequest(http.MethodPost, "/api/ask", bytes.NewBufferString(`{"question": "hi there"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/ask", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
