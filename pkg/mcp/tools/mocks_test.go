package tools

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// mockPipeline implements pipeline.Pipeline for testing. It returns a fresh
// Answer per call so a tool that trims the result cannot leak the trim into
// the next call.
type mockPipeline struct {
	answer    *models.Answer
	err       error
	calls     int
	questions []string
}

func (m *mockPipeline) Answer(ctx context.Context, question models.Question) (*models.Answer, error) {
	m.calls++
	m.questions = append(m.questions, question.Text)
	if m.err != nil {
		return nil, m.err
	}
	answer := &models.Answer{
		RequestID:   question.ID,
		Question:    question.Text,
		SQL:         m.answer.SQL,
		Explanation: m.answer.Explanation,
		Metrics:     m.answer.Metrics,
	}
	if m.answer.Result != nil {
		result := *m.answer.Result
		result.Rows = append([]map[string]any(nil), m.answer.Result.Rows...)
		answer.Result = &result
	}
	return answer, nil
}

// mockCatalog implements catalog.Catalog for testing.
type mockCatalog struct {
	snapshot  *models.SchemaSnapshot
	loadErr   error
	reloadErr error
	reloads   int
}

func (m *mockCatalog) Load(ctx context.Context) error { return m.loadErr }

func (m *mockCatalog) Reload(ctx context.Context) error {
	m.reloads++
	return m.reloadErr
}

func (m *mockCatalog) Describe() *models.SchemaSnapshot { return m.snapshot }

// fakePinger implements DBPinger for testing.
type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func testSnapshot() *models.SchemaSnapshot {
	return &models.SchemaSnapshot{
		Tables: []models.Table{
			{
				Name: "products",
				Columns: []models.Column{
					{Name: "product_id", DataType: "integer", Nullable: false},
					{Name: "name", DataType: "text", Nullable: false},
				},
				PrimaryKey: []string{"product_id"},
			},
			{
				Name: "orders",
				Columns: []models.Column{
					{Name: "order_id", DataType: "integer", Nullable: false},
					{Name: "product_id", DataType: "integer", Nullable: true},
				},
				PrimaryKey: []string{"order_id"},
				ForeignKeys: []models.ForeignKey{
					{Column: "product_id", RefTable: "products", RefColumn: "product_id"},
				},
			},
		},
		LoadedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

// rpcResponse mirrors the JSON-RPC envelope HandleMessage returns, covering
// both tool results and protocol-level errors.
type rpcResponse struct {
	Result *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		IsError bool `json:"isError"`
	} `json:"result"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// callTool drives a raw JSON-RPC message through the server and parses the
// envelope that comes back.
func callTool(t *testing.T, s *server.MCPServer, request string) rpcResponse {
	t.Helper()
	raw := s.HandleMessage(context.Background(), []byte(request))
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("failed to marshal response: %v", err)
	}
	var resp rpcResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

// callToolRaw drives a raw JSON-RPC message through the server and returns
// the serialized envelope, for asserting on what the caller would see.
func callToolRaw(t *testing.T, s *server.MCPServer, request string) string {
	t.Helper()
	raw := s.HandleMessage(context.Background(), []byte(request))
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("failed to marshal response: %v", err)
	}
	return string(data)
}

// errorText returns the message of a failed call whether the failure surfaced
// as a protocol error or as an error-flagged tool result.
func errorText(t *testing.T, resp rpcResponse) string {
	t.Helper()
	if resp.Error != nil {
		return resp.Error.Message
	}
	if resp.Result != nil && resp.Result.IsError && len(resp.Result.Content) > 0 {
		return resp.Result.Content[0].Text
	}
	t.Fatal("expected the call to fail")
	return ""
}

// textContent returns the text payload of the first content item, failing
// the test when the result carries none.
func textContent(t *testing.T, resp rpcResponse) string {
	t.Helper()
	if resp.Result == nil {
		t.Fatal("expected a tool result, got none")
	}
	if len(resp.Result.Content) == 0 {
		t.Fatal("expected content in tool result")
	}
	if resp.Result.Content[0].Type != "text" {
		t.Fatalf("expected text content, got %q", resp.Result.Content[0].Type)
	}
	return resp.Result.Content[0].Text
}

func newToolServer() *server.MCPServer {
	return server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
}
