package llm

import (
	"context"
)

// MockClient is a configurable Client for tests. Set the function field to
// control behavior; the zero configuration returns empty content.
type MockClient struct {
	// GenerateResponseFunc is called when GenerateResponse is invoked.
	// If nil, an empty string and nil error are returned.
	GenerateResponseFunc func(ctx context.Context, req GenerateRequest) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	// GenerateResponseCalls counts invocations for verification.
	GenerateResponseCalls int

	// Requests records every request passed to GenerateResponse.
	Requests []GenerateRequest
}

// NewMockClient creates a mock with defaults.
func NewMockClient() *MockClient {
	return &MockClient{ModelName: "mock-model"}
}

// GenerateResponse implements Client.
func (m *MockClient) GenerateResponse(ctx context.Context, req GenerateRequest) (string, error) {
	m.GenerateResponseCalls++
	m.Requests = append(m.Requests, req)
	if m.GenerateResponseFunc != nil {
		return m.GenerateResponseFunc(ctx, req)
	}
	return "", nil
}

// Model implements Client.
func (m *MockClient) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Reset clears call tracking.
func (m *MockClient) Reset() {
	m.GenerateResponseCalls = 0
	m.Requests = nil
}

var _ Client = (*MockClient)(nil)
