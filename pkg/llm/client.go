// Package llm provides the text-generation clients used by the pipeline.
// It supports any OpenAI-compatible endpoint (including OpenRouter and local
// vLLM/Ollama servers) plus the native Anthropic API, behind one Client
// interface.
package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// GenerateRequest describes one text-generation call.
type GenerateRequest struct {
	// System is the system message framing the task.
	System string
	// Prompt is the user-turn content.
	Prompt string
	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int
	// Temperature controls sampling. SQL generation wants 0.
	Temperature float32
}

// Client generates a text completion for a single request.
type Client interface {
	GenerateResponse(ctx context.Context, req GenerateRequest) (string, error)
	Model() string
}

// Config holds provider settings for creating a client.
type Config struct {
	// Provider selects the implementation: "openai" or "anthropic".
	// Empty defaults to "openai".
	Provider string
	// BaseURL is the API base for OpenAI-compatible endpoints,
	// e.g. "https://openrouter.ai/api/v1" or "http://localhost:8000/v1".
	// Ignored by the anthropic provider.
	BaseURL string
	// Model is the model identifier sent with every request.
	Model string
	// APIKey authenticates requests. Optional for local endpoints.
	APIKey string
	// Timeout bounds a single provider round trip. Zero disables it.
	Timeout time.Duration
}

// NewClient builds the provider client selected by cfg.Provider.
func NewClient(cfg *Config, logger *zap.Logger) (Client, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required")
	}

	switch cfg.Provider {
	case "openai", "":
		return newOpenAIClient(cfg, logger)
	case "anthropic":
		return newAnthropicClient(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown llm provider %q (want \"openai\" or \"anthropic\")", cfg.Provider)
	}
}
