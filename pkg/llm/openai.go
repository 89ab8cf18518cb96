package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIClient talks to any OpenAI-compatible chat completion endpoint.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newOpenAIClient(cfg *Config, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("llm base URL is required for the openai provider")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("llm"),
	}, nil
}

// GenerateResponse implements Client.
func (c *OpenAIClient) GenerateResponse(ctx context.Context, req GenerateRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: req.System},
		{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
	}

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Float32("temperature", req.Temperature))

	start := time.Now()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err)
	}

	if len(resp.Choices) == 0 {
		return "", NewError(ErrorTypeUnknown, "no choices in response", false, nil)
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Duration("elapsed", time.Since(start)))

	return resp.Choices[0].Message.Content, nil
}

// Model implements Client.
func (c *OpenAIClient) Model() string {
	return c.model
}

var _ Client = (*OpenAIClient)(nil)
