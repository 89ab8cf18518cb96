package llm

import (
	"context"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

// anthropicDefaultMaxTokens is used when a request does not set MaxTokens.
// The Anthropic API rejects requests without a completion cap.
const anthropicDefaultMaxTokens = 1024

// AnthropicClient talks to the native Anthropic messages API.
type AnthropicClient struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

func newAnthropicClient(cfg *Config, logger *zap.Logger) (*AnthropicClient, error) {
	if cfg.APIKey == "" {
		return nil, NewError(ErrorTypeAuth, "anthropic API key is required", false, nil)
	}

	return &AnthropicClient{
		client:  anthropic.NewClient(cfg.APIKey),
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger.Named("llm"),
	}, nil
}

// GenerateResponse implements Client.
func (c *AnthropicClient) GenerateResponse(ctx context.Context, req GenerateRequest) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = anthropicDefaultMaxTokens
	}
	temperature := req.Temperature

	c.logger.Debug("LLM request",
		zap.String("model", c.model),
		zap.Int("prompt_len", len(req.Prompt)),
		zap.Float32("temperature", temperature))

	start := time.Now()

	resp, err := c.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:     anthropic.Model(c.model),
		System:    req.System,
		MaxTokens: maxTokens,
		Messages: []anthropic.Message{
			{Role: anthropic.RoleUser, Content: []anthropic.MessageContent{
				{Type: "text", Text: &req.Prompt},
			}},
		},
		Temperature: &temperature,
	})
	if err != nil {
		c.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", ClassifyError(err)
	}

	content := ""
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			content = *block.Text
			break
		}
	}
	if content == "" {
		return "", NewError(ErrorTypeUnknown, "no text content in response", false, nil)
	}

	c.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.InputTokens),
		zap.Int("completion_tokens", resp.Usage.OutputTokens),
		zap.Duration("elapsed", time.Since(start)))

	return content, nil
}

// Model implements Client.
func (c *AnthropicClient) Model() string {
	return c.model
}

var _ Client = (*AnthropicClient)(nil)
