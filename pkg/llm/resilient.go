package llm

import (
	"context"

	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/retry"
)

// ResilientClient wraps a Client with a circuit breaker and classified
// retries. Retryable provider errors (connection failures, timeouts, 5xx)
// are retried with backoff; auth and model errors fail immediately. A run of
// failures trips the breaker so a dead provider is refused fast instead of
// absorbing every request's full retry budget.
type ResilientClient struct {
	inner    Client
	breaker  *CircuitBreaker
	retryCfg *retry.Config
	logger   *zap.Logger
}

// NewResilientClient wraps inner with default breaker and retry settings.
// A nil retryCfg uses the retry package defaults.
func NewResilientClient(inner Client, retryCfg *retry.Config, logger *zap.Logger) *ResilientClient {
	if retryCfg == nil {
		retryCfg = retry.DefaultConfig()
	}
	return &ResilientClient{
		inner:    inner,
		breaker:  NewCircuitBreaker(0, 0),
		retryCfg: retryCfg,
		logger:   logger.Named("llm"),
	}
}

// GenerateResponse implements Client. A refused request (breaker open) comes
// back as a non-retryable endpoint error without touching the provider.
func (r *ResilientClient) GenerateResponse(ctx context.Context, req GenerateRequest) (string, error) {
	if err := r.breaker.Allow(); err != nil {
		r.logger.Warn("LLM request refused by circuit breaker",
			zap.String("state", r.breaker.State().String()),
			zap.Int("consecutive_failures", r.breaker.ConsecutiveFailures()))
		return "", NewError(ErrorTypeEndpoint, "provider unavailable", false, err)
	}

	var content string
	err := retry.DoIfRetryable(ctx, r.retryCfg, func() error {
		var genErr error
		content, genErr = r.inner.GenerateResponse(ctx, req)
		return genErr
	})
	if err != nil {
		r.breaker.RecordFailure()
		return "", err
	}

	r.breaker.RecordSuccess()
	return content, nil
}

// Model implements Client.
func (r *ResilientClient) Model() string {
	return r.inner.Model()
}

// BreakerState exposes the circuit state for health reporting.
func (r *ResilientClient) BreakerState() CircuitState {
	return r.breaker.State()
}

var _ Client = (*ResilientClient)(nil)
