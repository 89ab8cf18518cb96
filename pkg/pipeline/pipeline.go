// Package pipeline turns a natural-language question into an executed,
// explained answer. The orchestrator screens the question, runs the bounded
// generate/validate/repair loop, executes the accepted statement under the
// configured row and time caps, and degrades gracefully when only the
// narrative explanation fails. It holds no per-request state; any number of
// requests may be in flight at once.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/adapters/datasource"
	"github.com/askdb-ai/askdb-engine/pkg/apperrors"
	"github.com/askdb-ai/askdb-engine/pkg/catalog"
	"github.com/askdb-ai/askdb-engine/pkg/config"
	"github.com/askdb-ai/askdb-engine/pkg/llm"
	"github.com/askdb-ai/askdb-engine/pkg/metrics"
	"github.com/askdb-ai/askdb-engine/pkg/models"
	"github.com/askdb-ai/askdb-engine/pkg/prompts"
	"github.com/askdb-ai/askdb-engine/pkg/sql"
)

// Pipeline answers questions against the connected database.
type Pipeline interface {
	// Answer runs the full sequence for one question. It returns either an
	// Answer or an error that unwraps to *apperrors.PipelineFailure with a
	// display-safe reason.
	Answer(ctx context.Context, question models.Question) (*models.Answer, error)
}

type pipeline struct {
	loop        *repairLoop
	llmClient   llm.Client
	checker     datasource.SyntaxChecker
	executor    datasource.Executor
	catalog     catalog.Catalog
	cache       AnswerCache
	cfg         *config.PipelineConfig
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// NewPipeline creates the orchestrator with its dependencies. The same LLM
// client serves generation, repair, and explanation.
func NewPipeline(
	llmClient llm.Client,
	checker datasource.SyntaxChecker,
	executor datasource.Executor,
	cat catalog.Catalog,
	cache AnswerCache,
	pipeCfg *config.PipelineConfig,
	llmCfg *config.LLMConfig,
	logger *zap.Logger,
) Pipeline {
	logger = logger.Named("pipeline")
	return &pipeline{
		loop: &repairLoop{
			generator:   llmClient,
			checker:     checker,
			maxAttempts: pipeCfg.MaxAttempts,
			maxTokens:   llmCfg.MaxTokens,
			temperature: llmCfg.Temperature,
			logger:      logger,
		},
		llmClient:   llmClient,
		checker:     checker,
		executor:    executor,
		catalog:     cat,
		cache:       cache,
		cfg:         pipeCfg,
		maxTokens:   llmCfg.MaxTokens,
		temperature: llmCfg.Temperature,
		logger:      logger,
	}
}

func (p *pipeline) Answer(ctx context.Context, question models.Question) (*models.Answer, error) {
	logger := p.logger.With(zap.String("request_id", question.ID.String()))

	if err := sql.ScreenQuestion(question.Text, p.cfg.MaxQuestionLen); err != nil {
		logger.Warn("Question rejected", zap.Error(err))
		return nil, p.failureFor(err)
	}

	snapshot := p.catalog.Describe()
	if snapshot == nil {
		return nil, p.failureFor(fmt.Errorf("%w: no schema snapshot loaded", apperrors.ErrCatalogUnavailable))
	}

	if cachedSQL, ok := p.cache.Get(ctx, question.Text); ok {
		answer, valid, err := p.runCached(ctx, logger, question, snapshot, cachedSQL)
		if err != nil {
			return nil, p.failureFor(err)
		}
		if valid {
			return answer, nil
		}
		logger.Info("Cached SQL no longer validates, regenerating")
	}

	res, err := p.loop.run(ctx, question, snapshot)
	if err != nil {
		return nil, p.failureFor(err)
	}

	execStart := time.Now()
	result, err := p.executor.Execute(ctx, res.SQL, p.cfg.RowLimit, p.cfg.TimeBudget())
	execElapsed := time.Since(execStart)
	if err != nil {
		logger.Error("Execution failed",
			zap.Int("attempts", res.Attempts),
			zap.Error(err))
		return nil, p.failureFor(err)
	}

	m := metrics.Collect(metrics.Timings{
		Generation: res.Generation,
		Validation: res.Validation,
		Execution:  execElapsed,
		Attempts:   res.Attempts,
	}, result, res.SQL)

	answer := &models.Answer{
		RequestID: question.ID,
		Question:  question.Text,
		SQL:       res.SQL,
		Result:    result,
		Metrics:   m,
	}

	explanation, expErr := p.explain(ctx, question.Text, res.SQL, result)
	if expErr != nil {
		logger.Warn("Explanation degraded", zap.Error(expErr))
	}
	answer.Explanation = explanation

	p.cache.Put(ctx, question.Text, res.SQL)

	logger.Info("Question answered",
		zap.Int("attempts", res.Attempts),
		zap.Int("rows", result.RowCount),
		zap.Int("complexity", m.Complexity),
		zap.Int64("generation_ms", m.GenerationMS),
		zap.Int64("execution_ms", m.ExecutionMS))

	return answer, nil
}

// runCached revalidates a cache hit against the current snapshot and runs
// it. valid=false sends the request through the full loop instead; a
// non-nil error is terminal.
func (p *pipeline) runCached(ctx context.Context, logger *zap.Logger, question models.Question, snapshot *models.SchemaSnapshot, cachedSQL string) (*models.Answer, bool, error) {
	valStart := time.Now()
	if safety := sql.Validate(cachedSQL, snapshot); !safety.Accepted() {
		return nil, false, nil
	}

	syntax, err := p.checker.CheckSyntax(ctx, cachedSQL)
	valElapsed := time.Since(valStart)
	if err != nil {
		return nil, false, err
	}
	if !syntax.Accepted() {
		return nil, false, nil
	}

	execStart := time.Now()
	result, err := p.executor.Execute(ctx, cachedSQL, p.cfg.RowLimit, p.cfg.TimeBudget())
	execElapsed := time.Since(execStart)
	if err != nil {
		return nil, false, err
	}

	// Attempts stays zero: the cached run consumed no generator calls.
	m := metrics.Collect(metrics.Timings{
		Validation: valElapsed,
		Execution:  execElapsed,
	}, result, cachedSQL)

	answer := &models.Answer{
		RequestID: question.ID,
		Question:  question.Text,
		SQL:       cachedSQL,
		Result:    result,
		Metrics:   m,
	}

	explanation, expErr := p.explain(ctx, question.Text, cachedSQL, result)
	if expErr != nil {
		logger.Warn("Explanation degraded", zap.Error(expErr))
	}
	answer.Explanation = explanation

	logger.Info("Answered from cache", zap.Int("rows", result.RowCount))
	return answer, true, nil
}

// explain asks the model for a narrative answer over the result sample. A
// failure degrades to an empty explanation; the returned error wraps
// ErrExplanationUnavailable and is only ever logged.
func (p *pipeline) explain(ctx context.Context, question, sqlQuery string, result *models.ExecutionResult) (string, error) {
	raw, err := p.llmClient.GenerateResponse(ctx, llm.GenerateRequest{
		System:      prompts.BuildExplanationSystemMessage(),
		Prompt:      prompts.BuildExplanationPrompt(question, sqlQuery, result, p.cfg.ExplanationRows),
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrExplanationUnavailable, err)
	}
	return llm.StripThinking(raw), nil
}

// failureFor maps a terminal error onto the failure taxonomy. Reasons stay
// display-safe: screen and validator messages come from our own fixed
// vocabulary, while parser, database, and provider text lives only on the
// wrapped error, which goes to logs.
func (p *pipeline) failureFor(err error) *apperrors.PipelineFailure {
	switch {
	case errors.Is(err, apperrors.ErrQuestionRejected):
		return apperrors.NewFailure(apperrors.FailureBadQuestion, err.Error(), err)
	case errors.Is(err, apperrors.ErrUnsafeQuery):
		return apperrors.NewFailure(apperrors.FailureUnsafe, err.Error(), err)
	case errors.Is(err, apperrors.ErrAttemptsExhausted):
		return apperrors.NewFailure(apperrors.FailureSyntaxExhausted,
			fmt.Sprintf("could not produce valid SQL in %d attempts", p.cfg.MaxAttempts), err)
	case errors.Is(err, apperrors.ErrGeneratorUnavailable):
		return apperrors.NewFailure(apperrors.FailureGenerator, "the SQL generator is unavailable", err)
	case errors.Is(err, apperrors.ErrCatalogUnavailable):
		return apperrors.NewFailure(apperrors.FailureCatalog, "the schema catalog is unavailable", err)
	case errors.Is(err, apperrors.ErrExecutionTimeout):
		return apperrors.NewFailure(apperrors.FailureTimeout, "the query exceeded its time budget", err)
	default:
		return apperrors.NewFailure(apperrors.FailureExecution, "the database request failed", err)
	}
}

var _ Pipeline = (*pipeline)(nil)
