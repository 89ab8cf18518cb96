package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/adapters/datasource"
	"github.com/askdb-ai/askdb-engine/pkg/apperrors"
	"github.com/askdb-ai/askdb-engine/pkg/llm"
	"github.com/askdb-ai/askdb-engine/pkg/models"
	"github.com/askdb-ai/askdb-engine/pkg/prompts"
	"github.com/askdb-ai/askdb-engine/pkg/sql"
)

// candidateState tracks where a candidate sits in its validation lifecycle.
type candidateState int

const (
	stateGenerated candidateState = iota
	stateSafetyChecked
	stateSyntaxChecked
	stateAccepted
	stateRepairing
	stateFailed
)

func (s candidateState) String() string {
	switch s {
	case stateGenerated:
		return "generated"
	case stateSafetyChecked:
		return "safety_checked"
	case stateSyntaxChecked:
		return "syntax_checked"
	case stateAccepted:
		return "accepted"
	case stateRepairing:
		return "repairing"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// attemptTrace records how one candidate fared.
type attemptTrace struct {
	Attempt    int
	Provenance string
	SQL        string
	Verdict    models.Verdict
	State      candidateState
}

// loopResult is what a finished repair loop hands to the orchestrator.
// Generation and Validation accumulate across attempts and feed the run's
// metrics.
type loopResult struct {
	SQL        string
	Attempts   int
	Generation time.Duration
	Validation time.Duration
	Trace      []attemptTrace
}

// repairLoop drives candidates through generate, safety check, syntax
// check, and bounded repair. It makes at most maxAttempts generator calls
// per run and never requests a repair after an unsafe verdict.
type repairLoop struct {
	generator   llm.Client
	checker     datasource.SyntaxChecker
	maxAttempts int
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

func (l *repairLoop) run(ctx context.Context, question models.Question, snapshot *models.SchemaSnapshot) (*loopResult, error) {
	schemaContext := prompts.RenderSchemaContext(snapshot)
	res := &loopResult{}

	var prior models.SQLCandidate
	var lastVerdict models.Verdict

	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		req := l.buildRequest(question.Text, schemaContext, attempt, prior, lastVerdict)

		genStart := time.Now()
		raw, err := l.generator.GenerateResponse(ctx, req)
		res.Generation += time.Since(genStart)
		res.Attempts = attempt

		if err != nil {
			if attempt == 1 {
				return nil, fmt.Errorf("%w: %v", apperrors.ErrGeneratorUnavailable, err)
			}
			return nil, fmt.Errorf("%w: generator failed during repair attempt %d: %v",
				apperrors.ErrAttemptsExhausted, attempt, err)
		}

		candidate := models.SQLCandidate{
			SQL:        llm.ExtractSQL(raw),
			Attempt:    attempt,
			Provenance: provenanceFor(attempt),
		}
		if norm := sql.ValidateAndNormalize(candidate.SQL); norm.Error == nil && norm.NormalizedSQL != "" {
			candidate.SQL = norm.NormalizedSQL
		}
		state := stateGenerated
		l.logger.Debug("Candidate generated",
			zap.Int("attempt", attempt),
			zap.String("provenance", candidate.Provenance),
			zap.Int("sql_len", len(candidate.SQL)))

		valStart := time.Now()
		safety := sql.Validate(candidate.SQL, snapshot)
		state = stateSafetyChecked

		if !safety.Accepted() {
			res.Validation += time.Since(valStart)
			state = stateFailed
			res.Trace = append(res.Trace, attemptTrace{
				Attempt:    attempt,
				Provenance: candidate.Provenance,
				SQL:        candidate.SQL,
				Verdict:    safety,
				State:      state,
			})
			l.logger.Warn("Candidate rejected by read-only gate",
				zap.Int("attempt", attempt),
				zap.String("state", state.String()),
				zap.String("reason", safety.Reason))
			return nil, fmt.Errorf("%w: %s", apperrors.ErrUnsafeQuery, safety.Reason)
		}

		syntax, err := l.checker.CheckSyntax(ctx, candidate.SQL)
		res.Validation += time.Since(valStart)
		if err != nil {
			return nil, err
		}
		state = stateSyntaxChecked

		if syntax.Accepted() {
			state = stateAccepted
			res.Trace = append(res.Trace, attemptTrace{
				Attempt:    attempt,
				Provenance: candidate.Provenance,
				SQL:        candidate.SQL,
				Verdict:    syntax,
				State:      state,
			})
			res.SQL = candidate.SQL
			l.logger.Info("Candidate accepted",
				zap.Int("attempt", attempt),
				zap.String("state", state.String()),
				zap.Int("unknown_tables", len(safety.UnknownTables)))
			return res, nil
		}

		diagnostic := "parser rejected the statement"
		if syntax.Diagnostic != nil {
			diagnostic = syntax.Diagnostic.Message
		}

		if attempt == l.maxAttempts {
			state = stateFailed
			res.Trace = append(res.Trace, attemptTrace{
				Attempt:    attempt,
				Provenance: candidate.Provenance,
				SQL:        candidate.SQL,
				Verdict:    syntax,
				State:      state,
			})
			l.logger.Warn("Repair budget exhausted",
				zap.Int("attempts", attempt),
				zap.String("state", state.String()),
				zap.String("diagnostic", diagnostic))
			return nil, fmt.Errorf("%w after %d attempts: %w",
				apperrors.ErrAttemptsExhausted, attempt,
				fmt.Errorf("%w: %s", apperrors.ErrSyntaxRejected, diagnostic))
		}

		state = stateRepairing
		res.Trace = append(res.Trace, attemptTrace{
			Attempt:    attempt,
			Provenance: candidate.Provenance,
			SQL:        candidate.SQL,
			Verdict:    syntax,
			State:      state,
		})
		l.logger.Info("Candidate rejected by parser, repairing",
			zap.Int("attempt", attempt),
			zap.String("state", state.String()),
			zap.String("diagnostic", diagnostic))

		prior = candidate
		lastVerdict = syntax
		// The safety pass resolves table names; carry them into the repair
		// prompt alongside the parser diagnostic.
		lastVerdict.UnknownTables = safety.UnknownTables
	}

	// Unreachable: every iteration returns or continues, and the final
	// iteration always returns.
	return nil, fmt.Errorf("%w after %d attempts", apperrors.ErrAttemptsExhausted, l.maxAttempts)
}

func (l *repairLoop) buildRequest(question, schemaContext string, attempt int, prior models.SQLCandidate, lastVerdict models.Verdict) llm.GenerateRequest {
	if attempt == 1 {
		return llm.GenerateRequest{
			System:      prompts.BuildGenerationSystemMessage(),
			Prompt:      prompts.BuildGenerationPrompt(question, schemaContext),
			MaxTokens:   l.maxTokens,
			Temperature: l.temperature,
		}
	}
	return llm.GenerateRequest{
		System: prompts.BuildRepairSystemMessage(),
		Prompt: prompts.BuildRepairPrompt(prompts.RepairContext{
			Question:      question,
			SchemaContext: schemaContext,
			PriorSQL:      prior.SQL,
			Diagnostic:    lastVerdict.Diagnostic,
			UnknownTables: lastVerdict.UnknownTables,
		}),
		MaxTokens:   l.maxTokens,
		Temperature: l.temperature,
	}
}

func provenanceFor(attempt int) string {
	if attempt == 1 {
		return models.ProvenanceInitial
	}
	return models.ProvenanceRepair
}
