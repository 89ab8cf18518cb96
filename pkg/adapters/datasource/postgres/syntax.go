package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// explainPrefix is prepended to candidates so the server parses and plans
// them without running them. Reported error positions are offsets into the
// prefixed text and are shifted back before they reach the repair loop.
const explainPrefix = "EXPLAIN "

// CheckSyntax submits the candidate to the server's parser and analyzer via
// EXPLAIN. A SQLSTATE class 42 failure (syntax error, unknown relation or
// column, bad grouping) becomes a rejected verdict carrying the server's
// message, position, and code. Any other failure is infrastructure trouble
// and is returned as a plain error so the repair loop does not burn an
// attempt on it.
func (a *Adapter) CheckSyntax(ctx context.Context, sqlQuery string) (models.Verdict, error) {
	_, err := a.pool.Exec(ctx, explainPrefix+sqlQuery)
	if err == nil {
		return models.Verdict{State: models.VerdictAccepted}, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "42") {
		return models.Verdict{
			State:  models.VerdictRejectedSyntax,
			Reason: pgErr.Message,
			Diagnostic: &models.SyntaxDiagnostic{
				Message:  pgErr.Message,
				Position: candidatePosition(int(pgErr.Position)),
				Code:     pgErr.Code,
			},
		}, nil
	}

	return models.Verdict{}, fmt.Errorf("syntax check failed: %w", err)
}

// candidatePosition shifts a server-reported error position past the
// EXPLAIN prefix. Positions inside the prefix itself say nothing about the
// candidate and are dropped.
func candidatePosition(pos int) int {
	if pos > len(explainPrefix) {
		return pos - len(explainPrefix)
	}
	return 0
}
