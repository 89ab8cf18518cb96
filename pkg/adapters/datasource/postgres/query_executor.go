package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/apperrors"
	"github.com/askdb-ai/askdb-engine/pkg/logging"
	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// Execute runs an accepted read query inside a read-only transaction.
//
// The statement is wrapped as SELECT * FROM (...) AS _limited with a LIMIT
// of rowLimit+1 so truncation is detected without a second round trip; the
// spare row is dropped before the result is returned. When timeBudget is
// positive the query runs under a deadline, and a blown budget cancels the
// statement server-side and surfaces as ErrExecutionTimeout.
func (a *Adapter) Execute(ctx context.Context, sqlQuery string, rowLimit int, timeBudget time.Duration) (*models.ExecutionResult, error) {
	queryToRun := sqlQuery
	if rowLimit > 0 {
		queryToRun = fmt.Sprintf("SELECT * FROM (%s) AS _limited LIMIT %d", sqlQuery, rowLimit+1)
	}

	execCtx := ctx
	if timeBudget > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, timeBudget)
		defer cancel()
	}

	tx, err := a.pool.BeginTx(execCtx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, wrapExecError(err)
	}
	defer func() { _ = tx.Rollback(execCtx) }()

	rows, err := tx.Query(execCtx, queryToRun)
	if err != nil {
		return nil, wrapExecError(err)
	}
	defer rows.Close()

	columns := columnInfo(rows.FieldDescriptions())

	resultRows := make([]map[string]any, 0)
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, wrapExecError(err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col.Name] = normalizeValue(values[i])
		}
		resultRows = append(resultRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapExecError(err)
	}

	truncated := false
	if rowLimit > 0 && len(resultRows) > rowLimit {
		resultRows = resultRows[:rowLimit]
		truncated = true
		a.logger.Debug("Query result truncated", zap.Int("row_limit", rowLimit))
	}

	return &models.ExecutionResult{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
	}, nil
}

// wrapExecError maps driver failures onto the pipeline's terminal errors.
// Deadline expiry means the time budget was blown. Cancellation means the
// caller abandoned the request and passes through untouched. Everything
// else is an execution failure with a sanitized message.
func wrapExecError(err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: query exceeded its time budget", apperrors.ErrExecutionTimeout)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%w: %s", apperrors.ErrExecutionFailed, logging.SanitizeError(err))
	}
}
