// Package datasource defines the narrow contracts the pipeline uses to talk
// to the connected database. The postgres subpackage holds the only real
// implementation; the pipeline and catalog depend on these interfaces so
// tests can stand in lightweight fakes.
package datasource

import (
	"context"
	"time"

	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// SyntaxChecker submits a candidate query to the database's own parser and
// analyzer without executing it.
type SyntaxChecker interface {
	// CheckSyntax returns a verdict for sqlQuery. Parse and analysis
	// failures are reported as a rejected verdict carrying the server's
	// diagnostic; infrastructure failures (connection loss, cancellation)
	// come back as an error with no verdict.
	CheckSyntax(ctx context.Context, sqlQuery string) (models.Verdict, error)
}

// Executor runs an accepted read query under a row cap and a time budget.
type Executor interface {
	// Execute runs sqlQuery and returns at most rowLimit rows, with
	// Truncated set when the query produced more. A rowLimit of zero or
	// less disables the cap. When timeBudget is positive the statement is
	// cancelled server-side once it elapses and the call fails with
	// ErrExecutionTimeout.
	Execute(ctx context.Context, sqlQuery string, rowLimit int, timeBudget time.Duration) (*models.ExecutionResult, error)
}

// SchemaReader introspects the connected database for the schema catalog.
type SchemaReader interface {
	// ReadSchema builds a fresh snapshot of the configured schema: every
	// base table with its columns, primary key, and foreign keys.
	ReadSchema(ctx context.Context) (*models.SchemaSnapshot, error)
}
