// Package postgres implements the datasource contracts against PostgreSQL.
// The adapter borrows the application's connection pool; it never opens
// connections of its own and never closes the pool it was handed.
package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/adapters/datasource"
)

// Adapter runs pipeline queries and schema introspection against a single
// PostgreSQL database. It is safe for concurrent use.
type Adapter struct {
	pool   *pgxpool.Pool
	schema string
	logger *zap.Logger
}

// NewAdapter wraps pool. schemaName selects the schema ReadSchema
// introspects; empty selects public.
func NewAdapter(pool *pgxpool.Pool, schemaName string, logger *zap.Logger) *Adapter {
	if schemaName == "" {
		schemaName = "public"
	}
	return &Adapter{
		pool:   pool,
		schema: schemaName,
		logger: logger,
	}
}

// Compile-time interface checks.
var (
	_ datasource.Executor      = (*Adapter)(nil)
	_ datasource.SyntaxChecker = (*Adapter)(nil)
	_ datasource.SchemaReader  = (*Adapter)(nil)
)
