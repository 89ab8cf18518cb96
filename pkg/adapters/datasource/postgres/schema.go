package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// ReadSchema builds a fresh snapshot of the configured schema: every base
// table with its columns in ordinal order, its primary key, and its
// outbound foreign keys. System schemas are never included.
func (a *Adapter) ReadSchema(ctx context.Context) (*models.SchemaSnapshot, error) {
	tables, err := a.readTables(ctx)
	if err != nil {
		return nil, err
	}

	index := make(map[string]*models.Table, len(tables))
	for i := range tables {
		index[tables[i].Name] = &tables[i]
	}

	if err := a.readColumns(ctx, index); err != nil {
		return nil, err
	}
	if err := a.readPrimaryKeys(ctx, index); err != nil {
		return nil, err
	}
	if err := a.readForeignKeys(ctx, index); err != nil {
		return nil, err
	}

	a.logger.Info("Schema introspected",
		zap.String("schema", a.schema),
		zap.Int("tables", len(tables)))

	return &models.SchemaSnapshot{
		Tables:   tables,
		LoadedAt: time.Now().UTC(),
	}, nil
}

func (a *Adapter) readTables(ctx context.Context) ([]models.Table, error) {
	// schema_migrations is migration bookkeeping, not part of the domain.
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = $1
		  AND table_type = 'BASE TABLE'
		  AND table_name <> 'schema_migrations'
		ORDER BY table_name`

	rows, err := a.pool.Query(ctx, query, a.schema)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []models.Table
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, models.Table{Name: name})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tables: %w", err)
	}
	return tables, nil
}

func (a *Adapter) readColumns(ctx context.Context, index map[string]*models.Table) error {
	query := `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = $1
		ORDER BY table_name, ordinal_position`

	rows, err := a.pool.Query(ctx, query, a.schema)
	if err != nil {
		return fmt.Errorf("failed to list columns: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, isNullable string
		var col models.Column
		if err := rows.Scan(&tableName, &col.Name, &col.DataType, &isNullable); err != nil {
			return fmt.Errorf("failed to scan column: %w", err)
		}
		col.Nullable = isNullable == "YES"
		if t, ok := index[tableName]; ok {
			t.Columns = append(t.Columns, col)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read columns: %w", err)
	}
	return nil
}

func (a *Adapter) readPrimaryKeys(ctx context.Context, index map[string]*models.Table) error {
	// Composite keys come back one column per row, in key order.
	query := `
		SELECT c.relname, a.attname
		FROM pg_index i
		JOIN pg_class c ON c.oid = i.indrelid
		JOIN pg_namespace n ON n.oid = c.relnamespace
		JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
		WHERE i.indisprimary
		  AND n.nspname = $1
		ORDER BY c.relname, array_position(i.indkey::int2[], a.attnum)`

	rows, err := a.pool.Query(ctx, query, a.schema)
	if err != nil {
		return fmt.Errorf("failed to list primary keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName, columnName string
		if err := rows.Scan(&tableName, &columnName); err != nil {
			return fmt.Errorf("failed to scan primary key: %w", err)
		}
		if t, ok := index[tableName]; ok {
			t.PrimaryKey = append(t.PrimaryKey, columnName)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read primary keys: %w", err)
	}
	return nil
}

func (a *Adapter) readForeignKeys(ctx context.Context, index map[string]*models.Table) error {
	query := `
		SELECT
			tc.table_name,
			kcu.column_name,
			ccu.table_name AS foreign_table_name,
			ccu.column_name AS foreign_column_name
		FROM information_schema.table_constraints AS tc
		JOIN information_schema.key_column_usage AS kcu
			ON tc.constraint_name = kcu.constraint_name
			AND tc.table_schema = kcu.table_schema
		JOIN information_schema.constraint_column_usage AS ccu
			ON ccu.constraint_name = tc.constraint_name
			AND ccu.table_schema = tc.table_schema
		WHERE tc.constraint_type = 'FOREIGN KEY'
		  AND tc.table_schema = $1
		ORDER BY tc.table_name, kcu.column_name`

	rows, err := a.pool.Query(ctx, query, a.schema)
	if err != nil {
		return fmt.Errorf("failed to list foreign keys: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var tableName string
		var fk models.ForeignKey
		if err := rows.Scan(&tableName, &fk.Column, &fk.RefTable, &fk.RefColumn); err != nil {
			return fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if t, ok := index[tableName]; ok {
			t.ForeignKeys = append(t.ForeignKeys, fk)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read foreign keys: %w", err)
	}
	return nil
}
