//go:build integration

package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-ai/askdb-engine/pkg/testhelpers"
)

// Test_001_SupplyChainSchema verifies migration 001 creates the full schema.
func Test_001_SupplyChainSchema(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	expectedTables := []string{
		"suppliers", "manufacturers", "warehouses", "products",
		"inventory", "customers", "orders", "order_items", "shipments",
	}

	for _, table := range expectedTables {
		var exists bool
		err := testDB.Pool.QueryRow(ctx, `
			SELECT EXISTS (
				SELECT 1 FROM information_schema.tables
				WHERE table_schema = 'public'
				AND table_name = $1
				AND table_type = 'BASE TABLE'
			)
		`, table).Scan(&exists)

		require.NoError(t, err, "Failed to query table information for %s", table)
		assert.True(t, exists, "table %s should exist", table)
	}
}

// Test_001_CompositePrimaryKeys verifies the two link tables keep their
// two-column primary keys.
func Test_001_CompositePrimaryKeys(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	tests := []struct {
		table   string
		columns int
	}{
		{"inventory", 2},
		{"order_items", 2},
	}

	for _, tt := range tests {
		var keyColumns int
		err := testDB.Pool.QueryRow(ctx, `
			SELECT COUNT(*)
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			WHERE tc.constraint_type = 'PRIMARY KEY'
			AND tc.table_schema = 'public'
			AND tc.table_name = $1
		`, tt.table).Scan(&keyColumns)

		require.NoError(t, err, "Failed to query primary key for %s", tt.table)
		assert.Equal(t, tt.columns, keyColumns, "%s should have a %d-column primary key", tt.table, tt.columns)
	}
}

// Test_001_ForeignKeys verifies the referential spine of the schema.
func Test_001_ForeignKeys(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	var fkCount int
	err := testDB.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM information_schema.table_constraints
		WHERE constraint_type = 'FOREIGN KEY'
		AND table_schema = 'public'
	`).Scan(&fkCount)

	require.NoError(t, err, "Failed to count foreign keys")
	// products(2), inventory(2), orders(1), order_items(2), shipments(1)
	assert.Equal(t, 8, fkCount, "expected 8 foreign key constraints")

	// discontinued must be a real boolean so read queries can filter on it
	var dataType string
	err = testDB.Pool.QueryRow(ctx, `
		SELECT data_type
		FROM information_schema.columns
		WHERE table_schema = 'public'
		AND table_name = 'products'
		AND column_name = 'discontinued'
	`).Scan(&dataType)

	require.NoError(t, err, "Failed to query products.discontinued")
	assert.Equal(t, "boolean", dataType)
}
