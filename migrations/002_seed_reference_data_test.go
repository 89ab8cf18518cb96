//go:build integration

package migrations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askdb-ai/askdb-engine/pkg/testhelpers"
)

// Test_002_LegacyWidget verifies the deliberate zero-stock edge case
// survives reseeding: product 5 exists, is discontinued, and has a stock
// record that sums to zero.
func Test_002_LegacyWidget(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	var name string
	var discontinued bool
	err := testDB.Pool.QueryRow(ctx,
		"SELECT product_name, discontinued FROM products WHERE product_id = 5").
		Scan(&name, &discontinued)

	require.NoError(t, err, "Failed to load product 5")
	assert.Equal(t, "Legacy Widget", name)
	assert.True(t, discontinued, "Legacy Widget should be discontinued")

	var records, total int
	err = testDB.Pool.QueryRow(ctx,
		"SELECT COUNT(*), COALESCE(SUM(quantity), 0) FROM inventory WHERE product_id = 5").
		Scan(&records, &total)

	require.NoError(t, err, "Failed to sum Legacy Widget stock")
	assert.Equal(t, 1, records, "Legacy Widget should have exactly one stock record")
	assert.Equal(t, 0, total, "Legacy Widget stock should sum to zero")
}

// Test_002_OrderTotalsReconcile verifies every seeded order total equals the
// sum of its line items, so aggregate queries over the seed are stable.
func Test_002_OrderTotalsReconcile(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	var mismatches int
	err := testDB.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM orders o
		JOIN (
			SELECT order_id, SUM(quantity * unit_price) AS line_total
			FROM order_items
			GROUP BY order_id
		) li ON li.order_id = o.order_id
		WHERE o.total_amount <> li.line_total
	`).Scan(&mismatches)

	require.NoError(t, err, "Failed to reconcile order totals")
	assert.Zero(t, mismatches, "every order total should match its line items")
}

// Test_002_QuotedNameData verifies the seed keeps a customer whose name
// carries an apostrophe, which downstream quoting has to survive.
func Test_002_QuotedNameData(t *testing.T) {
	testDB := testhelpers.GetTestDB(t)
	ctx := context.Background()

	var orderCount int
	err := testDB.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM orders o
		JOIN customers c ON c.customer_id = o.customer_id
		WHERE c.last_name = 'O''Brien'
	`).Scan(&orderCount)

	require.NoError(t, err, "Failed to count O'Brien orders")
	assert.Equal(t, 3, orderCount, "O'Brien should have three seeded orders")
}
