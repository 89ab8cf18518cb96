//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// ============================================================================
// Syntax Check Tests
// ============================================================================

func TestAdapter_CheckSyntax_Valid(t *testing.T) {
	tc := setupAdapterTest(t)
	ctx := context.Background()

	verdict, err := tc.adapter.CheckSyntax(ctx, "SELECT * FROM products")
	if err != nil {
		t.Fatalf("CheckSyntax failed: %v", err)
	}
	if !verdict.Accepted() {
		t.Errorf("expected accepted verdict, got %s: %s", verdict.State, verdict.Reason)
	}
}

func TestAdapter_CheckSyntax_ValidComplex(t *testing.T) {
	tc := setupAdapterTest(t)
	ctx := context.Background()

	verdict, err := tc.adapter.CheckSyntax(ctx, `
		SELECT c.last_name, COUNT(*) AS order_count
		FROM orders o
		JOIN customers c ON c.customer_id = o.customer_id
		WHERE o.order_date >= '2025-01-01'
		GROUP BY c.last_name
		HAVING COUNT(*) > 1
		ORDER BY order_count DESC
	`)
	if err != nil {
		t.Fatalf("CheckSyntax failed: %v", err)
	}
	if !verdict.Accepted() {
		t.Errorf("expected accepted verdict, got %s: %s", verdict.State, verdict.Reason)
	}
}

func TestAdapter_CheckSyntax_DoesNotExecute(t *testing.T) {
	tc := setupAdapterTest(t)
	ctx := context.Background()

	// Returning at all proves the statement was planned, not run.
	verdict, err := tc.adapter.CheckSyntax(ctx, "SELECT pg_sleep(60)")
	if err != nil {
		t.Fatalf("CheckSyntax failed: %v", err)
	}
	if !verdict.Accepted() {
		t.Errorf("expected accepted verdict, got %s", verdict.State)
	}
}

func TestAdapter_CheckSyntax_SyntaxError(t *testing.T) {
	tc := setupAdapterTest(t)
	ctx := context.Background()

	verdict, err := tc.adapter.CheckSyntax(ctx, "SELEC * FORM products")
	if err != nil {
		t.Fatalf("CheckSyntax failed: %v", err)
	}

	if verdict.State != models.VerdictRejectedSyntax {
		t.Fatalf("expected rejected_syntax verdict, got %s", verdict.State)
	}
	if verdict.Diagnostic == nil {
		t.Fatal("expected a diagnostic on the rejected verdict")
	}
	if verdict.Diagnostic.Message == "" {
		t.Error("expected a non-empty diagnostic message")
	}
	if verdict.Diagnostic.Code != "42601" {
		t.Errorf("expected syntax_error code 42601, got %q", verdict.Diagnostic.Code)
	}
	// The parser flags the first token; the position must point into the
	// candidate, not the EXPLAIN prefix.
	if verdict.Diagnostic.Position != 1 {
		t.Errorf("expected position 1 in the candidate, got %d", verdict.Diagnostic.Position)
	}
}

func TestAdapter_CheckSyntax_DanglingComma(t *testing.T) {
	tc := setupAdapterTest(t)
	ctx := context.Background()

	verdict, err := tc.adapter.CheckSyntax(ctx, "SELECT product_name, FROM products")
	if err != nil {
		t.Fatalf("CheckSyntax failed: %v", err)
	}

	if verdict.State != models.VerdictRejectedSyntax {
		t.Fatalf("expected rejected_syntax verdict, got %s", verdict.State)
	}
	if verdict.Diagnostic.Position <= 1 {
		t.Errorf("expected position past the first token, got %d", verdict.Diagnostic.Position)
	}
}

func TestAdapter_CheckSyntax_UnknownTable(t *testing.T) {
	tc := setupAdapterTest(t)
	ctx := context.Background()

	verdict, err := tc.adapter.CheckSyntax(ctx, "SELECT * FROM warehouse_zones")
	if err != nil {
		t.Fatalf("CheckSyntax failed: %v", err)
	}

	if verdict.State != models.VerdictRejectedSyntax {
		t.Fatalf("expected rejected_syntax verdict, got %s", verdict.State)
	}
	if verdict.Diagnostic.Code != "42P01" {
		t.Errorf("expected undefined_table code 42P01, got %q", verdict.Diagnostic.Code)
	}
}

func TestAdapter_CheckSyntax_UnknownColumn(t *testing.T) {
	tc := setupAdapterTest(t)
	ctx := context.Background()

	verdict, err := tc.adapter.CheckSyntax(ctx, "SELECT price FROM products")
	if err != nil {
		t.Fatalf("CheckSyntax failed: %v", err)
	}

	if verdict.State != models.VerdictRejectedSyntax {
		t.Fatalf("expected rejected_syntax verdict, got %s", verdict.State)
	}
	if verdict.Diagnostic.Code != "42703" {
		t.Errorf("expected undefined_column code 42703, got %q", verdict.Diagnostic.Code)
	}
}

func TestAdapter_CheckSyntax_InfrastructureErrorIsNotAVerdict(t *testing.T) {
	tc := setupAdapterTest(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	_, err := tc.adapter.CheckSyntax(ctx, "SELECT 1")
	if err == nil {
		t.Fatal("expected an error from a cancelled context, not a verdict")
	}
}
