package sql

import (
	"errors"
	"strings"
	"testing"

	"github.com/askdb-ai/askdb-engine/pkg/apperrors"
)

func TestScreenQuestion_AcceptsNormalQuestions(t *testing.T) {
	questions := []string{
		"What products are out of stock?",
		"Which customers placed the most orders last month?",
		"Show me total inventory per warehouse",
		"How many shipments are still in transit?",
		"List suppliers in Germany with more than 10 products",
		"average order value by customer, 2024 only",
	}

	for _, q := range questions {
		t.Run(q, func(t *testing.T) {
			if err := ScreenQuestion(q, 500); err != nil {
				t.Errorf("expected question to pass, got %v", err)
			}
		})
	}
}

func TestScreenQuestion_RejectsEmptyAndOversized(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
	}{
		{
			name:  "empty",
			text:  "",
			limit: 500,
		},
		{
			name:  "whitespace only",
			text:  "   \n\t  ",
			limit: 500,
		},
		{
			name:  "over the length bound",
			text:  strings.Repeat("why ", 200),
			limit: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ScreenQuestion(tt.text, tt.limit)
			if err == nil {
				t.Fatal("expected rejection, got nil")
			}
			if !errors.Is(err, apperrors.ErrQuestionRejected) {
				t.Errorf("expected ErrQuestionRejected, got %v", err)
			}
		})
	}
}

func TestScreenQuestion_ZeroLimitDisablesLengthBound(t *testing.T) {
	long := "list every order with every line item and every shipment " + strings.Repeat("in detail ", 100)
	if err := ScreenQuestion(long, 0); err != nil {
		t.Errorf("expected long question to pass with limit 0, got %v", err)
	}
}

func TestScreenQuestion_RejectsInjectionPayloads(t *testing.T) {
	payloads := []string{
		"' OR '1'='1",
		"'; DROP TABLE orders--",
		"1 UNION SELECT * FROM passwords",
		"admin'--",
		"' OR 1=1--",
		"1' AND SLEEP(5)--",
		"' UNION SELECT NULL, NULL--",
	}

	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			err := ScreenQuestion(p, 500)
			if err == nil {
				t.Fatal("expected injection payload to be rejected")
			}
			if !errors.Is(err, apperrors.ErrQuestionRejected) {
				t.Errorf("expected ErrQuestionRejected, got %v", err)
			}
		})
	}
}

func TestScreenQuestion_ApostropheIsNotInjection(t *testing.T) {
	// A legitimate apostrophe in a name should not trip the screen.
	if err := ScreenQuestion("How many orders did O'Brien place?", 500); err != nil {
		t.Errorf("expected question with apostrophe to pass, got %v", err)
	}
}
