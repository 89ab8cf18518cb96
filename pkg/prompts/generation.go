package prompts

import (
	"fmt"
	"strings"

	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// BuildGenerationSystemMessage returns the system message for first-attempt
// SQL generation.
func BuildGenerationSystemMessage() string {
	return `You are a proficient SQL generation assistant for PostgreSQL. You are given a database schema and a user question; you produce the single SELECT statement that answers the question.`
}

// BuildGenerationPrompt creates the prompt for the first generation attempt.
func BuildGenerationPrompt(question string, schemaContext string) string {
	var prompt strings.Builder

	prompt.WriteString(schemaContext)

	prompt.WriteString("## Task\n\n")
	prompt.WriteString("Study the schema above and the relationships between tables, then write one PostgreSQL SELECT statement that answers the user question.\n\n")

	prompt.WriteString("Notes:\n")
	prompt.WriteString("- Multiple rows can share the same foreign key (one order can have several items and shipments).\n")
	prompt.WriteString("- Use DISTINCT when listing entities through a join to avoid duplicates, unless detailed rows are wanted.\n")
	prompt.WriteString("- Read-only: never write INSERT, UPDATE, DELETE, or any DDL.\n\n")

	prompt.WriteString(fmt.Sprintf("## User Question\n\n%s\n\n", question))

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Return ONLY the SQL query. Do not add any sentences before or after it.\n")

	return prompt.String()
}

// BuildRepairSystemMessage returns the system message for a repair attempt.
func BuildRepairSystemMessage() string {
	return `You are a proficient SQL repair assistant for PostgreSQL. You are given a SELECT statement that the database parser rejected; you fix it so it runs, without changing what it asks for.`
}

// RepairContext carries what the repair prompt needs to know about the
// rejected candidate.
type RepairContext struct {
	Question      string
	SchemaContext string
	PriorSQL      string
	Diagnostic    *models.SyntaxDiagnostic
	UnknownTables []string
}

// BuildRepairPrompt creates the prompt for one repair attempt, surfacing the
// parser diagnostic and any table names that did not resolve against the
// schema.
func BuildRepairPrompt(rc RepairContext) string {
	var prompt strings.Builder

	prompt.WriteString(rc.SchemaContext)

	prompt.WriteString(fmt.Sprintf("## User Question\n\n%s\n\n", rc.Question))

	prompt.WriteString("## Rejected SQL\n\n")
	prompt.WriteString("```sql\n")
	prompt.WriteString(rc.PriorSQL)
	prompt.WriteString("\n```\n\n")

	prompt.WriteString("## Parser Error\n\n")
	if rc.Diagnostic != nil {
		prompt.WriteString(rc.Diagnostic.Message)
		if rc.Diagnostic.Position > 0 {
			prompt.WriteString(fmt.Sprintf(" (at character %d)", rc.Diagnostic.Position))
		}
		if rc.Diagnostic.Code != "" {
			prompt.WriteString(fmt.Sprintf(" [SQLSTATE %s]", rc.Diagnostic.Code))
		}
		prompt.WriteString("\n\n")
	} else {
		prompt.WriteString("The statement was rejected by the parser.\n\n")
	}

	if len(rc.UnknownTables) > 0 {
		prompt.WriteString(fmt.Sprintf("These table names do not exist in the schema: %s. Use only tables listed above.\n\n",
			strings.Join(rc.UnknownTables, ", ")))
	}

	prompt.WriteString("## Task\n\n")
	prompt.WriteString("Fix the SQL so it is a valid PostgreSQL SELECT statement that still answers the user question. Keep the query read-only.\n\n")

	prompt.WriteString("## Output Format\n\n")
	prompt.WriteString("Return ONLY the corrected SQL query. Do not add any sentences before or after it.\n")

	return prompt.String()
}
