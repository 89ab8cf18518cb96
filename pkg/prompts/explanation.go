package prompts

import (
	"fmt"
	"strings"

	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// BuildExplanationSystemMessage returns the system message for result
// explanation.
func BuildExplanationSystemMessage() string {
	return `You are a helpful assistant who answers a user's question in plain language using the database result provided to you.`
}

// BuildExplanationPrompt creates the prompt that turns a query result into a
// narrative answer. At most sampleRows rows are shown to the model.
func BuildExplanationPrompt(question string, sqlQuery string, result *models.ExecutionResult, sampleRows int) string {
	var prompt strings.Builder

	prompt.WriteString(fmt.Sprintf("## User Question\n\n%s\n\n", question))

	prompt.WriteString("## SQL Query\n\n")
	prompt.WriteString("```sql\n")
	prompt.WriteString(sqlQuery)
	prompt.WriteString("\n```\n\n")

	prompt.WriteString("## Database Result\n\n")
	prompt.WriteString(renderResultSample(result, sampleRows))
	prompt.WriteString("\n")

	prompt.WriteString("## Task\n\n")
	prompt.WriteString("Answer the user question using only the result above.\n\n")

	prompt.WriteString("Output format:\n")
	prompt.WriteString("- Keep the answer specific to the question, formatted as short prose or bullet points.\n")
	prompt.WriteString("- Do not add information that is not in the result.\n")
	prompt.WriteString("- If the result is empty, say that you do not have enough data to answer. Never invent an answer.\n")

	return prompt.String()
}

// renderResultSample renders a result as a compact text table, capped at
// sampleRows rows.
func renderResultSample(result *models.ExecutionResult, sampleRows int) string {
	if result == nil || len(result.Columns) == 0 {
		return "(no result)\n"
	}

	var b strings.Builder

	names := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		names[i] = col.Name
	}
	b.WriteString(strings.Join(names, " | "))
	b.WriteString("\n")

	shown := len(result.Rows)
	if sampleRows > 0 && shown > sampleRows {
		shown = sampleRows
	}

	if shown == 0 {
		b.WriteString("(0 rows)\n")
		return b.String()
	}

	for _, row := range result.Rows[:shown] {
		values := make([]string, len(names))
		for i, name := range names {
			values[i] = fmt.Sprintf("%v", row[name])
		}
		b.WriteString(strings.Join(values, " | "))
		b.WriteString("\n")
	}

	if shown < result.RowCount || result.Truncated {
		b.WriteString(fmt.Sprintf("(showing %d of %d", shown, result.RowCount))
		if result.Truncated {
			b.WriteString("+")
		}
		b.WriteString(" rows)\n")
	}

	return b.String()
}
