// Package prompts builds the prompt text for SQL generation, repair, and
// result explanation. Builders are pure string assembly; the schema context
// they embed comes from the catalog's current snapshot.
package prompts

import (
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// RenderSchemaContext renders a snapshot as markdown for prompt embedding:
// one section per table with a singular entity label, columns with types and
// nullability, and key annotations.
func RenderSchemaContext(snapshot *models.SchemaSnapshot) string {
	var b strings.Builder

	b.WriteString("## Database Schema\n\n")

	for _, table := range snapshot.Tables {
		b.WriteString(fmt.Sprintf("### %s\n", table.Name))
		b.WriteString(fmt.Sprintf("One row per %s.\n", entityLabel(table.Name)))

		pkColumns := make(map[string]bool, len(table.PrimaryKey))
		for _, col := range table.PrimaryKey {
			pkColumns[col] = true
		}
		fkTargets := make(map[string]string, len(table.ForeignKeys))
		for _, fk := range table.ForeignKeys {
			fkTargets[fk.Column] = fmt.Sprintf("%s.%s", fk.RefTable, fk.RefColumn)
		}

		b.WriteString("Columns:\n")
		for _, col := range table.Columns {
			flags := ""
			if pkColumns[col.Name] {
				flags += " [PK]"
			}
			if target, ok := fkTargets[col.Name]; ok {
				flags += fmt.Sprintf(" [FK→%s]", target)
			}
			nullInfo := ""
			if col.Nullable {
				nullInfo = ", nullable"
			}
			b.WriteString(fmt.Sprintf("- %s (%s%s)%s\n", col.Name, col.DataType, nullInfo, flags))
		}

		if len(table.PrimaryKey) > 1 {
			b.WriteString(fmt.Sprintf("Primary key: (%s)\n", strings.Join(table.PrimaryKey, ", ")))
		}

		b.WriteString("\n")
	}

	return b.String()
}

// entityLabel turns a table name into a readable singular label,
// e.g. "order_items" becomes "order item".
func entityLabel(tableName string) string {
	return strings.ReplaceAll(inflection.Singular(tableName), "_", " ")
}
