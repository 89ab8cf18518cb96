// Package metrics derives the per-run summary returned with every answer.
// Collection is a pure function over the orchestrator's stopwatch readings
// and the execution result; nothing here talks to the database or the model.
package metrics

import (
	"regexp"
	"time"

	"github.com/askdb-ai/askdb-engine/pkg/models"
	"github.com/askdb-ai/askdb-engine/pkg/sql"
)

// Complexity weights. The score is a coarse shape signal for dashboards and
// the assessment script, not a cost model.
const (
	weightJoin         = 2
	weightNestedSelect = 3
	weightAggregate    = 1
	weightWhere        = 1
	weightBoolean      = 1
)

var (
	joinPattern         = regexp.MustCompile(`(?i)\bJOIN\b`)
	nestedSelectPattern = regexp.MustCompile(`(?i)\(\s*SELECT\b`)
	aggregatePattern    = regexp.MustCompile(`(?i)\b(?:COUNT|SUM|AVG|MIN|MAX)\s*\(`)
	wherePattern        = regexp.MustCompile(`(?i)\bWHERE\b`)
	booleanOpPattern    = regexp.MustCompile(`(?i)\b(?:AND|OR)\b`)
)

// Timings carries the stopwatch readings the orchestrator took during one
// run. Attempts is the number of generator calls the repair loop consumed.
type Timings struct {
	Generation time.Duration
	Validation time.Duration
	Execution  time.Duration
	Attempts   int
}

// Collect derives the metrics for one completed run. Identical inputs always
// produce identical metrics. A nil result leaves the row and column counts
// at zero.
func Collect(timings Timings, result *models.ExecutionResult, sqlQuery string) models.Metrics {
	m := models.Metrics{
		GenerationMS: timings.Generation.Milliseconds(),
		ValidationMS: timings.Validation.Milliseconds(),
		ExecutionMS:  timings.Execution.Milliseconds(),
		Attempts:     timings.Attempts,
		Complexity:   ComplexityScore(sqlQuery),
	}
	if result != nil {
		m.RowCount = result.RowCount
		m.ColumnCount = len(result.Columns)
		m.Truncated = result.Truncated
	}
	return m
}

// ComplexityScore assigns a coarse structural score to a statement: each
// join weighs 2, each subquery 3, each aggregate call and boolean connective
// 1, plus 1 when a WHERE clause is present. Comments and string literals are
// blanked first so quoted data cannot count as structure.
func ComplexityScore(sqlQuery string) int {
	blanked := sql.BlankStringLiterals(sql.StripComments(sqlQuery))

	score := weightJoin * len(joinPattern.FindAllStringIndex(blanked, -1))
	score += weightNestedSelect * len(nestedSelectPattern.FindAllStringIndex(blanked, -1))
	score += weightAggregate * len(aggregatePattern.FindAllStringIndex(blanked, -1))
	if wherePattern.MatchString(blanked) {
		score += weightWhere
	}
	score += weightBoolean * len(booleanOpPattern.FindAllStringIndex(blanked, -1))

	return score
}
