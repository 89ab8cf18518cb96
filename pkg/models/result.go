package models

// ColumnInfo describes one column of a query result.
type ColumnInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ExecutionResult is the tabular outcome of a successfully executed query.
// Rows are capped at the configured row limit; Truncated is set when the
// query produced more rows than the cap allowed through.
type ExecutionResult struct {
	Columns   []ColumnInfo     `json:"columns"`
	Rows      []map[string]any `json:"rows"`
	RowCount  int              `json:"row_count"`
	Truncated bool             `json:"truncated"`
}

// Metrics summarizes one completed pipeline run. It is derived once from the
// run's timings and result shape and never mutated afterwards. Attempts is
// the number of generator calls the repair loop consumed, so a first-try
// success records 1.
type Metrics struct {
	GenerationMS int64 `json:"generation_ms"`
	ValidationMS int64 `json:"validation_ms"`
	ExecutionMS  int64 `json:"execution_ms"`
	RowCount     int   `json:"row_count"`
	ColumnCount  int   `json:"column_count"`
	Attempts     int   `json:"attempts"`
	Complexity   int   `json:"complexity"`
	Truncated    bool  `json:"truncated"`
}
