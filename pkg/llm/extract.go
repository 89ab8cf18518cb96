package llm

import (
	"regexp"
	"strings"
)

// thinkTagPattern matches a <think>...</think> block at the start of a
// response, as emitted by reasoning models.
var thinkTagPattern = regexp.MustCompile(`(?s)^\s*<think>.*?</think>\s*`)

// sqlFencePattern matches a ```sql fenced block anywhere in a response.
var sqlFencePattern = regexp.MustCompile("(?is)```sql\\s*(.*?)```")

// fencePattern matches a generic ``` fenced block.
var fencePattern = regexp.MustCompile("(?s)```\\s*(.*?)```")

// StripThinking removes a leading <think>...</think> block and trims the
// remainder. Responses without thinking tags pass through trimmed.
func StripThinking(response string) string {
	return strings.TrimSpace(thinkTagPattern.ReplaceAllString(response, ""))
}

// ExtractSQL pulls the SQL statement out of a generation response. Models
// wrap SQL in markdown fences, preface it with prose, or emit it bare;
// all three shapes are handled. The trailing semicolon is dropped so the
// statement can be embedded in a subquery.
func ExtractSQL(response string) string {
	cleaned := StripThinking(response)

	if m := sqlFencePattern.FindStringSubmatch(cleaned); len(m) >= 2 {
		return trimStatement(m[1])
	}
	if m := fencePattern.FindStringSubmatch(cleaned); len(m) >= 2 {
		return trimStatement(m[1])
	}
	return trimStatement(cleaned)
}

func trimStatement(sql string) string {
	sql = strings.TrimSpace(sql)
	return strings.TrimSpace(strings.TrimRight(sql, ";"))
}
