// Package sql implements the static read-only gate applied to generated
// queries before anything touches the database. Checks are deterministic,
// perform no I/O, and operate on normalized text so comment tricks and
// literal contents cannot change the outcome.
package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/askdb-ai/askdb-engine/pkg/models"
)

// modifyingCTEPattern matches a CTE body that opens with a data-modifying
// statement, e.g. WITH t AS (DELETE FROM orders RETURNING *) SELECT ...
var modifyingCTEPattern = regexp.MustCompile(`(?i)\bAS\s*\(\s*(INSERT|UPDATE|DELETE|MERGE)\b`)

// selectIntoPattern catches SELECT ... INTO, which creates a table.
var selectIntoPattern = regexp.MustCompile(`(?i)\bINTO\b`)

// lockingClausePattern catches FOR UPDATE / FOR SHARE row locks, which a
// read-only transaction refuses anyway; rejecting them here saves the trip.
var lockingClausePattern = regexp.MustCompile(`(?i)\bFOR\s+(UPDATE|NO\s+KEY\s+UPDATE|SHARE|KEY\s+SHARE)\b`)

// statementKeywords are the tokens that can open a statement after a WITH
// clause list. Anything other than SELECT means the CTE feeds a write.
var statementKeywords = map[string]bool{
	"SELECT": true,
	"INSERT": true,
	"UPDATE": true,
	"DELETE": true,
	"MERGE":  true,
	"TABLE":  true,
	"VALUES": true,
}

// Validate applies the read-only gate to a generated candidate and returns
// the verdict. Accepted means provisionally safe: the candidate is a single
// SELECT (optionally WITH ... SELECT) with no write or locking constructs.
// Table names that do not appear in the snapshot are reported in
// UnknownTables but never cause rejection; the syntax check and the repair
// prompt deal with those.
//
// An unsafe verdict is terminal. Callers must not send the candidate back
// for repair.
func Validate(candidate string, snapshot *models.SchemaSnapshot) models.Verdict {
	result := ValidateAndNormalize(candidate)
	if result.Error != nil {
		return rejectUnsafe(result.Error.Error())
	}

	normalized := result.NormalizedSQL
	if normalized == "" {
		return rejectUnsafe("empty statement")
	}

	scannable := blankQuotedRegions(normalized)

	keyword := leadingKeyword(scannable)
	switch keyword {
	case "SELECT":
		// Plain read query, checked below.
	case "WITH":
		if m := modifyingCTEPattern.FindStringSubmatch(scannable); m != nil {
			return rejectUnsafe(fmt.Sprintf("WITH clause contains a data-modifying %s", strings.ToUpper(m[1])))
		}
		top, ok := topLevelStatementKeyword(scannable)
		if !ok {
			return rejectUnsafe("WITH clause must be followed by a top-level SELECT")
		}
		if top != "SELECT" {
			return rejectUnsafe(fmt.Sprintf("%s is not a read query; only SELECT statements are allowed", top))
		}
	case "":
		return rejectUnsafe("statement does not begin with a SQL keyword")
	default:
		return rejectUnsafe(fmt.Sprintf("%s is not a read query; only SELECT statements are allowed", keyword))
	}

	if selectIntoPattern.MatchString(scannable) {
		return rejectUnsafe("SELECT INTO creates a table; only read queries are allowed")
	}
	if m := lockingClausePattern.FindString(scannable); m != "" {
		return rejectUnsafe(fmt.Sprintf("locking clause %s is not allowed in a read query", strings.ToUpper(m)))
	}

	return models.Verdict{
		State:         models.VerdictAccepted,
		UnknownTables: unknownTables(BlankStringLiterals(normalized), snapshot),
	}
}

func rejectUnsafe(reason string) models.Verdict {
	return models.Verdict{
		State:  models.VerdictRejectedUnsafe,
		Reason: reason,
	}
}

// leadingKeyword returns the first word token of the statement, uppercased.
// Leading parentheses are skipped so a candidate like (SELECT 1) UNION
// (SELECT 2) is classified by the keyword inside the group.
func leadingKeyword(sqlQuery string) string {
	i := 0
	for i < len(sqlQuery) && (sqlQuery[i] == '(' || sqlQuery[i] == ' ') {
		i++
	}
	start := i
	for i < len(sqlQuery) && isWordChar(sqlQuery[i]) {
		i++
	}
	return strings.ToUpper(sqlQuery[start:i])
}

// topLevelStatementKeyword scans for the first statement keyword outside any
// parentheses. For WITH queries this is the statement the CTE list feeds:
// WITH x AS (...) SELECT ... returns SELECT, WITH x AS (...) DELETE ...
// returns DELETE. CTE names, RECURSIVE, AS, and column alias lists are
// skipped because they either are not statement keywords or sit inside
// parentheses.
func topLevelStatementKeyword(sqlQuery string) (string, bool) {
	depth := 0

	for i := 0; i < len(sqlQuery); i++ {
		c := sqlQuery[i]
		switch {
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0 && isWordStart(c):
			j := i
			for j < len(sqlQuery) && isWordChar(sqlQuery[j]) {
				j++
			}
			word := strings.ToUpper(sqlQuery[i:j])
			if statementKeywords[word] {
				return word, true
			}
			i = j - 1
		}
	}

	return "", false
}

// ctePattern captures the name a WITH clause binds, e.g. recent in
// WITH recent AS (SELECT ...). Bound names are not schema tables and are
// excluded from unknown-table reporting.
var ctePattern = regexp.MustCompile(`(?i)\b([A-Za-z_][A-Za-z0-9_$]*)\s*(?:\([^()]*\))?\s*AS\s*\(`)

// exprFromFuncs are functions whose argument list contains an expression
// FROM, e.g. EXTRACT(YEAR FROM order_date). The word after such a FROM is
// not a table reference.
var exprFromFuncs = map[string]bool{
	"EXTRACT":   true,
	"SUBSTRING": true,
	"TRIM":      true,
	"OVERLAY":   true,
	"POSITION":  true,
}

// unknownTables collects identifiers following FROM or JOIN and returns the
// ones missing from the snapshot, preserving the order and spelling the
// query used. Derived tables, function calls, and CTE-bound names are
// skipped. Returns nil when no snapshot is available to resolve against.
func unknownTables(sqlQuery string, snapshot *models.SchemaSnapshot) []string {
	if snapshot == nil || len(snapshot.Tables) == 0 {
		return nil
	}

	bound := make(map[string]bool)
	for _, m := range ctePattern.FindAllStringSubmatch(sqlQuery, -1) {
		bound[strings.ToLower(m[1])] = true
	}

	var unknown []string
	seen := make(map[string]bool)

	for _, name := range tableIdentifiers(sqlQuery) {
		key := strings.ToLower(name)
		if seen[key] || bound[key] {
			continue
		}
		seen[key] = true
		if !snapshot.HasTable(name) {
			unknown = append(unknown, name)
		}
	}

	return unknown
}

// tableIdentifiers extracts the identifier that follows each FROM or JOIN
// token. Schema qualification is dropped (orders and public.orders resolve
// to the same table). Subqueries and function calls yield no identifier,
// and a FROM inside EXTRACT-style argument lists is ignored.
func tableIdentifiers(sqlQuery string) []string {
	var tables []string
	var callStack []string
	lastWord := ""

	i := 0
	for i < len(sqlQuery) {
		c := sqlQuery[i]
		switch {
		case c == '(':
			callStack = append(callStack, strings.ToUpper(lastWord))
			lastWord = ""
			i++
		case c == ')':
			if len(callStack) > 0 {
				callStack = callStack[:len(callStack)-1]
			}
			i++
		case isWordStart(c):
			j := i
			for j < len(sqlQuery) && isWordChar(sqlQuery[j]) {
				j++
			}
			word := sqlQuery[i:j]
			upper := strings.ToUpper(word)
			i = j

			if upper != "FROM" && upper != "JOIN" {
				lastWord = word
				continue
			}
			if upper == "FROM" && len(callStack) > 0 && exprFromFuncs[callStack[len(callStack)-1]] {
				lastWord = word
				continue
			}

			name, next := tableNameAt(sqlQuery, i)
			if name != "" {
				tables = append(tables, name)
			}
			i = next
			lastWord = ""
		default:
			if c != ' ' {
				lastWord = ""
			}
			i++
		}
	}

	return tables
}

// tableNameAt reads a table reference starting at pos, skipping leading
// whitespace and the ONLY and LATERAL keywords. Returns the bare table name
// (last segment of a dotted path, unquoted) and the position to resume
// scanning from. An empty name means the reference is a subquery or a
// function call.
func tableNameAt(sqlQuery string, pos int) (string, int) {
	i := skipSpaces(sqlQuery, pos)

	// ONLY and LATERAL prefix the actual reference.
	for {
		j := i
		for j < len(sqlQuery) && isWordChar(sqlQuery[j]) {
			j++
		}
		word := strings.ToUpper(sqlQuery[i:j])
		if word == "ONLY" || word == "LATERAL" {
			i = skipSpaces(sqlQuery, j)
			continue
		}
		break
	}

	if i >= len(sqlQuery) {
		return "", i
	}

	// A parenthesis here means a derived table, not a name.
	if sqlQuery[i] == '(' {
		return "", i
	}

	var segment string
	if sqlQuery[i] == '"' {
		end := strings.IndexByte(sqlQuery[i+1:], '"')
		if end < 0 {
			return "", len(sqlQuery)
		}
		segment = sqlQuery[i+1 : i+1+end]
		i = i + 1 + end + 1
	} else if isWordStart(sqlQuery[i]) {
		j := i
		for j < len(sqlQuery) && isWordChar(sqlQuery[j]) {
			j++
		}
		segment = sqlQuery[i:j]
		i = j
	} else {
		return "", i
	}

	// Dotted path: keep consuming, the final segment is the table.
	for i < len(sqlQuery) && sqlQuery[i] == '.' {
		i++
		if i < len(sqlQuery) && sqlQuery[i] == '"' {
			end := strings.IndexByte(sqlQuery[i+1:], '"')
			if end < 0 {
				return "", len(sqlQuery)
			}
			segment = sqlQuery[i+1 : i+1+end]
			i = i + 1 + end + 1
			continue
		}
		j := i
		for j < len(sqlQuery) && isWordChar(sqlQuery[j]) {
			j++
		}
		segment = sqlQuery[i:j]
		i = j
	}

	// A name immediately followed by ( is a function call.
	if i < len(sqlQuery) && sqlQuery[i] == '(' {
		return "", i
	}

	return segment, i
}

func skipSpaces(sqlQuery string, pos int) int {
	for pos < len(sqlQuery) && sqlQuery[pos] == ' ' {
		pos++
	}
	return pos
}

func isWordStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isWordChar(c byte) bool {
	return isWordStart(c) || c == '$' || (c >= '0' && c <= '9')
}
