package sql

import (
	"errors"
	"strings"
)

var (
	// ErrMultipleStatements indicates the query contains multiple SQL statements.
	ErrMultipleStatements = errors.New("multiple SQL statements not allowed; only single statements are permitted")
)

// ValidationResult contains the normalized SQL and any validation errors.
type ValidationResult struct {
	NormalizedSQL string
	Error         error
}

// ValidateAndNormalize rewrites generated SQL into the canonical single-statement
// form the rest of the pipeline operates on.
//
// The normalization order is:
// 1. Strip -- line comments and /* */ block comments (quote-aware, nesting-aware)
// 2. Collapse whitespace runs outside string literals and trim
// 3. Strip one trailing semicolon
// 4. Check for multiple statements (any remaining semicolons outside string literals)
func ValidateAndNormalize(sqlQuery string) ValidationResult {
	normalized := collapseWhitespace(StripComments(sqlQuery))
	if normalized == "" {
		return ValidationResult{NormalizedSQL: ""}
	}

	normalized = stripTrailingSemicolon(normalized)

	if err := detectMultipleStatements(normalized); err != nil {
		return ValidationResult{Error: err}
	}

	return ValidationResult{NormalizedSQL: normalized}
}

// StripComments removes -- line comments and /* */ block comments.
// Block comments nest, matching Postgres lexing rules. Comment markers
// inside string literals or quoted identifiers are left untouched.
// A removed comment is replaced by whitespace so it still separates tokens.
func StripComments(sqlQuery string) string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
		stateLineComment
		stateBlockComment
	)

	var b strings.Builder
	b.Grow(len(sqlQuery))

	state := stateNormal
	depth := 0

	for i := 0; i < len(sqlQuery); i++ {
		c := sqlQuery[i]

		switch state {
		case stateNormal:
			switch {
			case c == '\'':
				state = stateSingleQuote
				b.WriteByte(c)
			case c == '"':
				state = stateDoubleQuote
				b.WriteByte(c)
			case c == '-' && i+1 < len(sqlQuery) && sqlQuery[i+1] == '-':
				state = stateLineComment
				i++
			case c == '/' && i+1 < len(sqlQuery) && sqlQuery[i+1] == '*':
				state = stateBlockComment
				depth = 1
				i++
			default:
				b.WriteByte(c)
			}
		case stateSingleQuote:
			b.WriteByte(c)
			// Handle both backslash escape (\') and SQL standard escape ('')
			// For a doubled quote this exits and immediately re-enters on the
			// next character, which correctly keeps us in the string
			if c == '\'' && sqlQuery[i-1] != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			b.WriteByte(c)
			if c == '"' && sqlQuery[i-1] != '\\' {
				state = stateNormal
			}
		case stateLineComment:
			if c == '\n' {
				b.WriteByte(c)
				state = stateNormal
			}
		case stateBlockComment:
			switch {
			case c == '/' && i+1 < len(sqlQuery) && sqlQuery[i+1] == '*':
				depth++
				i++
			case c == '*' && i+1 < len(sqlQuery) && sqlQuery[i+1] == '/':
				depth--
				i++
				if depth == 0 {
					b.WriteByte(' ')
					state = stateNormal
				}
			}
		}
	}

	return b.String()
}

// collapseWhitespace replaces each run of whitespace outside string literals
// and quoted identifiers with a single space and trims the ends. Whitespace
// inside quotes is data and is copied verbatim.
func collapseWhitespace(sqlQuery string) string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	var b strings.Builder
	b.Grow(len(sqlQuery))

	state := stateNormal
	pendingSpace := false

	for i := 0; i < len(sqlQuery); i++ {
		c := sqlQuery[i]

		switch state {
		case stateNormal:
			if c == ' ' || c == '\t' || c == '\n' || c == '\r' {
				pendingSpace = b.Len() > 0
				continue
			}
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			b.WriteByte(c)
			switch c {
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			b.WriteByte(c)
			if c == '\'' && sqlQuery[i-1] != '\\' {
				state = stateNormal
			}
		case stateDoubleQuote:
			b.WriteByte(c)
			if c == '"' && sqlQuery[i-1] != '\\' {
				state = stateNormal
			}
		}
	}

	return b.String()
}

// BlankStringLiterals empties the contents of single-quoted string literals,
// keeping the quote delimiters. Keyword scans and the complexity score run on
// blanked text so literal data cannot masquerade as SQL.
func BlankStringLiterals(sqlQuery string) string {
	var b strings.Builder
	b.Grow(len(sqlQuery))

	inString := false
	for i := 0; i < len(sqlQuery); i++ {
		c := sqlQuery[i]
		if !inString {
			b.WriteByte(c)
			if c == '\'' {
				inString = true
			}
			continue
		}
		if c == '\'' && sqlQuery[i-1] != '\\' {
			b.WriteByte(c)
			inString = false
		}
	}

	return b.String()
}

// blankQuotedRegions empties both string literals and double-quoted
// identifiers. Used by the keyword scans, which must not be fooled by a
// column quoted as "into" or a literal containing 'for update'.
func blankQuotedRegions(sqlQuery string) string {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	var b strings.Builder
	b.Grow(len(sqlQuery))

	state := stateNormal
	for i := 0; i < len(sqlQuery); i++ {
		c := sqlQuery[i]

		switch state {
		case stateNormal:
			b.WriteByte(c)
			switch c {
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			if c == '\'' && sqlQuery[i-1] != '\\' {
				b.WriteByte(c)
				state = stateNormal
			}
		case stateDoubleQuote:
			if c == '"' && sqlQuery[i-1] != '\\' {
				b.WriteByte(c)
				state = stateNormal
			}
		}
	}

	return b.String()
}

// detectMultipleStatements checks if the SQL contains multiple statements
// by looking for any semicolons outside of string literals.
// Since we've already stripped the trailing semicolon, any remaining semicolon
// indicates multiple statements.
func detectMultipleStatements(sqlQuery string) error {
	if hasSemicolonOutsideStrings(sqlQuery) {
		return ErrMultipleStatements
	}
	return nil
}

// hasSemicolonOutsideStrings returns true if the SQL contains any semicolon
// outside of string literals.
func hasSemicolonOutsideStrings(sqlQuery string) bool {
	const (
		stateNormal = iota
		stateSingleQuote
		stateDoubleQuote
	)

	state := stateNormal
	prevChar := rune(0)

	for _, char := range sqlQuery {
		switch state {
		case stateNormal:
			switch char {
			case ';':
				return true // Found semicolon outside strings
			case '\'':
				state = stateSingleQuote
			case '"':
				state = stateDoubleQuote
			}
		case stateSingleQuote:
			// Exit single quote if we see an unescaped single quote
			// Handle both backslash escape (\') and SQL standard escape ('')
			if char == '\'' && prevChar != '\\' {
				// For SQL standard doubled quote (''), this will exit and immediately
				// re-enter on the next quote, which correctly keeps us in the string
				state = stateNormal
			}
		case stateDoubleQuote:
			// Exit double quote if we see an unescaped double quote
			if char == '"' && prevChar != '\\' {
				state = stateNormal
			}
		}
		prevChar = char
	}

	return false
}

// stripTrailingSemicolon removes a trailing semicolon and any whitespace after it.
func stripTrailingSemicolon(sqlQuery string) string {
	// Trim trailing whitespace first
	sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")

	// Remove trailing semicolon if present
	if strings.HasSuffix(sqlQuery, ";") {
		sqlQuery = strings.TrimSuffix(sqlQuery, ";")
		// Trim any whitespace that was before the semicolon
		sqlQuery = strings.TrimRight(sqlQuery, " \t\n\r")
	}

	return sqlQuery
}
