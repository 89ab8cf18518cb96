package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength caps how much of a generated query makes it into a log line.
	MaxQueryLogLength = 200
	// RedactedText replaces any credential-shaped substring.
	RedactedText = "[REDACTED]"
)

var (
	// password=xxx, pwd=xxx, pass=xxx up to the next delimiter
	passwordPattern = regexp.MustCompile(`(?i)(password|pwd|pass)=[^;&\s]+`)

	// Bearer tokens (three base64url segments)
	bearerPattern = regexp.MustCompile(`Bearer\s+[A-Za-z0-9-_]+\.[A-Za-z0-9-_]+\.[A-Za-z0-9-_]*`)

	// api_key=... style values
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|key)=[A-Za-z0-9-_]{20,}`)

	// user:pass@host inside connection URLs
	connStringPattern = regexp.MustCompile(`://[^:]+:[^@]+@[^/\s]+`)
)

// scrub applies every credential pattern to s.
func scrub(s string) string {
	s = passwordPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = bearerPattern.ReplaceAllString(s, "Bearer "+RedactedText)
	s = apiKeyPattern.ReplaceAllString(s, "${1}="+RedactedText)
	s = connStringPattern.ReplaceAllString(s, "://"+RedactedText+"@"+RedactedText)
	return s
}

// SanitizeConnectionString removes credentials from a connection string
// before it is logged.
func SanitizeConnectionString(connStr string) string {
	if connStr == "" {
		return ""
	}
	return scrub(connStr)
}

// SanitizeError strips credential-shaped content from an error message.
// Every database or provider error passes through here before reaching a
// log line or a client-visible failure reason.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return scrub(err.Error())
}

// SanitizeQuery truncates and scrubs a SQL string for logging. Generated
// queries are untrusted input and may embed anything the model produced.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	return scrub(TruncateString(query, MaxQueryLogLength))
}

// TruncateString shortens s to maxLen with an ellipsis marker.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
