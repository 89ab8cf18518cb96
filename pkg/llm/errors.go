package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType classifies a provider failure for retry and reporting decisions.
type ErrorType string

const (
	// ErrorTypeNone means no error occurred.
	ErrorTypeNone ErrorType = ""
	// ErrorTypeEndpoint covers unreachable, misconfigured, or failing endpoints.
	ErrorTypeEndpoint ErrorType = "endpoint"
	// ErrorTypeAuth covers rejected or missing credentials.
	ErrorTypeAuth ErrorType = "auth"
	// ErrorTypeModel covers unknown or unavailable model identifiers.
	ErrorTypeModel ErrorType = "model"
	// ErrorTypeUnknown covers everything else.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Error is a structured provider error with classification.
type Error struct {
	Type       ErrorType
	Message    string
	Retryable  bool
	Cause      error
	StatusCode int    // HTTP status code if one could be extracted
	Model      string // Model name if known
	Endpoint   string // Endpoint URL if known
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := []string{string(e.Type)}

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("HTTP %d", e.StatusCode))
	}
	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}

	parts = append(parts, e.Message)

	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", strings.Join(parts, " "), e.Cause)
	}
	return strings.Join(parts, " ")
}

// Unwrap returns the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// IsRetryable implements the retry package's RetryableError interface,
// letting retry check retryability without importing this package.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// NewError creates a structured provider error.
func NewError(errType ErrorType, message string, retryable bool, cause error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Retryable: retryable,
		Cause:     cause,
	}
}

// NewErrorWithContext creates a structured provider error carrying the model,
// endpoint, and status code it was observed with.
func NewErrorWithContext(errType ErrorType, message string, retryable bool, cause error, model, endpoint string, statusCode int) *Error {
	return &Error{
		Type:       errType,
		Message:    message,
		Retryable:  retryable,
		Cause:      cause,
		Model:      model,
		Endpoint:   endpoint,
		StatusCode: statusCode,
	}
}

// ClassifyError categorizes an arbitrary provider error into a structured
// Error. Already-structured errors pass through unchanged.
func ClassifyError(err error) *Error {
	if err == nil {
		return nil
	}

	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr
	}

	errStr := err.Error()
	lower := strings.ToLower(errStr)
	status := statusCodeIn(errStr)

	classified := func(errType ErrorType, message string, retryable bool) *Error {
		e := NewError(errType, message, retryable, err)
		e.StatusCode = status
		return e
	}

	// Order matters: "model x not found" must classify as a model error
	// before the generic 404 branch claims it.
	switch {
	case strings.Contains(errStr, "401"),
		strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "invalid api key"):
		return classified(ErrorTypeAuth, "authentication failed", false)

	case strings.Contains(lower, "model") &&
		(strings.Contains(lower, "not found") || strings.Contains(lower, "does not exist")):
		return classified(ErrorTypeModel, "model not found", false)

	case strings.Contains(errStr, "404"):
		return classified(ErrorTypeEndpoint, "endpoint not found", false)

	case strings.Contains(lower, "connection refused"),
		strings.Contains(lower, "no such host"):
		return classified(ErrorTypeEndpoint, "connection failed", true)

	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "deadline exceeded"),
		strings.Contains(lower, "context canceled"):
		return classified(ErrorTypeEndpoint, "request timeout", true)

	case strings.Contains(errStr, "429"),
		strings.Contains(lower, "rate limit"):
		return classified(ErrorTypeUnknown, "rate limited", true)

	case strings.Contains(errStr, "500"),
		strings.Contains(errStr, "502"),
		strings.Contains(errStr, "503"),
		strings.Contains(errStr, "504"):
		return classified(ErrorTypeEndpoint, "server error", true)

	default:
		return classified(ErrorTypeUnknown, "llm error", false)
	}
}

// statusCodeIn extracts the first recognizable HTTP status code from an
// error string, or 0.
func statusCodeIn(errStr string) int {
	for _, code := range []int{400, 401, 403, 404, 429, 500, 502, 503, 504} {
		if strings.Contains(errStr, fmt.Sprintf("%d", code)) {
			return code
		}
	}
	return 0
}

// IsRetryable reports whether err is a retryable provider error.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// GetErrorType extracts the ErrorType from an error.
func GetErrorType(err error) ErrorType {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Type
	}
	return ErrorTypeUnknown
}
