package apperrors

import "errors"

var (
	ErrQuestionRejected       = errors.New("question rejected")
	ErrUnsafeQuery            = errors.New("unsafe query")
	ErrSyntaxRejected         = errors.New("syntax rejected")
	ErrAttemptsExhausted      = errors.New("repair attempts exhausted")
	ErrGeneratorUnavailable   = errors.New("generator unavailable")
	ErrCatalogUnavailable     = errors.New("catalog unavailable")
	ErrExecutionFailed        = errors.New("execution failed")
	ErrExecutionTimeout       = errors.New("execution timed out")
	ErrExplanationUnavailable = errors.New("explanation unavailable")
)

// FailureKind classifies a terminal pipeline failure for the caller.
type FailureKind string

const (
	FailureBadQuestion     FailureKind = "bad_question"
	FailureUnsafe          FailureKind = "unsafe_query"
	FailureSyntaxExhausted FailureKind = "syntax_exhausted"
	FailureGenerator       FailureKind = "generator_unavailable"
	FailureCatalog         FailureKind = "catalog_unavailable"
	FailureExecution       FailureKind = "execution_failed"
	FailureTimeout         FailureKind = "execution_timeout"
)

// PipelineFailure is the single terminal failure a request can end with.
// Reason is safe to show to the caller; the wrapped error keeps the full
// internal detail for logs. One request yields exactly one PipelineFailure
// or exactly one Answer, never both.
type PipelineFailure struct {
	Kind   FailureKind
	Reason string
	Err    error
}

func (f *PipelineFailure) Error() string {
	if f.Reason != "" {
		return string(f.Kind) + ": " + f.Reason
	}
	return string(f.Kind)
}

func (f *PipelineFailure) Unwrap() error {
	return f.Err
}

// NewFailure builds a PipelineFailure wrapping cause.
func NewFailure(kind FailureKind, reason string, cause error) *PipelineFailure {
	return &PipelineFailure{Kind: kind, Reason: reason, Err: cause}
}

// AsFailure unwraps err to a PipelineFailure when one is present.
func AsFailure(err error) (*PipelineFailure, bool) {
	var f *PipelineFailure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
