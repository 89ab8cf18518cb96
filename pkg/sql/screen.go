package sql

import (
	"fmt"
	"strings"

	libinjection "github.com/corazawaf/libinjection-go"

	"github.com/askdb-ai/askdb-engine/pkg/apperrors"
)

// ScreenQuestion rejects questions that should never reach the generator:
// empty input, input over maxLen bytes, and text carrying SQL injection
// payloads per libinjection. A maxLen of 0 disables the length bound.
//
// The screen looks at the raw question, not generated SQL. Someone pasting
// "'; DROP TABLE orders--" into the ask box is not asking a question.
func ScreenQuestion(text string, maxLen int) error {
	trimmed := strings.TrimSpace(text)

	if trimmed == "" {
		return fmt.Errorf("%w: question is empty", apperrors.ErrQuestionRejected)
	}
	if maxLen > 0 && len(trimmed) > maxLen {
		return fmt.Errorf("%w: question exceeds %d characters", apperrors.ErrQuestionRejected, maxLen)
	}

	if isSQLi, fingerprint := libinjection.IsSQLi(trimmed); isSQLi {
		return fmt.Errorf("%w: injection pattern detected (fingerprint %s)",
			apperrors.ErrQuestionRejected, string(fingerprint))
	}

	return nil
}
