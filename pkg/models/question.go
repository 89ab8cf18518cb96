package models

import (
	"time"

	"github.com/google/uuid"
)

// Question is a single natural-language request against the connected schema.
// It is immutable once created; repair attempts reuse the same Question.
type Question struct {
	ID      uuid.UUID `json:"id"`
	Text    string    `json:"text"`
	AskedAt time.Time `json:"asked_at"`
}

// NewQuestion builds a Question with a fresh request identifier.
func NewQuestion(text string) Question {
	return Question{
		ID:      uuid.New(),
		Text:    text,
		AskedAt: time.Now().UTC(),
	}
}

// Answer is the final payload for one successful request: the accepted SQL,
// its execution result, an optional narrative explanation, and run metrics.
// An Answer is only ever assembled from a candidate that passed both the
// safety and syntax checks.
type Answer struct {
	RequestID   uuid.UUID        `json:"request_id"`
	Question    string           `json:"question"`
	SQL         string           `json:"sql"`
	Explanation string           `json:"explanation,omitempty"`
	Result      *ExecutionResult `json:"result"`
	Metrics     Metrics          `json:"metrics"`
}
