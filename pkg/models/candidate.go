package models

// Candidate provenance values.
const (
	ProvenanceInitial = "initial"
	ProvenanceRepair  = "repair"
)

// SQLCandidate is a generated query that has not yet been proven safe and
// syntactically valid. Attempt is 1-based and increments once per repair
// round; a candidate is owned by exactly one pipeline run and discarded when
// superseded or accepted.
type SQLCandidate struct {
	SQL        string `json:"sql"`
	Attempt    int    `json:"attempt"`
	Provenance string `json:"provenance"`
}

// VerdictState tags the outcome of a validation check.
type VerdictState string

const (
	VerdictAccepted       VerdictState = "accepted"
	VerdictRejectedUnsafe VerdictState = "rejected_unsafe"
	VerdictRejectedSyntax VerdictState = "rejected_syntax"
)

// SyntaxDiagnostic carries parser feedback for a rejected candidate.
// Position is a 1-based byte offset into the submitted SQL, 0 when the
// parser did not report one.
type SyntaxDiagnostic struct {
	Message  string `json:"message"`
	Position int    `json:"position,omitempty"`
	Code     string `json:"code,omitempty"`
}

// Verdict is the immutable outcome of the safety or syntax check for one
// candidate. UnknownTables lists referenced tables that did not resolve
// against the schema snapshot; they are advisory only and never cause a
// rejection on their own.
type Verdict struct {
	State         VerdictState      `json:"state"`
	Reason        string            `json:"reason,omitempty"`
	Diagnostic    *SyntaxDiagnostic `json:"diagnostic,omitempty"`
	UnknownTables []string          `json:"unknown_tables,omitempty"`
}

// Accepted reports whether the verdict allows the candidate to proceed.
func (v Verdict) Accepted() bool {
	return v.State == VerdictAccepted
}
