package models

import "fmt"

// DiagnosticKind classifies a non-fatal problem found while reading a snapshot.
type DiagnosticKind string

const (
	// MalformedRecord: a sentence or line did not match its pattern.
	MalformedRecord DiagnosticKind = "malformed_record"
	// MissingField: a snapshot key was absent.
	MissingField DiagnosticKind = "missing_field"
	// ArithmeticInvalid: a percent change with a zero open.
	ArithmeticInvalid DiagnosticKind = "arithmetic_invalid"
	// DateJoinMismatch: a date present on only one leg of a spread.
	DateJoinMismatch DiagnosticKind = "date_join_mismatch"
)

// Diagnostic is a warning returned next to a (possibly partial) result.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Field   string         `json:"field,omitempty"`
	Input   string         `json:"input,omitempty"`
	Message string         `json:"message"`
}

func (d Diagnostic) String() string {
	if d.Input != "" {
		return fmt.Sprintf("%s [%s] %s: %q", d.Kind, d.Field, d.Message, d.Input)
	}
	return fmt.Sprintf("%s [%s] %s", d.Kind, d.Field, d.Message)
}

// CountByKind tallies diagnostics per kind.
func CountByKind(diags []Diagnostic) map[DiagnosticKind]int {
	out := make(map[DiagnosticKind]int)
	for _, d := range diags {
		out[d.Kind]++
	}
	return out
}
