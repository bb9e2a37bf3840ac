package schema

import "fmt"

// Violation codes reported by the graph validator.
const (
	ViolationMissingID   = "missing_id"
	ViolationMalformedID = "malformed_id"
	ViolationDuplicateID = "duplicate_id"
	ViolationInlineCycle = "inline_cycle"
)

// ValidationSeverity indicates whether an issue is an error or warning.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationIssue is a single validation problem with location context.
// Path locates the offending step (e.g. "steps[2].onError"); StepID names it
// when one exists.
type ValidationIssue struct {
	Path     string             `json:"path"`
	Code     string             `json:"code"`
	StepID   string             `json:"step_id,omitempty"`
	Message  string             `json:"message"`
	Severity ValidationSeverity `json:"severity"`
}

// ValidationResult aggregates all issues found while validating a definition.
type ValidationResult struct {
	Errors   []ValidationIssue `json:"errors,omitempty"`
	Warnings []ValidationIssue `json:"warnings,omitempty"`
}

// Valid returns true if there are no errors (warnings are acceptable).
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// AddError appends an error-severity issue.
func (r *ValidationResult) AddError(path, code, stepID, message string) {
	r.Errors = append(r.Errors, ValidationIssue{
		Path: path, Code: code, StepID: stepID, Message: message, Severity: SeverityError,
	})
}

// AddWarning appends a warning-severity issue.
func (r *ValidationResult) AddWarning(path, code, stepID, message string) {
	r.Warnings = append(r.Warnings, ValidationIssue{
		Path: path, Code: code, StepID: stepID, Message: message, Severity: SeverityWarning,
	})
}

// Merge combines another ValidationResult into this one.
func (r *ValidationResult) Merge(other *ValidationResult) {
	if other == nil {
		return
	}
	r.Errors = append(r.Errors, other.Errors...)
	r.Warnings = append(r.Warnings, other.Warnings...)
}

// ToError converts the result to a LoomError if invalid, nil if valid.
func (r *ValidationResult) ToError() error {
	if r.Valid() {
		return nil
	}

	msg := r.Errors[0].Message
	if len(r.Errors) > 1 {
		msg = fmt.Sprintf("validation failed with %d errors", len(r.Errors))
	}

	code := ErrCodeValidation
	for _, issue := range r.Errors {
		if issue.Code == ViolationInlineCycle {
			code = ErrCodeCycleDetected
			break
		}
	}

	return NewError(code, msg).
		WithDetails(map[string]any{
			"error_count":   len(r.Errors),
			"warning_count": len(r.Warnings),
			"errors":        r.Errors,
			"warnings":      r.Warnings,
		})
}
