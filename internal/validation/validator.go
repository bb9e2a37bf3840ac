// Package validation checks workflow definitions for structural and graph
// correctness before they are persisted.
package validation

import "github.com/loomworks/loom/pkg/schema"

// Validator checks workflow definitions for correctness before persistence.
type Validator interface {
	// Validate runs the full pipeline and returns every issue found.
	Validate(def *schema.WorkflowDefinition) *schema.ValidationResult
	// ValidateDefinition returns a single error summarizing the result.
	ValidateDefinition(def *schema.WorkflowDefinition) error
}
