package validation

import (
	"encoding/json"

	"github.com/loomworks/loom/pkg/schema"
)

// WorkflowValidator orchestrates the two-stage validation pipeline:
// 1. Structural (JSON Schema, shape only)
// 2. Graph (id grammar, uniqueness across nesting, inline cycles)
type WorkflowValidator struct {
	structural *StructuralValidator
}

// NewWorkflowValidator creates a WorkflowValidator.
func NewWorkflowValidator() (*WorkflowValidator, error) {
	sv, err := NewStructuralValidator()
	if err != nil {
		return nil, err
	}
	return &WorkflowValidator{structural: sv}, nil
}

// Validate runs the full pipeline and returns an aggregated result.
// Structural errors short-circuit: a definition whose shape is broken has no
// meaningful graph to walk. An empty definition is valid.
func (wv *WorkflowValidator) Validate(def *schema.WorkflowDefinition) *schema.ValidationResult {
	if def == nil {
		r := &schema.ValidationResult{}
		r.AddError("/", schema.ErrCodeValidation, "", "workflow definition is nil")
		return r
	}

	result := structuralResult(wv.structural.ValidateDefinition(def))
	if !result.Valid() {
		return result
	}

	result.Merge(validateGraph(def))
	return result
}

// ValidateDefinition satisfies the Validator interface.
func (wv *WorkflowValidator) ValidateDefinition(def *schema.WorkflowDefinition) error {
	return wv.Validate(def).ToError()
}

// ValidateBytes validates a raw JSON document: structural stage against the
// raw bytes, then the graph stage on the decoded model. Returns the decoded
// definition when the shape is usable, even if the graph stage found errors.
func (wv *WorkflowValidator) ValidateBytes(raw []byte) (*schema.WorkflowDefinition, *schema.ValidationResult) {
	result := structuralResult(wv.structural.ValidateRaw(raw))
	if !result.Valid() {
		return nil, result
	}

	def := &schema.WorkflowDefinition{}
	if err := json.Unmarshal(raw, def); err != nil {
		result.AddError("/", schema.ErrCodeValidation, "", "decode definition: "+err.Error())
		return nil, result
	}

	result.Merge(validateGraph(def))
	return def, result
}

// structuralResult converts a structural-stage error into a ValidationResult.
func structuralResult(err error) *schema.ValidationResult {
	result := &schema.ValidationResult{}
	if err == nil {
		return result
	}

	le, ok := err.(*schema.LoomError)
	if !ok {
		result.AddError("/", schema.ErrCodeValidation, "", err.Error())
		return result
	}

	if le.Details != nil {
		if violations, ok := le.Details["violations"].([]string); ok {
			for _, v := range violations {
				result.AddError("/", schema.ErrCodeValidation, "", v)
			}
			return result
		}
	}
	result.AddError("/", schema.ErrCodeValidation, "", le.Message)
	return result
}
