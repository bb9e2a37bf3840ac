package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// WorkflowDefinition is the JSON-serializable workflow graph.
// Steps is presentational order only; flow is defined by edges, not position.
type WorkflowDefinition struct {
	Steps []Step `json:"steps"`
}

// Step is a single node in a workflow graph together with its outgoing edges.
// Every edge field is optional. Edge targets are StepRefs: either the id of a
// step defined elsewhere in the same definition, or an inline nested step
// owned by this one.
type Step struct {
	ID    string   `json:"id"`
	Label string   `json:"label,omitempty"`
	Type  StepType `json:"type,omitempty"`

	Next            []StepRef         `json:"next,omitempty"`
	OnConditionPass *StepRef          `json:"onConditionPass,omitempty"`
	OnConditionFail *StepRef          `json:"onConditionFail,omitempty"`
	Conditions      []ConditionBranch `json:"conditions,omitempty"`
	DefaultNext     *StepRef          `json:"defaultNext,omitempty"`
	OnError         *StepRef          `json:"onError,omitempty"`
	OnTimeout       *StepRef          `json:"onTimeout,omitempty"`
}

// DisplayLabel returns the label to show for the step, falling back to its id.
func (s *Step) DisplayLabel() string {
	if s.Label != "" {
		return s.Label
	}
	return s.ID
}

// ConditionBranch is one arm of a multi-way branch. Value becomes the edge
// label in rendered diagrams.
type ConditionBranch struct {
	Value any     `json:"value"`
	Next  StepRef `json:"next"`
}

// StepType classifies a step for validation leniency and rendering style.
// The set is open: unknown values round-trip untouched and render with the
// default shape.
type StepType string

const (
	StepTypeTrigger   StepType = "trigger"
	StepTypeDecision  StepType = "decision"
	StepTypeBranch    StepType = "branch"
	StepTypeMerge     StepType = "merge"
	StepTypeTerminate StepType = "terminate"
	StepTypeWorkflow  StepType = "workflow"
	StepTypeAction    StepType = "action"
)

// StepRef points at a successor step, either by id or as an inline nested
// definition. Exactly one of ID and Inline is set. On the wire a StepRef is
// a JSON string (by id) or a JSON object (inline step).
type StepRef struct {
	ID     string
	Inline *Step
}

// RefByID creates a reference to a step defined elsewhere in the definition.
func RefByID(id string) StepRef { return StepRef{ID: id} }

// RefInline creates a reference owning an inline nested step.
func RefInline(s *Step) StepRef { return StepRef{Inline: s} }

// IsInline reports whether the reference carries an inline step.
func (r StepRef) IsInline() bool { return r.Inline != nil }

// IsZero reports whether the reference points at nothing.
func (r StepRef) IsZero() bool { return r.ID == "" && r.Inline == nil }

// TargetID returns the id of the referenced step: the reference id itself,
// or the inline step's id.
func (r StepRef) TargetID() string {
	if r.Inline != nil {
		return r.Inline.ID
	}
	return r.ID
}

// MarshalJSON encodes a by-id reference as a JSON string and an inline
// reference as the nested step object.
func (r StepRef) MarshalJSON() ([]byte, error) {
	if r.Inline != nil {
		return json.Marshal(r.Inline)
	}
	return json.Marshal(r.ID)
}

// UnmarshalJSON decodes either form. Anything other than a string or an
// object is rejected.
func (r *StepRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("step reference is empty")
	}
	switch trimmed[0] {
	case '"':
		return json.Unmarshal(trimmed, &r.ID)
	case '{':
		r.Inline = &Step{}
		return json.Unmarshal(trimmed, r.Inline)
	case 'n': // null
		*r = StepRef{}
		return nil
	default:
		return fmt.Errorf("step reference must be a string or an object, got %s", trimmed)
	}
}
