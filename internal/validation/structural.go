package validation

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/loomworks/loom/pkg/schema"
)

// definitionSchemaJSON is the JSON Schema for WorkflowDefinition shape
// validation. Embedded as a constant to avoid filesystem dependencies.
//
// Deliberately shape-only: id grammar, uniqueness, and reference resolution
// are graph-stage concerns so that every offending id is reported rather than
// the first schema violation.
const definitionSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://loomworks.dev/schemas/workflow-definition.json",
  "type": "object",
  "required": ["steps"],
  "properties": {
    "steps": {
      "type": ["array", "null"],
      "items": { "$ref": "#/$defs/step" }
    }
  },
  "additionalProperties": false,
  "$defs": {
    "step": {
      "type": "object",
      "properties": {
        "id": { "type": "string" },
        "label": { "type": "string" },
        "type": { "type": "string" },
        "next": {
          "type": "array",
          "items": { "$ref": "#/$defs/stepRef" }
        },
        "onConditionPass": { "$ref": "#/$defs/stepRef" },
        "onConditionFail": { "$ref": "#/$defs/stepRef" },
        "conditions": {
          "type": "array",
          "items": {
            "type": "object",
            "required": ["value", "next"],
            "properties": {
              "value": {},
              "next": { "$ref": "#/$defs/stepRef" }
            },
            "additionalProperties": false
          }
        },
        "defaultNext": { "$ref": "#/$defs/stepRef" },
        "onError": { "$ref": "#/$defs/stepRef" },
        "onTimeout": { "$ref": "#/$defs/stepRef" }
      },
      "additionalProperties": false
    },
    "stepRef": {
      "oneOf": [
        { "type": "string" },
        { "$ref": "#/$defs/step" }
      ]
    }
  }
}`

// StructuralValidator validates raw definition documents against the workflow
// JSON Schema (Draft 2020-12). Safe for concurrent use.
type StructuralValidator struct {
	definitionSchema *jsonschema.Schema
}

// NewStructuralValidator compiles the embedded definition schema.
func NewStructuralValidator() (*StructuralValidator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(definitionSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal definition schema: %w", err)
	}
	if err := c.AddResource("https://loomworks.dev/schemas/workflow-definition.json", doc); err != nil {
		return nil, fmt.Errorf("add definition schema resource: %w", err)
	}

	compiled, err := c.Compile("https://loomworks.dev/schemas/workflow-definition.json")
	if err != nil {
		return nil, fmt.Errorf("compile definition schema: %w", err)
	}
	return &StructuralValidator{definitionSchema: compiled}, nil
}

// ValidateDefinition validates a WorkflowDefinition against the JSON Schema.
func (v *StructuralValidator) ValidateDefinition(def *schema.WorkflowDefinition) error {
	if def == nil {
		return schema.NewError(schema.ErrCodeValidation, "workflow definition is nil")
	}
	doc, err := toJSONValue(def)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize workflow definition").WithCause(err)
	}
	if err := v.definitionSchema.Validate(doc); err != nil {
		return toLoomError(err)
	}
	return nil
}

// ValidateRaw validates a raw JSON document before it is decoded into the
// typed model. Useful at ingestion boundaries (CLI, HTTP handlers).
func (v *StructuralValidator) ValidateRaw(raw []byte) error {
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "definition is not valid JSON").WithCause(err)
	}
	if err := v.definitionSchema.Validate(doc); err != nil {
		return toLoomError(err)
	}
	return nil
}

// toJSONValue round-trips a Go value through JSON encoding/decoding so that
// numeric values become json.Number (required by the jsonschema library).
func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(strings.NewReader(string(b)))
}

// toLoomError converts a jsonschema.ValidationError into a LoomError with
// one violation string per leaf cause.
func toLoomError(err error) *schema.LoomError {
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return schema.NewError(schema.ErrCodeValidation, err.Error())
	}

	violations := collectViolations(verr)
	if len(violations) == 0 {
		return schema.NewError(schema.ErrCodeValidation, verr.Error())
	}
	if len(violations) == 1 {
		return schema.NewError(schema.ErrCodeValidation, violations[0]).
			WithDetails(map[string]any{"violations": violations})
	}

	msg := fmt.Sprintf("validation failed with %d errors", len(violations))
	return schema.NewError(schema.ErrCodeValidation, msg).
		WithDetails(map[string]any{"violations": violations})
}

// collectViolations walks a ValidationError tree and collects leaf error
// messages with their instance locations.
func collectViolations(verr *jsonschema.ValidationError) []string {
	if len(verr.Causes) == 0 {
		loc := "/"
		if len(verr.InstanceLocation) > 0 {
			loc = "/" + strings.Join(verr.InstanceLocation, "/")
		}
		return []string{fmt.Sprintf("%s: %s", loc, verr.Error())}
	}

	var violations []string
	for _, cause := range verr.Causes {
		violations = append(violations, collectViolations(cause)...)
	}
	return violations
}
