package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomworks/loom/pkg/schema"
)

func TestValidateGraphEmptyDefinitionIsValid(t *testing.T) {
	result := validateGraph(&schema.WorkflowDefinition{})
	assert.True(t, result.Valid())
	assert.Empty(t, result.Errors)
}

func TestValidateGraphLinearWorkflow(t *testing.T) {
	def := &schema.WorkflowDefinition{Steps: []schema.Step{
		{ID: "aB3k9ZpQ1x", Label: "Start", Type: schema.StepTypeTrigger,
			Next: []schema.StepRef{schema.RefByID("bC4l0ApR2y")}},
		{ID: "bC4l0ApR2y", Label: "End", Type: schema.StepTypeTerminate},
	}}

	result := validateGraph(def)
	assert.True(t, result.Valid())
}

func TestValidateGraphIDGrammar(t *testing.T) {
	cases := []struct {
		id   string
		code string
	}{
		{"", schema.ViolationMissingID},
		{"short", schema.ViolationMalformedID},
		{"elevenchars", schema.ViolationMalformedID},
		{"has space!", schema.ViolationMalformedID},
		{"aB3k9ZpQ1!", schema.ViolationMalformedID},
	}

	for _, tc := range cases {
		def := &schema.WorkflowDefinition{Steps: []schema.Step{{ID: tc.id}}}
		result := validateGraph(def)
		require.Len(t, result.Errors, 1, "id %q", tc.id)
		assert.Equal(t, tc.code, result.Errors[0].Code)
		assert.Equal(t, "steps[0]", result.Errors[0].Path)
	}
}

func TestValidateGraphDuplicateIDsReportedEverywhere(t *testing.T) {
	// The same id appears at the root, nested inline under next, and inline
	// under onError. Every occurrence after the first is an error.
	def := &schema.WorkflowDefinition{Steps: []schema.Step{
		{ID: "aB3k9ZpQ1x"},
		{
			ID: "bC4l0ApR2y",
			Next: []schema.StepRef{
				schema.RefInline(&schema.Step{ID: "aB3k9ZpQ1x"}),
			},
			OnError: &schema.StepRef{Inline: &schema.Step{ID: "aB3k9ZpQ1x"}},
		},
	}}

	result := validateGraph(def)
	require.Len(t, result.Errors, 2)
	for _, issue := range result.Errors {
		assert.Equal(t, schema.ViolationDuplicateID, issue.Code)
		assert.Equal(t, "aB3k9ZpQ1x", issue.StepID)
		assert.Contains(t, issue.Message, "steps[0]")
	}
	assert.Equal(t, "steps[1].next[0]", result.Errors[0].Path)
	assert.Equal(t, "steps[1].onError", result.Errors[1].Path)
}

func TestValidateGraphDanglingByIDRefsTolerated(t *testing.T) {
	// By-id references are never resolved; a forward reference to a step
	// that does not exist yet is not an error.
	def := &schema.WorkflowDefinition{Steps: []schema.Step{
		{ID: "aB3k9ZpQ1x", Next: []schema.StepRef{schema.RefByID("zZzZzZzZzZ")}},
	}}

	result := validateGraph(def)
	assert.True(t, result.Valid())
}

func TestValidateGraphInlineCycle(t *testing.T) {
	inner := &schema.Step{ID: "bC4l0ApR2y"}
	inner.Next = []schema.StepRef{schema.RefInline(inner)}
	def := &schema.WorkflowDefinition{Steps: []schema.Step{
		{ID: "aB3k9ZpQ1x", Next: []schema.StepRef{schema.RefInline(inner)}},
	}}

	result := validateGraph(def)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, schema.ViolationInlineCycle, result.Errors[0].Code)
	assert.Equal(t, "bC4l0ApR2y", result.Errors[0].StepID)
}

func TestValidateGraphWalksEveryEdgeKind(t *testing.T) {
	bad := func(id string) *schema.StepRef {
		return &schema.StepRef{Inline: &schema.Step{ID: id}}
	}
	def := &schema.WorkflowDefinition{Steps: []schema.Step{{
		ID:              "aB3k9ZpQ1x",
		Next:            []schema.StepRef{schema.RefInline(&schema.Step{ID: "bad"})},
		OnConditionPass: bad("bad"),
		OnConditionFail: bad("bad"),
		Conditions: []schema.ConditionBranch{
			{Value: "x", Next: schema.RefInline(&schema.Step{ID: "bad"})},
		},
		DefaultNext: bad("bad"),
		OnError:     bad("bad"),
		OnTimeout:   bad("bad"),
	}}}

	result := validateGraph(def)
	require.Len(t, result.Errors, 7)
	paths := make([]string, 0, len(result.Errors))
	for _, issue := range result.Errors {
		assert.Equal(t, schema.ViolationMalformedID, issue.Code)
		paths = append(paths, issue.Path)
	}
	assert.Equal(t, []string{
		"steps[0].next[0]",
		"steps[0].onConditionPass",
		"steps[0].onConditionFail",
		"steps[0].conditions[0].next",
		"steps[0].defaultNext",
		"steps[0].onError",
		"steps[0].onTimeout",
	}, paths)
}
