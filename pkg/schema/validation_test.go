package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidationResultAggregation(t *testing.T) {
	r := &ValidationResult{}
	assert.True(t, r.Valid())
	assert.NoError(t, r.ToError())

	r.AddWarning("steps[0]", "some_warning", "aB3k9ZpQ1x", "looks odd")
	assert.True(t, r.Valid(), "warnings alone do not invalidate")

	r.AddError("steps[1]", ViolationMissingID, "", "step has no id")
	assert.False(t, r.Valid())

	other := &ValidationResult{}
	other.AddError("steps[2]", ViolationMalformedID, "bad", "malformed")
	r.Merge(other)
	r.Merge(nil)
	require.Len(t, r.Errors, 2)
	require.Len(t, r.Warnings, 1)
}

func TestToErrorCodes(t *testing.T) {
	r := &ValidationResult{}
	r.AddError("steps[0]", ViolationDuplicateID, "aB3k9ZpQ1x", "duplicate")
	assert.True(t, IsCode(r.ToError(), ErrCodeValidation))

	r = &ValidationResult{}
	r.AddError("steps[0]", ViolationMissingID, "", "missing")
	r.AddError("steps[0].next[0]", ViolationInlineCycle, "bC4l0ApR2y", "cycle")
	assert.True(t, IsCode(r.ToError(), ErrCodeCycleDetected))
}
