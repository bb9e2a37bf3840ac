package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	assert.True(t, StatusDraft.CanTransition(StatusPublished))
	assert.True(t, StatusDraft.CanTransition(StatusArchived))
	assert.True(t, StatusPublished.CanTransition(StatusArchived))

	// Lifecycle is monotonic: no edits after publish, no revival after archive.
	assert.False(t, StatusPublished.CanTransition(StatusDraft))
	assert.False(t, StatusArchived.CanTransition(StatusDraft))
	assert.False(t, StatusArchived.CanTransition(StatusPublished))
	assert.False(t, StatusDraft.CanTransition(StatusDraft))
}

func TestTemplateKeyString(t *testing.T) {
	key := TemplateKey{Account: "acme", Organization: "ops", ID: "signup-flow", Version: "1.2.0"}
	assert.Equal(t, "acme/ops/signup-flow@1.2.0", key.String())

	key.Organization = ""
	assert.Equal(t, "acme/-/signup-flow@1.2.0", key.String())
}
