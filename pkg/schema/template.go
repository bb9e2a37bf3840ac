package schema

import "time"

// TemplateStatus is the lifecycle state of a template version.
// Transitions are monotonic: draft -> published -> archived. A published
// version never returns to draft; edits mint a new version instead.
type TemplateStatus string

const (
	StatusDraft     TemplateStatus = "draft"
	StatusPublished TemplateStatus = "published"
	StatusArchived  TemplateStatus = "archived"
)

// CanTransition reports whether moving from s to next is a legal lifecycle
// transition.
func (s TemplateStatus) CanTransition(next TemplateStatus) bool {
	switch s {
	case StatusDraft:
		return next == StatusPublished || next == StatusArchived
	case StatusPublished:
		return next == StatusArchived
	default:
		return false
	}
}

// WorkflowTemplate is a versioned, persisted container for a
// WorkflowDefinition. The tuple (Account, Organization, ID, Version) is
// unique across all templates; Organization is empty for account-wide
// templates.
type WorkflowTemplate struct {
	Account      string             `json:"account"`
	Organization string             `json:"organization,omitempty"`
	ID           string             `json:"id"`
	Version      string             `json:"version"` // MAJOR.MINOR.PATCH

	Label       string         `json:"label"`
	Description string         `json:"description,omitempty"`
	Status      TemplateStatus `json:"status"`
	Tags        []string       `json:"tags,omitempty"`

	Definition WorkflowDefinition `json:"workflowDefinition"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy string    `json:"created_by"`
	UpdatedBy string    `json:"updated_by"`
}

// Key returns the composite identity of the template.
func (t *WorkflowTemplate) Key() TemplateKey {
	return TemplateKey{
		Account:      t.Account,
		Organization: t.Organization,
		ID:           t.ID,
		Version:      t.Version,
	}
}

// TemplateKey is the four-part composite identity of a template document.
type TemplateKey struct {
	Account      string `json:"account"`
	Organization string `json:"organization,omitempty"`
	ID           string `json:"id"`
	Version      string `json:"version"`
}

func (k TemplateKey) String() string {
	org := k.Organization
	if org == "" {
		org = "-"
	}
	return k.Account + "/" + org + "/" + k.ID + "@" + k.Version
}
