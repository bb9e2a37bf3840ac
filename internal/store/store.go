// Package store persists versioned workflow templates under the composite
// key (account, organization, id, version) and keeps an append-only change
// log per template.
package store

import (
	"context"
	"time"

	"github.com/loomworks/loom/pkg/schema"
)

// Pagination bounds for ListTemplates.
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// TemplateStore defines the persistence contract for workflow templates.
// All implementations must be safe for concurrent use, enforce uniqueness of
// the composite key at the storage boundary, and guarantee that a failed
// write leaves no partial document.
type TemplateStore interface {
	// CreateTemplate persists a new template version. Fails with
	// DUPLICATE_VERSION if the composite key already exists; concurrent
	// creates for the same key yield exactly one success.
	CreateTemplate(ctx context.Context, tpl *schema.WorkflowTemplate) error

	// GetTemplate fetches one template. An empty version resolves to the
	// highest version by semantic-version ordering, optionally restricted
	// to the given statuses.
	GetTemplate(ctx context.Context, account, organization, id, version string, statuses ...schema.TemplateStatus) (*schema.WorkflowTemplate, error)

	// ListTemplates returns one page of templates matching the filter.
	ListTemplates(ctx context.Context, filter TemplateFilter) (*TemplatePage, error)

	// UpdateTemplate overwrites the document at the template's exact
	// composite key, which must already exist (NOT_FOUND otherwise). The
	// store never bumps versions; that decision belongs to the caller.
	// When expectedUpdatedAt is non-nil the write only succeeds if the
	// stored updated_at still matches, failing with VERSION_CONFLICT
	// otherwise.
	UpdateTemplate(ctx context.Context, tpl *schema.WorkflowTemplate, expectedUpdatedAt *time.Time) error

	// DeleteTemplate removes one version. Idempotent: deleting a missing
	// key is not an error and reports zero documents affected.
	DeleteTemplate(ctx context.Context, account, organization, id, version string) (int64, error)

	// AppendTemplateEvent records a change-log entry with a per-template
	// monotonically increasing sequence.
	AppendTemplateEvent(ctx context.Context, event *TemplateEvent) error

	// ListTemplateEvents returns the change log for a template with
	// sequence > since, ordered by sequence ascending.
	ListTemplateEvents(ctx context.Context, account, organization, templateID string, since int64) ([]*TemplateEvent, error)

	// Maintenance
	Migrate(ctx context.Context) error
	Vacuum(ctx context.Context) error

	// Lifecycle
	Close() error
}

// TemplateFilter specifies criteria for listing templates. Organization
// empty means account-wide templates only; PageSize above MaxPageSize is
// clamped, and Page below 1 is a client error.
type TemplateFilter struct {
	Account      string                `json:"account"`
	Organization string                `json:"organization,omitempty"`
	Status       schema.TemplateStatus `json:"status,omitempty"`
	Label        string                `json:"label,omitempty"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"page_size"`
}

// TemplatePage is one page of list results.
type TemplatePage struct {
	Templates []*schema.WorkflowTemplate `json:"templates"`
	Page      int                        `json:"page"`
	PageSize  int                        `json:"page_size"`
	Total     int64                      `json:"total"`
}

// Template change-log event types.
const (
	EventCreated   = "created"
	EventSaved     = "saved"
	EventPublished = "published"
	EventArchived  = "archived"
	EventDeleted   = "deleted"
)

// TemplateEvent is one append-only change-log record for a template.
type TemplateEvent struct {
	Account      string    `json:"account"`
	Organization string    `json:"organization,omitempty"`
	TemplateID   string    `json:"template_id"`
	Version      string    `json:"version"`
	Type         string    `json:"type"`
	Actor        string    `json:"actor,omitempty"`
	Payload      string    `json:"payload,omitempty"`
	Sequence     int64     `json:"sequence"`
	Timestamp    time.Time `json:"timestamp"`
}
