// Package templates orchestrates create/save/publish flows over the
// template store, applying the account/organization scope supplied by the
// caller's auth layer. The service trusts scope values as already authorized.
package templates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/loomworks/loom/internal/diagram"
	"github.com/loomworks/loom/internal/id"
	"github.com/loomworks/loom/internal/logging"
	"github.com/loomworks/loom/internal/store"
	"github.com/loomworks/loom/internal/validation"
	"github.com/loomworks/loom/pkg/schema"
)

// InitialVersion is the version every new draft starts at.
const InitialVersion = "0.1.0"

// Scope identifies who is acting and where. Organization is empty for
// account-wide operations.
type Scope struct {
	Account      string
	Organization string
	Actor        string
}

// Service coordinates validation, persistence, and the change log.
type Service struct {
	store     store.TemplateStore
	validator validation.Validator
	logger    *slog.Logger
}

// NewService creates a template service.
func NewService(s store.TemplateStore, v validation.Validator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: s, validator: v, logger: logger}
}

// CreateDraft synthesizes a new template: fresh id, version 0.1.0, draft
// status, empty definition.
func (s *Service) CreateDraft(ctx context.Context, scope Scope, label string) (*schema.WorkflowTemplate, error) {
	if label == "" {
		return nil, schema.NewError(schema.ErrCodeValidation, "template label is required")
	}

	now := time.Now().UTC()
	tpl := &schema.WorkflowTemplate{
		Account:      scope.Account,
		Organization: scope.Organization,
		ID:           id.New(),
		Version:      InitialVersion,
		Label:        label,
		Status:       schema.StatusDraft,
		Definition:   schema.WorkflowDefinition{},
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    scope.Actor,
		UpdatedBy:    scope.Actor,
	}

	if err := s.store.CreateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	s.logEvent(ctx, scope, tpl, store.EventCreated, "")

	logging.LogWith(ctx, s.logger).Info("template draft created",
		slog.String("template_id", tpl.ID), slog.String("version", tpl.Version))
	return tpl, nil
}

// Save validates and persists a new definition onto an existing draft
// version. Published versions are immutable: saving over one is rejected
// with INVALID_TRANSITION; use NewVersion to continue editing. The write is
// conditional on the updated_at read here, so a concurrent save loses with
// VERSION_CONFLICT instead of silently overwriting.
func (s *Service) Save(ctx context.Context, scope Scope, templateID, version string, def *schema.WorkflowDefinition) (*schema.WorkflowTemplate, *schema.ValidationResult, error) {
	result := s.validator.Validate(def)
	if !result.Valid() {
		return nil, result, nil
	}

	tpl, err := s.store.GetTemplate(ctx, scope.Account, scope.Organization, templateID, version)
	if err != nil {
		return nil, nil, err
	}
	if tpl.Status != schema.StatusDraft {
		return nil, nil, schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"version %s is %s and immutable; mint a new version to edit", tpl.Version, tpl.Status)
	}

	readUpdatedAt := tpl.UpdatedAt
	tpl.Definition = *def
	tpl.UpdatedAt = time.Now().UTC()
	tpl.UpdatedBy = scope.Actor

	if err := s.store.UpdateTemplate(ctx, tpl, &readUpdatedAt); err != nil {
		return nil, nil, err
	}
	s.logEvent(ctx, scope, tpl, store.EventSaved, "")

	return tpl, result, nil
}

// NewVersion mints the next draft of a template from its latest version,
// carrying the definition and metadata forward with a minor version bump.
func (s *Service) NewVersion(ctx context.Context, scope Scope, templateID string) (*schema.WorkflowTemplate, error) {
	latest, err := s.store.GetTemplate(ctx, scope.Account, scope.Organization, templateID, "")
	if err != nil {
		return nil, err
	}

	current, err := store.ParseVersion(latest.Version)
	if err != nil {
		return nil, err
	}
	next := current.IncMinor()

	now := time.Now().UTC()
	tpl := &schema.WorkflowTemplate{
		Account:      latest.Account,
		Organization: latest.Organization,
		ID:           latest.ID,
		Version:      next.String(),
		Label:        latest.Label,
		Description:  latest.Description,
		Status:       schema.StatusDraft,
		Tags:         latest.Tags,
		Definition:   latest.Definition,
		CreatedAt:    now,
		UpdatedAt:    now,
		CreatedBy:    scope.Actor,
		UpdatedBy:    scope.Actor,
	}

	if err := s.store.CreateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	s.logEvent(ctx, scope, tpl, store.EventCreated,
		fmt.Sprintf(`{"from_version":%q}`, latest.Version))
	return tpl, nil
}

// Publish transitions a draft to published. Once published, the version's
// payload is immutable and any further edit must target a new version.
func (s *Service) Publish(ctx context.Context, scope Scope, templateID, version string) (*schema.WorkflowTemplate, error) {
	return s.transition(ctx, scope, templateID, version, schema.StatusPublished, store.EventPublished)
}

// Archive retires a version. Archived is terminal.
func (s *Service) Archive(ctx context.Context, scope Scope, templateID, version string) (*schema.WorkflowTemplate, error) {
	return s.transition(ctx, scope, templateID, version, schema.StatusArchived, store.EventArchived)
}

func (s *Service) transition(ctx context.Context, scope Scope, templateID, version string, next schema.TemplateStatus, eventType string) (*schema.WorkflowTemplate, error) {
	tpl, err := s.store.GetTemplate(ctx, scope.Account, scope.Organization, templateID, version)
	if err != nil {
		return nil, err
	}
	if !tpl.Status.CanTransition(next) {
		return nil, schema.NewErrorf(schema.ErrCodeInvalidTransition,
			"cannot transition %s from %s to %s", tpl.Key(), tpl.Status, next)
	}

	readUpdatedAt := tpl.UpdatedAt
	tpl.Status = next
	tpl.UpdatedAt = time.Now().UTC()
	tpl.UpdatedBy = scope.Actor

	if err := s.store.UpdateTemplate(ctx, tpl, &readUpdatedAt); err != nil {
		return nil, err
	}
	s.logEvent(ctx, scope, tpl, eventType, "")

	logging.LogWith(ctx, s.logger).Info("template status changed",
		slog.String("template_id", tpl.ID),
		slog.String("version", tpl.Version),
		slog.String("status", string(next)))
	return tpl, nil
}

// Get fetches one template; empty version resolves to the latest.
func (s *Service) Get(ctx context.Context, scope Scope, templateID, version string, statuses ...schema.TemplateStatus) (*schema.WorkflowTemplate, error) {
	return s.store.GetTemplate(ctx, scope.Account, scope.Organization, templateID, version, statuses...)
}

// List returns one page of the scope's templates.
func (s *Service) List(ctx context.Context, scope Scope, status schema.TemplateStatus, page, pageSize int) (*store.TemplatePage, error) {
	return s.store.ListTemplates(ctx, store.TemplateFilter{
		Account:      scope.Account,
		Organization: scope.Organization,
		Status:       status,
		Page:         page,
		PageSize:     pageSize,
	})
}

// Delete removes one version; deleting a missing version is a no-op.
func (s *Service) Delete(ctx context.Context, scope Scope, templateID, version string) error {
	n, err := s.store.DeleteTemplate(ctx, scope.Account, scope.Organization, templateID, version)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logEvent(ctx, scope, &schema.WorkflowTemplate{
			Account:      scope.Account,
			Organization: scope.Organization,
			ID:           templateID,
			Version:      version,
		}, store.EventDeleted, "")
	}
	return nil
}

// Diagram regenerates the display diagram for a stored definition.
func (s *Service) Diagram(ctx context.Context, scope Scope, templateID, version string, format diagram.Format) ([]byte, error) {
	tpl, err := s.store.GetTemplate(ctx, scope.Account, scope.Organization, templateID, version)
	if err != nil {
		return nil, err
	}
	return diagram.Render(&tpl.Definition, format)
}

// ChangeLog returns the template's change-log entries after sequence since.
func (s *Service) ChangeLog(ctx context.Context, scope Scope, templateID string, since int64) ([]*store.TemplateEvent, error) {
	return s.store.ListTemplateEvents(ctx, scope.Account, scope.Organization, templateID, since)
}

// logEvent appends to the change log; failures are logged, not fatal, so a
// change-log hiccup never masks a successful write.
func (s *Service) logEvent(ctx context.Context, scope Scope, tpl *schema.WorkflowTemplate, eventType, payload string) {
	err := s.store.AppendTemplateEvent(ctx, &store.TemplateEvent{
		Account:      tpl.Account,
		Organization: tpl.Organization,
		TemplateID:   tpl.ID,
		Version:      tpl.Version,
		Type:         eventType,
		Actor:        scope.Actor,
		Payload:      payload,
	})
	if err != nil {
		logging.LogWith(ctx, s.logger).Warn("append template event failed",
			slog.String("template_id", tpl.ID),
			slog.String("event_type", eventType),
			slog.Any("error", err))
	}
}
