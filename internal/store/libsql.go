package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/tursodatabase/go-libsql"

	"github.com/loomworks/loom/pkg/schema"
)

// LibSQLStore implements TemplateStore using libSQL (embedded SQLite fork).
type LibSQLStore struct {
	db *sql.DB
}

// NewLibSQLStore opens a libSQL database at the given path.
// The path should be a file URI, e.g. "file:/path/to/db.db".
func NewLibSQLStore(dbPath string) (*LibSQLStore, error) {
	db, err := sql.Open("libsql", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open libsql: %w", err)
	}
	db.SetMaxOpenConns(1)

	// Apply connection-level PRAGMAs. Some PRAGMAs return rows so we use QueryRow.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA cache_size=-20000",
		"PRAGMA foreign_keys=ON",
		"PRAGMA temp_store=MEMORY",
	}
	for _, p := range pragmas {
		var result string
		_ = db.QueryRow(p).Scan(&result)
	}

	return &LibSQLStore{db: db}, nil
}

// DB returns the underlying *sql.DB for advanced usage (e.g. change log).
func (s *LibSQLStore) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *LibSQLStore) Close() error { return s.db.Close() }

// Migrate runs all pending database migrations.
func (s *LibSQLStore) Migrate(ctx context.Context) error {
	return runMigrations(ctx, s.db)
}

// Vacuum runs VACUUM on the database.
func (s *LibSQLStore) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}

const templateColumns = `account, organization, id, version, label, description, status, definition, tags, created_at, updated_at, created_by, updated_by`

// CreateTemplate inserts a new template version. The primary key makes the
// uniqueness check atomic: of two racing creates for the same key, exactly
// one insert succeeds and the other surfaces DUPLICATE_VERSION.
func (s *LibSQLStore) CreateTemplate(ctx context.Context, tpl *schema.WorkflowTemplate) error {
	def, err := json.Marshal(tpl.Definition)
	if err != nil {
		return fmt.Errorf("marshal template definition: %w", err)
	}
	tags, err := marshalTags(tpl.Tags)
	if err != nil {
		return fmt.Errorf("marshal template tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workflow_templates (`+templateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.Account, tpl.Organization, tpl.ID, tpl.Version,
		tpl.Label, nullStr(tpl.Description), string(tpl.Status), string(def), tags,
		timeOrNow(tpl.CreatedAt), timeOrNow(tpl.UpdatedAt), tpl.CreatedBy, tpl.UpdatedBy,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return schema.NewErrorf(schema.ErrCodeDuplicateVersion,
				"template %s already exists", tpl.Key()).WithCause(err)
		}
		return storeFailure("create template", err)
	}
	return nil
}

// GetTemplate fetches one template version. An empty version resolves to the
// highest version by semantic-version ordering among those matching the
// status filter.
func (s *LibSQLStore) GetTemplate(ctx context.Context, account, organization, id, version string, statuses ...schema.TemplateStatus) (*schema.WorkflowTemplate, error) {
	if version == "" {
		return s.getLatest(ctx, account, organization, id, statuses)
	}

	query := `SELECT ` + templateColumns + ` FROM workflow_templates
		 WHERE account = ? AND organization = ? AND id = ? AND version = ?`
	args := []any{account, organization, id, version}
	query, args = appendStatusFilter(query, args, statuses)

	row := s.db.QueryRowContext(ctx, query, args...)
	tpl, err := scanTemplate(row.Scan)
	if err == sql.ErrNoRows {
		return nil, templateNotFound(account, organization, id, version)
	}
	if err != nil {
		return nil, storeFailure("get template", err)
	}
	return tpl, nil
}

// getLatest loads every version for the key and picks the semver maximum in
// memory; version strings do not order lexicographically (0.10.0 > 0.9.1).
func (s *LibSQLStore) getLatest(ctx context.Context, account, organization, id string, statuses []schema.TemplateStatus) (*schema.WorkflowTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM workflow_templates
		 WHERE account = ? AND organization = ? AND id = ?`
	args := []any{account, organization, id}
	query, args = appendStatusFilter(query, args, statuses)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeFailure("get latest template", err)
	}
	defer rows.Close()

	var candidates []*schema.WorkflowTemplate
	for rows.Next() {
		tpl, scanErr := scanTemplate(rows.Scan)
		if scanErr != nil {
			return nil, storeFailure("scan template", scanErr)
		}
		candidates = append(candidates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("get latest template", err)
	}

	latest := latestVersion(candidates)
	if latest == nil {
		return nil, templateNotFound(account, organization, id, "")
	}
	return latest, nil
}

// ListTemplates returns one page of templates. PageSize is clamped to
// MaxPageSize; Page below 1 is a client error.
func (s *LibSQLStore) ListTemplates(ctx context.Context, filter TemplateFilter) (*TemplatePage, error) {
	if filter.Page < 1 {
		return nil, schema.NewErrorf(schema.ErrCodeValidation, "page must be >= 1, got %d", filter.Page)
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	where := []string{"account = ?", "organization = ?"}
	args := []any{filter.Account, filter.Organization}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Label != "" {
		where = append(where, "label = ?")
		args = append(args, filter.Label)
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM workflow_templates`+cond, args...).Scan(&total); err != nil {
		return nil, storeFailure("count templates", err)
	}

	query := `SELECT ` + templateColumns + ` FROM workflow_templates` + cond +
		` ORDER BY label, id, version LIMIT ? OFFSET ?`
	args = append(args, pageSize, (filter.Page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeFailure("list templates", err)
	}
	defer rows.Close()

	page := &TemplatePage{Page: filter.Page, PageSize: pageSize, Total: total}
	for rows.Next() {
		tpl, scanErr := scanTemplate(rows.Scan)
		if scanErr != nil {
			return nil, storeFailure("scan template", scanErr)
		}
		page.Templates = append(page.Templates, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, storeFailure("list templates", err)
	}
	return page, nil
}

// UpdateTemplate overwrites the document at the template's exact composite
// key. The store performs no version bump. With a non-nil expectedUpdatedAt
// the write is conditional on the stored updated_at, so a concurrent writer
// loses with VERSION_CONFLICT instead of silently winning.
func (s *LibSQLStore) UpdateTemplate(ctx context.Context, tpl *schema.WorkflowTemplate, expectedUpdatedAt *time.Time) error {
	def, err := json.Marshal(tpl.Definition)
	if err != nil {
		return fmt.Errorf("marshal template definition: %w", err)
	}
	tags, err := marshalTags(tpl.Tags)
	if err != nil {
		return fmt.Errorf("marshal template tags: %w", err)
	}

	query := `UPDATE workflow_templates
		 SET label = ?, description = ?, status = ?, definition = ?, tags = ?,
		     updated_at = ?, updated_by = ?
		 WHERE account = ? AND organization = ? AND id = ? AND version = ?`
	args := []any{
		tpl.Label, nullStr(tpl.Description), string(tpl.Status), string(def), tags,
		timeOrNow(tpl.UpdatedAt), tpl.UpdatedBy,
		tpl.Account, tpl.Organization, tpl.ID, tpl.Version,
	}
	if expectedUpdatedAt != nil {
		query += ` AND updated_at = ?`
		args = append(args, expectedUpdatedAt.UTC())
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storeFailure("update template", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeFailure("update template", err)
	}
	if n > 0 {
		return nil
	}

	// Zero rows: distinguish a missing key from a stale precondition.
	var exists int
	err = s.db.QueryRowContext(ctx,
		`SELECT 1 FROM workflow_templates WHERE account = ? AND organization = ? AND id = ? AND version = ?`,
		tpl.Account, tpl.Organization, tpl.ID, tpl.Version).Scan(&exists)
	if err == sql.ErrNoRows {
		return templateNotFound(tpl.Account, tpl.Organization, tpl.ID, tpl.Version)
	}
	if err != nil {
		return storeFailure("update template", err)
	}
	return schema.NewErrorf(schema.ErrCodeVersionConflict,
		"template %s was modified since it was read", tpl.Key())
}

// DeleteTemplate removes one version. Deleting a missing key is not an
// error; the affected count is zero.
func (s *LibSQLStore) DeleteTemplate(ctx context.Context, account, organization, id, version string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM workflow_templates WHERE account = ? AND organization = ? AND id = ? AND version = ?`,
		account, organization, id, version)
	if err != nil {
		return 0, storeFailure("delete template", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, storeFailure("delete template", err)
	}
	return n, nil
}

// --- Helpers ---

func appendStatusFilter(query string, args []any, statuses []schema.TemplateStatus) (string, []any) {
	if len(statuses) == 0 {
		return query, args
	}
	placeholders := make([]string, len(statuses))
	for i, st := range statuses {
		placeholders[i] = "?"
		args = append(args, string(st))
	}
	return query + ` AND status IN (` + strings.Join(placeholders, ", ") + `)`, args
}

// scanTemplate reads one template row through the given scan function, so it
// works for both sql.Row and sql.Rows.
func scanTemplate(scan func(dest ...any) error) (*schema.WorkflowTemplate, error) {
	tpl := &schema.WorkflowTemplate{}
	var (
		desc, tags sql.NullString
		defJSON    string
		status     string
	)
	err := scan(&tpl.Account, &tpl.Organization, &tpl.ID, &tpl.Version,
		&tpl.Label, &desc, &status, &defJSON, &tags,
		&tpl.CreatedAt, &tpl.UpdatedAt, &tpl.CreatedBy, &tpl.UpdatedBy)
	if err != nil {
		return nil, err
	}
	tpl.Description = desc.String
	tpl.Status = schema.TemplateStatus(status)
	if err := json.Unmarshal([]byte(defJSON), &tpl.Definition); err != nil {
		return nil, fmt.Errorf("unmarshal template definition: %w", err)
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &tpl.Tags); err != nil {
			return nil, fmt.Errorf("unmarshal template tags: %w", err)
		}
	}
	return tpl, nil
}

func marshalTags(tags []string) (any, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func templateNotFound(account, organization, id, version string) *schema.LoomError {
	key := schema.TemplateKey{Account: account, Organization: organization, ID: id, Version: version}
	if version == "" {
		key.Version = "latest"
	}
	return schema.NewErrorf(schema.ErrCodeNotFound, "template %s not found", key)
}

func storeFailure(op string, err error) *schema.LoomError {
	return schema.NewErrorf(schema.ErrCodeStore, "%s: %v", op, err).WithCause(err)
}

// isUniqueViolation matches SQLite/libSQL primary-key and unique-index
// violations.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "SQLITE_CONSTRAINT")
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}
