package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AppendTemplateEvent appends a change-log entry with a monotonically
// increasing per-template sequence. The sequence read and the insert run in
// one write transaction so concurrent appenders cannot interleave.
func (s *LibSQLStore) AppendTemplateEvent(ctx context.Context, event *TemplateEvent) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// In WAL mode BeginTx may start a deferred transaction; force write-lock
	// acquisition with a write-intent statement before reading the sequence.
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_version (version, name) VALUES (-1, '_lock_noop')`); err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM schema_version WHERE version = -1`); err != nil {
		return fmt.Errorf("cleanup write lock: %w", err)
	}

	var seq int64
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) + 1 FROM template_events
		 WHERE account = ? AND organization = ? AND template_id = ?`,
		event.Account, event.Organization, event.TemplateID,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("get next sequence: %w", err)
	}
	event.Sequence = seq

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO template_events (account, organization, template_id, version, event_type, actor, payload, sequence, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.Account, event.Organization, event.TemplateID, event.Version,
		event.Type, nullStr(event.Actor), nullStr(event.Payload), seq, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert template event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit template event: %w", err)
	}
	return nil
}

// ListTemplateEvents returns change-log entries with sequence > since,
// ordered by sequence ascending.
func (s *LibSQLStore) ListTemplateEvents(ctx context.Context, account, organization, templateID string, since int64) ([]*TemplateEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT account, organization, template_id, version, event_type, actor, payload, sequence, timestamp
		 FROM template_events
		 WHERE account = ? AND organization = ? AND template_id = ? AND sequence > ?
		 ORDER BY sequence ASC`,
		account, organization, templateID, since)
	if err != nil {
		return nil, storeFailure("list template events", err)
	}
	defer rows.Close()

	var events []*TemplateEvent
	for rows.Next() {
		e := &TemplateEvent{}
		var actor, payload sql.NullString
		if err := rows.Scan(&e.Account, &e.Organization, &e.TemplateID, &e.Version,
			&e.Type, &actor, &payload, &e.Sequence, &e.Timestamp); err != nil {
			return nil, storeFailure("scan template event", err)
		}
		e.Actor = actor.String
		e.Payload = payload.String
		events = append(events, e)
	}
	return events, rows.Err()
}
