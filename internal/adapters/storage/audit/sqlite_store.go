package audit

import (
	"context"
	"database/sql"

	"classbook/internal/adapters/storage"
	domain "classbook/internal/domain/audit"
)

// SQLiteStore implements the audit Store interface using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new audit event store.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// Save persists an audit event.
// PRE: event has an ID
// POST: Event is persisted
func (s *SQLiteStore) Save(ctx context.Context, event domain.Event) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO audit_event (id, timestamp, category, action, severity, actor_id, actor_role, resource_id, resource_type, description, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, storage.FormatTime(event.Timestamp), string(event.Category), string(event.Action),
		string(event.Severity), event.ActorID, event.ActorRole,
		event.ResourceID, event.ResourceType, event.Description, event.Metadata)
	return err
}

// List returns audit events with optional filtering.
// PRE: limit > 0
// POST: Returns events ordered by timestamp desc
func (s *SQLiteStore) List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error) {
	query := `SELECT id, timestamp, category, action, severity, actor_id, actor_role, resource_id, resource_type, description, metadata FROM audit_event WHERE 1=1`
	args := []interface{}{}

	if filter.Category != nil {
		query += " AND category = ?"
		args = append(args, string(*filter.Category))
	}
	if filter.Action != nil {
		query += " AND action = ?"
		args = append(args, string(*filter.Action))
	}
	if filter.ActorID != nil {
		query += " AND actor_id = ?"
		args = append(args, *filter.ActorID)
	}
	if filter.ResourceID != nil {
		query += " AND resource_id = ?"
		args = append(args, *filter.ResourceID)
	}
	if !filter.From.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, storage.FormatTime(filter.From))
	}
	if !filter.To.IsZero() {
		query += " AND timestamp <= ?"
		args = append(args, storage.FormatTime(filter.To))
	}

	query += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// scanEvents scans multiple rows into a slice of Events.
func scanEvents(rows *sql.Rows) ([]domain.Event, error) {
	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		var timestamp string
		if err := rows.Scan(&e.ID, &timestamp, &e.Category, &e.Action, &e.Severity, &e.ActorID, &e.ActorRole,
			&e.ResourceID, &e.ResourceType, &e.Description, &e.Metadata); err != nil {
			return nil, err
		}
		e.Timestamp = storage.ParseTime(timestamp)
		events = append(events, e)
	}
	return events, rows.Err()
}
