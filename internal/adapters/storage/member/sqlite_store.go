package member

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"classbook/internal/adapters/storage"
	domain "classbook/internal/domain/member"
)

// SQLiteStore implements the member Store using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new MemberStore.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a Member by its ID.
// PRE: id is non-empty
// POST: Returns the entity or an error wrapping sql.ErrNoRows if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Member, error) {
	var entity domain.Member
	err := s.db.QueryRowContext(ctx, "SELECT id, name, email, status FROM member WHERE id = ?", id).
		Scan(&entity.ID, &entity.Name, &entity.Email, &entity.Status)
	if err == sql.ErrNoRows {
		return domain.Member{}, fmt.Errorf("member not found: %w", err)
	}
	return entity, err
}

// Save persists a Member to the database.
// PRE: entity has been validated
// POST: Entity is persisted (insert or update)
func (s *SQLiteStore) Save(ctx context.Context, entity domain.Member) error {
	fields := []string{"id", "name", "email", "status"}
	placeholders := []string{"?", "?", "?", "?"}
	updates := []string{"name=excluded.name", "email=excluded.email", "status=excluded.status"}

	query := fmt.Sprintf(
		"INSERT INTO member (%s) VALUES (%s) ON CONFLICT(id) DO UPDATE SET %s",
		strings.Join(fields, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
	)
	_, err := s.db.ExecContext(ctx, query, entity.ID, entity.Name, entity.Email, entity.Status)
	return err
}

// ListByIDs retrieves the Members with the given IDs, ordered by name.
// POST: Unknown IDs are skipped
func (s *SQLiteStore) ListByIDs(ctx context.Context, ids []string) ([]domain.Member, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, status FROM member WHERE id IN ("+placeholders+") ORDER BY name", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []domain.Member
	for rows.Next() {
		var entity domain.Member
		if err := rows.Scan(&entity.ID, &entity.Name, &entity.Email, &entity.Status); err != nil {
			return nil, err
		}
		results = append(results, entity)
	}
	return results, rows.Err()
}
