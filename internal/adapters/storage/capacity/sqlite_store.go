package capacity

import (
	"context"
	"database/sql"
	"errors"

	"classbook/internal/adapters/storage"
	domain "classbook/internal/domain/capacity"
)

// SQLiteStore implements the capacity Store interface using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new capacity store.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetLimit returns the configured limit or nil.
func (s *SQLiteStore) GetLimit(ctx context.Context, locationID, planID string) (*domain.Limit, error) {
	var l domain.Limit
	var maxActive, soft sql.NullInt64
	var hard int
	err := s.db.QueryRowContext(ctx,
		`SELECT location_id, plan_id, max_active_members, soft_limit_threshold, hard_limit_enforced
		 FROM capacity_limit WHERE location_id = ? AND plan_id = ?`,
		locationID, planID).Scan(&l.LocationID, &l.PlanID, &maxActive, &soft, &hard)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.MaxActiveMembers = intPtr(maxActive)
	l.SoftLimitThreshold = intPtr(soft)
	l.HardLimitEnforced = hard == 1
	return &l, nil
}

// SaveLimit upserts a limit keyed by (location, plan).
func (s *SQLiteStore) SaveLimit(ctx context.Context, l domain.Limit) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO capacity_limit (location_id, plan_id, max_active_members, soft_limit_threshold, hard_limit_enforced)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(location_id, plan_id) DO UPDATE SET
			max_active_members = excluded.max_active_members,
			soft_limit_threshold = excluded.soft_limit_threshold,
			hard_limit_enforced = excluded.hard_limit_enforced`,
		l.LocationID, l.PlanID, nullInt(l.MaxActiveMembers), nullInt(l.SoftLimitThreshold),
		storage.BoolToInt(l.HardLimitEnforced))
	return err
}

// CountActiveMembers counts active memberships homed at the location.
func (s *SQLiteStore) CountActiveMembers(ctx context.Context, locationID, planID string) (int, error) {
	query := `SELECT COUNT(DISTINCT member_id) FROM membership WHERE home_location_id = ? AND status = 'active'`
	args := []any{locationID}
	if planID != "" {
		query += ` AND plan_id = ?`
		args = append(args, planID)
	}
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}
