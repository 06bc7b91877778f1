package access

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"classbook/internal/adapters/storage"
	domain "classbook/internal/domain/access"
)

// SQLiteStore implements the access Store interface using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new access store bound to a pool or transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetLocation retrieves a location by its ID.
func (s *SQLiteStore) GetLocation(ctx context.Context, id string) (domain.Location, error) {
	var loc domain.Location
	err := s.db.QueryRowContext(ctx, `SELECT id, name, region FROM location WHERE id = ?`, id).
		Scan(&loc.ID, &loc.Name, &loc.Region)
	return loc, err
}

// ListActiveMemberships returns the member's active memberships ordered by ID.
func (s *SQLiteStore) ListActiveMemberships(ctx context.Context, memberID string) ([]domain.Membership, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, member_id, plan_id, scope, home_location_id, region, status
		 FROM membership WHERE member_id = ? AND status = ? ORDER BY id ASC`,
		memberID, domain.MembershipActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Membership
	for rows.Next() {
		var m domain.Membership
		if err := rows.Scan(&m.ID, &m.MemberID, &m.PlanID, &m.Scope, &m.HomeLocationID, &m.Region, &m.Status); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// GetState returns the billing state for a member at a location.
// PRE: memberID and locationID are non-empty
// POST: Exact location row first, then "*", else StateInactive
func (s *SQLiteStore) GetState(ctx context.Context, memberID, locationID string) (string, error) {
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT status FROM access_state
		 WHERE member_id = ? AND location_id IN (?, ?)
		 ORDER BY CASE WHEN location_id = ? THEN 1 ELSE 0 END
		 LIMIT 1`,
		memberID, locationID, domain.AnyLocation, domain.AnyLocation).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.StateInactive, nil
	}
	return status, err
}

// SaveLocation upserts a location.
func (s *SQLiteStore) SaveLocation(ctx context.Context, loc domain.Location) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO location (id, name, region) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, region = excluded.region`,
		loc.ID, loc.Name, loc.Region)
	return err
}

// SaveMembership upserts a membership.
// PRE: membership has been validated
func (s *SQLiteStore) SaveMembership(ctx context.Context, m domain.Membership) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO membership (id, member_id, plan_id, scope, home_location_id, region, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET plan_id = excluded.plan_id, scope = excluded.scope,
			home_location_id = excluded.home_location_id, region = excluded.region, status = excluded.status`,
		m.ID, m.MemberID, m.PlanID, m.Scope, m.HomeLocationID, m.Region, m.Status)
	return err
}

// SaveState upserts the billing state for a member at a location or "*".
func (s *SQLiteStore) SaveState(ctx context.Context, st domain.State, now time.Time) error {
	if !domain.IsValidState(st.Status) {
		return domain.ErrInvalidState
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO access_state (member_id, location_id, status, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(member_id, location_id) DO UPDATE SET status = excluded.status, updated_at = excluded.updated_at`,
		st.MemberID, st.LocationID, st.Status, storage.FormatTime(now))
	return err
}
