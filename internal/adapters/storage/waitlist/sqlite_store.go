package waitlist

import (
	"context"

	"classbook/internal/adapters/storage"
	domain "classbook/internal/domain/waitlist"
)

const selectColumns = `SELECT id, member_id, class_instance_id, position, status, removed_reason, booking_id,
	joined_at, resolved_at FROM waitlist_entry`

// SQLiteStore implements the waitlist Store interface using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new waitlist store bound to a pool or transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves an entry by its ID.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Entry, error) {
	return scanEntry(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
}

// Insert persists a new waiting entry.
// PRE: entry position came from the instance's waitlist counter
// POST: Returns domain.ErrAlreadyWaitlisted on a duplicate waiting entry
func (s *SQLiteStore) Insert(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO waitlist_entry (id, member_id, class_instance_id, position, status, removed_reason,
			booking_id, joined_at, resolved_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.MemberID, e.ClassInstanceID, e.Position, e.Status, e.RemovedReason, e.BookingID,
		storage.FormatTime(e.JoinedAt), storage.FormatTime(e.ResolvedAt))
	if storage.IsUniqueViolation(err) {
		return domain.ErrAlreadyWaitlisted
	}
	return err
}

// Update persists status, removal reason, booking link and resolution time.
func (s *SQLiteStore) Update(ctx context.Context, e domain.Entry) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE waitlist_entry SET status = ?, removed_reason = ?, booking_id = ?, resolved_at = ? WHERE id = ?`,
		e.Status, e.RemovedReason, e.BookingID, storage.FormatTime(e.ResolvedAt), e.ID)
	return err
}

// GetWaiting returns the member's waiting entry for an instance.
func (s *SQLiteStore) GetWaiting(ctx context.Context, memberID, instanceID string) (domain.Entry, error) {
	return scanEntry(s.db.QueryRowContext(ctx,
		selectColumns+` WHERE member_id = ? AND class_instance_id = ? AND status = ?`,
		memberID, instanceID, domain.StatusWaiting))
}

// ListWaiting returns waiting entries for an instance in position order.
func (s *SQLiteStore) ListWaiting(ctx context.Context, instanceID string) ([]domain.Entry, error) {
	return s.list(ctx, selectColumns+` WHERE class_instance_id = ? AND status = ? ORDER BY position ASC`,
		instanceID, domain.StatusWaiting)
}

// ListByInstance returns every entry for an instance in position order.
func (s *SQLiteStore) ListByInstance(ctx context.Context, instanceID string) ([]domain.Entry, error) {
	return s.list(ctx, selectColumns+` WHERE class_instance_id = ? ORDER BY position ASC`, instanceID)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Entry, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (domain.Entry, error) {
	var e domain.Entry
	var joinedAt, resolvedAt string
	err := row.Scan(&e.ID, &e.MemberID, &e.ClassInstanceID, &e.Position, &e.Status, &e.RemovedReason,
		&e.BookingID, &joinedAt, &resolvedAt)
	if err != nil {
		return domain.Entry{}, err
	}
	e.JoinedAt = storage.ParseTime(joinedAt)
	e.ResolvedAt = storage.ParseTime(resolvedAt)
	return e, nil
}
