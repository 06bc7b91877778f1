package classinstance

import (
	"context"
	"time"

	"classbook/internal/adapters/storage"
	domain "classbook/internal/domain/classinstance"
)

const selectColumns = `SELECT id, location_id, schedule_id, slot_start_at, title, start_at, end_at, capacity, booked_count,
	waitlist_seq, status, cancel_cutoff_seconds, cancel_reason, created_at, updated_at FROM class_instance`

// SQLiteStore implements the class instance Store interface using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new class instance store bound to a pool or transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a class instance by its ID.
// PRE: id is non-empty
// POST: Returns the instance or sql.ErrNoRows if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.ClassInstance, error) {
	return scanInstance(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
}

// Insert persists a new class instance.
// PRE: instance has been validated
// POST: Row inserted with its current counters
func (s *SQLiteStore) Insert(ctx context.Context, c domain.ClassInstance) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO class_instance (id, location_id, schedule_id, slot_start_at, title, start_at, end_at, capacity, booked_count,
			waitlist_seq, status, cancel_cutoff_seconds, cancel_reason, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.LocationID, c.ScheduleID, storage.FormatTime(c.SlotStartAt), c.Title, storage.FormatTime(c.StartAt), storage.FormatTime(c.EndAt),
		c.Capacity, c.BookedCount, c.WaitlistSeq, c.Status, int64(c.CancelCutoff/time.Second), c.CancelReason,
		storage.FormatTime(c.CreatedAt), storage.FormatTime(c.UpdatedAt))
	return err
}

// Update persists descriptive fields: title, time window, status, cutoff.
// PRE: instance exists
// POST: Row updated; counters and slot_start_at untouched
func (s *SQLiteStore) Update(ctx context.Context, c domain.ClassInstance) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE class_instance SET title = ?, start_at = ?, end_at = ?, status = ?,
			cancel_cutoff_seconds = ?, cancel_reason = ?, updated_at = ?
		 WHERE id = ?`,
		c.Title, storage.FormatTime(c.StartAt), storage.FormatTime(c.EndAt), c.Status,
		int64(c.CancelCutoff/time.Second), c.CancelReason, storage.FormatTime(c.UpdatedAt), c.ID)
	return err
}

// ClaimSeat increments booked_count only while a seat is free.
// PRE: id is non-empty
// POST: Returns true if a seat was taken
func (s *SQLiteStore) ClaimSeat(ctx context.Context, id string, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE class_instance SET booked_count = booked_count + 1, updated_at = ?
		 WHERE id = ? AND status = ? AND booked_count < capacity`,
		storage.FormatTime(now), id, domain.StatusScheduled)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// ReleaseSeat decrements booked_count, never below zero.
// PRE: a seat was previously claimed for id
// POST: booked_count decremented by one
func (s *SQLiteStore) ReleaseSeat(ctx context.Context, id string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE class_instance SET booked_count = booked_count - 1, updated_at = ?
		 WHERE id = ? AND booked_count > 0`,
		storage.FormatTime(now), id)
	return err
}

// ResetSeats sets booked_count to zero.
// PRE: id is non-empty
// POST: booked_count is zero
func (s *SQLiteStore) ResetSeats(ctx context.Context, id string, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE class_instance SET booked_count = 0, updated_at = ? WHERE id = ?`,
		storage.FormatTime(now), id)
	return err
}

// SetCapacity changes capacity only if it stays at or above booked_count.
// PRE: capacity >= 1
// POST: Returns true if applied
func (s *SQLiteStore) SetCapacity(ctx context.Context, id string, capacity int, now time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE class_instance SET capacity = ?, updated_at = ? WHERE id = ? AND booked_count <= ?`,
		capacity, storage.FormatTime(now), id, capacity)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// NextWaitlistPosition increments and returns the instance's waitlist counter.
// PRE: id exists
// POST: Returns a position never handed out before for this instance
func (s *SQLiteStore) NextWaitlistPosition(ctx context.Context, id string) (int, error) {
	var pos int
	err := s.db.QueryRowContext(ctx,
		`UPDATE class_instance SET waitlist_seq = waitlist_seq + 1 WHERE id = ? RETURNING waitlist_seq`,
		id).Scan(&pos)
	return pos, err
}

// ExistsForSlot reports whether a schedule already produced an instance for the
// slot starting at slotStart, wherever that instance has since been moved.
func (s *SQLiteStore) ExistsForSlot(ctx context.Context, scheduleID string, slotStart time.Time) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM class_instance WHERE schedule_id = ? AND slot_start_at = ?`,
		scheduleID, storage.FormatTime(slotStart)).Scan(&n)
	return n > 0, err
}

// CompleteEnded marks scheduled instances that ended at or before now as completed.
// PRE: none
// POST: Returns the number of instances completed
func (s *SQLiteStore) CompleteEnded(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE class_instance SET status = ?, updated_at = ? WHERE status = ? AND end_at <= ?`,
		domain.StatusCompleted, storage.FormatTime(now), domain.StatusScheduled, storage.FormatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListPromotable returns scheduled future instances with free seats and waiting entries.
// PRE: limit > 0
// POST: Returns instance IDs ordered by start time
func (s *SQLiteStore) ListPromotable(ctx context.Context, now time.Time, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ci.id FROM class_instance ci
		 WHERE ci.status = ? AND ci.start_at > ? AND ci.booked_count < ci.capacity
		   AND EXISTS (SELECT 1 FROM waitlist_entry w WHERE w.class_instance_id = ci.id AND w.status = 'waiting')
		 ORDER BY ci.start_at ASC LIMIT ?`,
		domain.StatusScheduled, storage.FormatTime(now), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListByLocation returns instances at a location starting in [from, to).
func (s *SQLiteStore) ListByLocation(ctx context.Context, locationID string, from, to time.Time) ([]domain.ClassInstance, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE location_id = ? AND start_at >= ? AND start_at < ? ORDER BY start_at ASC`,
		locationID, storage.FormatTime(from), storage.FormatTime(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ClassInstance
	for rows.Next() {
		c, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanInstance scans a single row into a ClassInstance.
func scanInstance(row scanner) (domain.ClassInstance, error) {
	var c domain.ClassInstance
	var slotStartAt, startAt, endAt, createdAt, updatedAt string
	var cutoffSeconds int64
	err := row.Scan(&c.ID, &c.LocationID, &c.ScheduleID, &slotStartAt, &c.Title, &startAt, &endAt, &c.Capacity, &c.BookedCount,
		&c.WaitlistSeq, &c.Status, &cutoffSeconds, &c.CancelReason, &createdAt, &updatedAt)
	if err != nil {
		return domain.ClassInstance{}, err
	}
	c.SlotStartAt = storage.ParseTime(slotStartAt)
	c.StartAt = storage.ParseTime(startAt)
	c.EndAt = storage.ParseTime(endAt)
	c.CreatedAt = storage.ParseTime(createdAt)
	c.UpdatedAt = storage.ParseTime(updatedAt)
	c.CancelCutoff = time.Duration(cutoffSeconds) * time.Second
	return c, nil
}
