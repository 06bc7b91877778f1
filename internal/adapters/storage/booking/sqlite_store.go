package booking

import (
	"context"

	"classbook/internal/adapters/storage"
	domain "classbook/internal/domain/booking"
)

const selectColumns = `SELECT id, member_id, class_instance_id, status, attendance_status, late_cancel,
	cancel_reason, source, created_at, canceled_at, attendance_at FROM booking`

// SQLiteStore implements the booking Store interface using SQLite.
type SQLiteStore struct {
	db storage.Querier
}

// NewSQLiteStore creates a new booking store bound to a pool or transaction.
func NewSQLiteStore(db storage.Querier) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// GetByID retrieves a booking by its ID.
// PRE: id is non-empty
// POST: Returns the booking or sql.ErrNoRows if not found
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (domain.Booking, error) {
	return scanBooking(s.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id))
}

// Insert persists a new booking.
// PRE: booking is in status booked
// POST: Returns domain.ErrAlreadyBooked on a duplicate active booking
func (s *SQLiteStore) Insert(ctx context.Context, b domain.Booking) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO booking (id, member_id, class_instance_id, status, attendance_status, late_cancel,
			cancel_reason, source, created_at, canceled_at, attendance_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.MemberID, b.ClassInstanceID, b.Status, b.AttendanceStatus, storage.BoolToInt(b.LateCancel),
		b.CancelReason, b.Source, storage.FormatTime(b.CreatedAt), storage.FormatTime(b.CanceledAt),
		storage.FormatTime(b.AttendanceAt))
	if storage.IsUniqueViolation(err) {
		return domain.ErrAlreadyBooked
	}
	return err
}

// Update persists status, attendance and cancellation fields.
// PRE: booking exists
// POST: Row updated
func (s *SQLiteStore) Update(ctx context.Context, b domain.Booking) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE booking SET status = ?, attendance_status = ?, late_cancel = ?, cancel_reason = ?,
			canceled_at = ?, attendance_at = ?
		 WHERE id = ?`,
		b.Status, b.AttendanceStatus, storage.BoolToInt(b.LateCancel), b.CancelReason,
		storage.FormatTime(b.CanceledAt), storage.FormatTime(b.AttendanceAt), b.ID)
	return err
}

// GetActive returns the member's booked booking for an instance.
// PRE: memberID and instanceID are non-empty
// POST: Returns the booking or sql.ErrNoRows if none is active
func (s *SQLiteStore) GetActive(ctx context.Context, memberID, instanceID string) (domain.Booking, error) {
	return scanBooking(s.db.QueryRowContext(ctx,
		selectColumns+` WHERE member_id = ? AND class_instance_id = ? AND status = ?`,
		memberID, instanceID, domain.StatusBooked))
}

// ListByInstance returns every booking for an instance, oldest first.
func (s *SQLiteStore) ListByInstance(ctx context.Context, instanceID string) ([]domain.Booking, error) {
	return s.list(ctx, selectColumns+` WHERE class_instance_id = ? ORDER BY created_at ASC, id ASC`, instanceID)
}

// ListActiveByInstance returns booked bookings for an instance, oldest first.
func (s *SQLiteStore) ListActiveByInstance(ctx context.Context, instanceID string) ([]domain.Booking, error) {
	return s.list(ctx, selectColumns+` WHERE class_instance_id = ? AND status = ? ORDER BY created_at ASC, id ASC`,
		instanceID, domain.StatusBooked)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...any) ([]domain.Booking, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanBooking scans a single row into a Booking.
func scanBooking(row scanner) (domain.Booking, error) {
	var b domain.Booking
	var lateCancel int
	var createdAt, canceledAt, attendanceAt string
	err := row.Scan(&b.ID, &b.MemberID, &b.ClassInstanceID, &b.Status, &b.AttendanceStatus, &lateCancel,
		&b.CancelReason, &b.Source, &createdAt, &canceledAt, &attendanceAt)
	if err != nil {
		return domain.Booking{}, err
	}
	b.LateCancel = lateCancel == 1
	b.CreatedAt = storage.ParseTime(createdAt)
	b.CanceledAt = storage.ParseTime(canceledAt)
	b.AttendanceAt = storage.ParseTime(attendanceAt)
	return b, nil
}
