package classinstance

import (
	"context"
	"time"

	domain "classbook/internal/domain/classinstance"
)

// Store defines the interface for class instance persistence.
type Store interface {
	// GetByID retrieves a class instance by its ID.
	// PRE: id is non-empty
	// POST: Returns the instance or sql.ErrNoRows if not found
	GetByID(ctx context.Context, id string) (domain.ClassInstance, error)

	// Insert persists a new class instance.
	// PRE: instance has been validated
	// POST: Row inserted with its current counters
	Insert(ctx context.Context, c domain.ClassInstance) error

	// Update persists descriptive fields: title, time window, status, cutoff.
	// Seat and waitlist counters and the generated slot are never written by Update.
	// PRE: instance exists
	// POST: Row updated
	Update(ctx context.Context, c domain.ClassInstance) error

	// ClaimSeat increments booked_count only while a seat is free and the
	// instance is scheduled.
	// PRE: id is non-empty
	// POST: Returns true if a seat was taken, false if none was available
	ClaimSeat(ctx context.Context, id string, now time.Time) (bool, error)

	// ReleaseSeat decrements booked_count, never below zero.
	// PRE: a seat was previously claimed for id
	// POST: booked_count decremented by one
	ReleaseSeat(ctx context.Context, id string, now time.Time) error

	// ResetSeats sets booked_count to zero (class cancellation).
	// PRE: id is non-empty
	// POST: booked_count is zero
	ResetSeats(ctx context.Context, id string, now time.Time) error

	// SetCapacity changes capacity only if it stays at or above booked_count.
	// PRE: capacity >= 1
	// POST: Returns true if applied, false if it would drop below booked_count
	SetCapacity(ctx context.Context, id string, capacity int, now time.Time) (bool, error)

	// NextWaitlistPosition increments and returns the instance's waitlist counter.
	// PRE: id exists
	// POST: Returns a position never handed out before for this instance
	NextWaitlistPosition(ctx context.Context, id string) (int, error)

	// ExistsForSlot reports whether a schedule already produced an instance for
	// the slot starting at slotStart. Rescheduled instances still claim their slot.
	ExistsForSlot(ctx context.Context, scheduleID string, slotStart time.Time) (bool, error)

	// CompleteEnded marks scheduled instances that ended at or before now as completed.
	// PRE: none
	// POST: Returns the number of instances completed
	CompleteEnded(ctx context.Context, now time.Time) (int64, error)

	// ListPromotable returns scheduled future instances with free seats and waiting entries.
	// PRE: limit > 0
	// POST: Returns instance IDs ordered by start time
	ListPromotable(ctx context.Context, now time.Time, limit int) ([]string, error)

	// ListByLocation returns instances at a location starting in [from, to).
	ListByLocation(ctx context.Context, locationID string, from, to time.Time) ([]domain.ClassInstance, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
