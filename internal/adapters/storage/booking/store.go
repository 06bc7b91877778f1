package booking

import (
	"context"

	domain "classbook/internal/domain/booking"
)

// Store defines the interface for booking persistence.
type Store interface {
	// GetByID retrieves a booking by its ID.
	// PRE: id is non-empty
	// POST: Returns the booking or sql.ErrNoRows if not found
	GetByID(ctx context.Context, id string) (domain.Booking, error)

	// Insert persists a new booking.
	// PRE: booking is in status booked
	// POST: Returns domain.ErrAlreadyBooked if the member already holds one for the instance
	Insert(ctx context.Context, b domain.Booking) error

	// Update persists status, attendance and cancellation fields.
	// PRE: booking exists
	// POST: Row updated
	Update(ctx context.Context, b domain.Booking) error

	// GetActive returns the member's booked booking for an instance.
	// PRE: memberID and instanceID are non-empty
	// POST: Returns the booking or sql.ErrNoRows if none is active
	GetActive(ctx context.Context, memberID, instanceID string) (domain.Booking, error)

	// ListByInstance returns every booking for an instance, oldest first.
	ListByInstance(ctx context.Context, instanceID string) ([]domain.Booking, error)

	// ListActiveByInstance returns booked bookings for an instance, oldest first.
	ListActiveByInstance(ctx context.Context, instanceID string) ([]domain.Booking, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
