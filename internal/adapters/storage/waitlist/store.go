package waitlist

import (
	"context"

	domain "classbook/internal/domain/waitlist"
)

// Store defines the interface for waitlist entry persistence.
type Store interface {
	// GetByID retrieves an entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or sql.ErrNoRows if not found
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Insert persists a new waiting entry.
	// PRE: entry position came from the instance's waitlist counter
	// POST: Returns domain.ErrAlreadyWaitlisted if the member is already waiting
	Insert(ctx context.Context, e domain.Entry) error

	// Update persists status, removal reason, booking link and resolution time.
	// PRE: entry exists
	// POST: Row updated; position untouched
	Update(ctx context.Context, e domain.Entry) error

	// GetWaiting returns the member's waiting entry for an instance.
	// POST: Returns the entry or sql.ErrNoRows if none is waiting
	GetWaiting(ctx context.Context, memberID, instanceID string) (domain.Entry, error)

	// ListWaiting returns waiting entries for an instance in position order.
	ListWaiting(ctx context.Context, instanceID string) ([]domain.Entry, error)

	// ListByInstance returns every entry for an instance in position order.
	ListByInstance(ctx context.Context, instanceID string) ([]domain.Entry, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
