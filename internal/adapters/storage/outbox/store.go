package outbox

import (
	"context"
	"time"

	domain "classbook/internal/domain/outbox"
)

// Store defines the interface for notification outbox persistence.
type Store interface {
	// GetByID retrieves an outbox entry by its ID.
	// PRE: id is non-empty
	// POST: Returns the entry or sql.ErrNoRows if not found
	GetByID(ctx context.Context, id string) (domain.Entry, error)

	// Save persists an outbox entry.
	// PRE: entry has been validated
	// POST: Entry is persisted (insert or update)
	Save(ctx context.Context, e domain.Entry) error

	// ListPending returns entries still awaiting delivery (pending or retrying).
	// PRE: limit > 0
	// POST: Returns up to limit entries, oldest first
	ListPending(ctx context.Context, limit int) ([]domain.Entry, error)

	// ListFailed returns entries that exhausted their attempts.
	// PRE: limit > 0
	// POST: Returns up to limit entries, most recently attempted first
	ListFailed(ctx context.Context, limit int) ([]domain.Entry, error)

	// CountByStatus returns the number of entries per status.
	CountByStatus(ctx context.Context) (map[string]int, error)

	// PurgeDone deletes delivered entries created before cutoff.
	// POST: Returns the number of rows removed
	PurgeDone(ctx context.Context, cutoff time.Time) (int64, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
