package audit

import (
	"context"
	"time"

	domain "classbook/internal/domain/audit"
)

// Store defines the interface for audit event persistence.
// The log is append-only.
type Store interface {
	// Save persists an audit event.
	// PRE: event has an ID
	// POST: Event is persisted
	Save(ctx context.Context, event domain.Event) error

	// List returns audit events with optional filtering.
	// PRE: limit > 0
	// POST: Returns events ordered by timestamp desc
	List(ctx context.Context, filter Filter, limit int) ([]domain.Event, error)
}

// Filter defines query parameters for listing audit events.
type Filter struct {
	Category   *domain.Category
	Action     *domain.Action
	ActorID    *string
	ResourceID *string
	From       time.Time
	To         time.Time
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
