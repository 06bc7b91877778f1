package schedule

import (
	"context"

	domain "classbook/internal/domain/schedule"
)

// Store persists recurring Schedule rules.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Schedule, error)
	Save(ctx context.Context, value domain.Schedule) error
	ListActive(ctx context.Context) ([]domain.Schedule, error)
	ListByLocation(ctx context.Context, locationID string) ([]domain.Schedule, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
