package member

import (
	"context"

	domain "classbook/internal/domain/member"
)

// Store persists the member directory.
type Store interface {
	GetByID(ctx context.Context, id string) (domain.Member, error)
	Save(ctx context.Context, value domain.Member) error
	ListByIDs(ctx context.Context, ids []string) ([]domain.Member, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
