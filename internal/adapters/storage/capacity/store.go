package capacity

import (
	"context"

	domain "classbook/internal/domain/capacity"
)

// Store defines the interface for membership capacity limits.
type Store interface {
	// GetLimit returns the limit for a location, or for a plan at a location when planID is set.
	// POST: Returns nil, nil when nothing is configured
	GetLimit(ctx context.Context, locationID, planID string) (*domain.Limit, error)

	// SaveLimit upserts a limit.
	// PRE: limit has been validated
	SaveLimit(ctx context.Context, l domain.Limit) error

	// CountActiveMembers counts active memberships homed at the location,
	// narrowed to a plan when planID is set.
	CountActiveMembers(ctx context.Context, locationID, planID string) (int, error)
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
