package access

import (
	"context"
	"time"

	domain "classbook/internal/domain/access"
)

// Store defines the interface for the billing-derived access tables.
// The engine only reads them; the Save methods serve seeding and tests.
type Store interface {
	// GetLocation retrieves a location by its ID.
	// POST: Returns the location or sql.ErrNoRows if not found
	GetLocation(ctx context.Context, id string) (domain.Location, error)

	// ListActiveMemberships returns the member's active memberships.
	ListActiveMemberships(ctx context.Context, memberID string) ([]domain.Membership, error)

	// GetState returns the billing state for a member at a location.
	// The exact location row wins over the member-wide "*" row.
	// POST: Returns StateInactive when no row exists
	GetState(ctx context.Context, memberID, locationID string) (string, error)

	SaveLocation(ctx context.Context, loc domain.Location) error
	SaveMembership(ctx context.Context, m domain.Membership) error
	SaveState(ctx context.Context, s domain.State, now time.Time) error
}

// Ensure SQLiteStore implements Store interface.
var _ Store = (*SQLiteStore)(nil)
