package orchestrators

import (
	"context"
	"database/sql"
	"errors"

	"classbook/internal/domain/access"
)

// ResolveAccessInput carries input for the ResolveAccess orchestrator.
type ResolveAccessInput struct {
	MemberID   string
	LocationID string
}

// ResolveAccessDeps holds dependencies for ResolveAccess.
type ResolveAccessDeps struct {
	Access accessReader
}

// ExecuteResolveAccess reports whether a member may book classes at a location.
// PRE: MemberID and LocationID are non-empty
// POST: Returns the decision; an unknown location is LOCATION_NOT_FOUND
// INVARIANT: read only
func ExecuteResolveAccess(ctx context.Context, input ResolveAccessInput, deps ResolveAccessDeps) (access.Decision, error) {
	loc, err := deps.Access.GetLocation(ctx, input.LocationID)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Decision{}, access.ErrLocationNotFound
	}
	if err != nil {
		return access.Decision{}, err
	}
	return resolveAccessAt(ctx, deps.Access, input.MemberID, loc)
}
