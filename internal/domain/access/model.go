package access

import (
	"errors"
	"strings"

	"classbook/internal/domain/rejection"
)

// Billing-derived access state values.
const (
	StateActive     = "active"
	StateGrace      = "grace"
	StateRestricted = "restricted"
	StateInactive   = "inactive"
)

// Membership scope values.
const (
	ScopeSingleLocation = "single_location"
	ScopeRegional       = "regional"
	ScopeAllLocations   = "all_locations"
)

// Membership status values.
const (
	MembershipActive = "active"
	MembershipEnded  = "ended"
)

// Resolved access status values.
const (
	StatusActiveLike = "ActiveLike"
	StatusRestricted = "Restricted"
	StatusInactive   = "Inactive"
)

// AnyLocation is the location key of a member-wide access state row.
const AnyLocation = "*"

// Domain errors
var (
	ErrNoAccess         = rejection.New(rejection.NoAccess, "member does not have access to this location")
	ErrLocationNotFound = rejection.New(rejection.LocationNotFound, "location not found")
	ErrInvalidScope     = errors.New("scope must be single_location, regional or all_locations")
	ErrInvalidState     = errors.New("state must be active, grace, restricted or inactive")
	ErrEmptyMemberID    = errors.New("member ID cannot be empty")
)

// Location is a gym site.
type Location struct {
	ID     string
	Name   string
	Region string
}

// Membership is a member's subscription to a plan.
type Membership struct {
	ID             string
	MemberID       string
	PlanID         string
	Scope          string
	HomeLocationID string
	Region         string
	Status         string
}

// Validate checks if the Membership has valid data.
// PRE: Membership struct is populated
// POST: Returns nil if valid, error otherwise
func (m *Membership) Validate() error {
	if strings.TrimSpace(m.MemberID) == "" {
		return ErrEmptyMemberID
	}
	switch m.Scope {
	case ScopeSingleLocation, ScopeRegional, ScopeAllLocations:
	default:
		return ErrInvalidScope
	}
	if m.Status != MembershipActive && m.Status != MembershipEnded {
		return errors.New("membership status must be active or ended")
	}
	return nil
}

// Covers reports whether the membership scope includes loc.
func (m Membership) Covers(loc Location) bool {
	switch m.Scope {
	case ScopeAllLocations:
		return true
	case ScopeRegional:
		return m.Region != "" && m.Region == loc.Region
	case ScopeSingleLocation:
		return m.HomeLocationID == loc.ID
	}
	return false
}

// State is the billing pipeline's view of one member at one location.
type State struct {
	MemberID   string
	LocationID string // AnyLocation for member-wide rows
	Status     string
}

// Decision is the result of resolving access for a member at a location.
type Decision struct {
	HasAccess bool
	Status    string // ActiveLike, Restricted or Inactive
	State     string // raw billing state
	InScope   bool
}

// IsValidState reports whether s is a known billing state.
func IsValidState(s string) bool {
	switch s {
	case StateActive, StateGrace, StateRestricted, StateInactive:
		return true
	}
	return false
}

// Resolve combines a membership with the billing state for a location.
// PRE: membership is nil when the member has no active membership
// POST: HasAccess is false whenever the status is Restricted or Inactive
// INVARIANT: pure function; no I/O
func Resolve(membership *Membership, loc Location, state string) Decision {
	d := Decision{State: state}
	switch state {
	case StateActive, StateGrace:
		d.Status = StatusActiveLike
	case StateRestricted:
		d.Status = StatusRestricted
	default:
		d.Status = StatusInactive
		d.State = StateInactive
	}
	if membership == nil || membership.Status != MembershipActive {
		d.Status = StatusInactive
		return d
	}
	d.InScope = membership.Covers(loc)
	d.HasAccess = d.Status == StatusActiveLike && d.InScope
	return d
}

// SelectMembership picks the membership that governs access at loc.
// PRE: memberships belong to one member
// POST: Returns the first active membership covering loc, else the first active one, else nil
func SelectMembership(memberships []Membership, loc Location) *Membership {
	var fallback *Membership
	for i := range memberships {
		m := &memberships[i]
		if m.Status != MembershipActive {
			continue
		}
		if m.Covers(loc) {
			return m
		}
		if fallback == nil {
			fallback = m
		}
	}
	return fallback
}
