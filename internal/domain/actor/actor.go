package actor

// Role constants
const (
	RoleAdmin      = "admin"
	RoleStaff      = "staff"
	RoleInstructor = "instructor"
	RoleMember     = "member"
	RoleSystem     = "system"
)

// ValidRoles contains all valid role values.
var ValidRoles = []string{RoleAdmin, RoleStaff, RoleInstructor, RoleMember, RoleSystem}

// SystemID identifies unattended callers such as the promotion sweep.
const SystemID = "system"

// Actor is the authenticated caller of an engine operation.
type Actor struct {
	ID   string
	Role string
}

// System returns the actor used by background jobs.
func System() Actor {
	return Actor{ID: SystemID, Role: RoleSystem}
}

// IsStaff returns true for roles that may act on other members' bookings.
// INVARIANT: Role field is not mutated
func (a Actor) IsStaff() bool {
	switch a.Role {
	case RoleAdmin, RoleStaff, RoleInstructor, RoleSystem:
		return true
	}
	return false
}

// IsAdmin returns true for administrative roles.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleStaff || a.Role == RoleSystem
}

// CanActFor returns true if the actor may operate on memberID's behalf.
func (a Actor) CanActFor(memberID string) bool {
	return a.IsStaff() || (a.ID != "" && a.ID == memberID)
}

// IsValidRole reports whether role is a known role.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}
