package member

import (
	"errors"
	"strings"
)

// Max length constants for user-editable fields.
const (
	MaxNameLength = 100
)

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
	StatusArchived = "archived"
)

// Domain errors
var (
	ErrEmptyName    = errors.New("member name cannot be empty")
	ErrNameTooLong  = errors.New("member name cannot exceed 100 characters")
	ErrInvalidEmail = errors.New("member email must be valid")
	ErrInvalidState = errors.New("status must be 'active', 'inactive', or 'archived'")
)

// Member is a directory entry used to address notifications.
// Eligibility to book lives in the access domain, not here.
type Member struct {
	ID     string
	Name   string
	Email  string
	Status string
}

// Validate checks if the Member has valid data.
// PRE: Member struct is initialized
// POST: Returns error if validation fails, nil otherwise
// INVARIANT: Email must contain '@', Name must not be empty
func (m *Member) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return ErrEmptyName
	}
	if len(m.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if !strings.Contains(m.Email, "@") {
		return ErrInvalidEmail
	}
	if m.Status != StatusActive && m.Status != StatusInactive && m.Status != StatusArchived {
		return ErrInvalidState
	}
	return nil
}

// Reachable returns true if the member should receive email.
// INVARIANT: Status field is not mutated
func (m *Member) Reachable() bool {
	return m.Status != StatusArchived && strings.Contains(m.Email, "@")
}

// FirstName returns the first word of the member's name for greetings.
func (m *Member) FirstName() string {
	name := strings.TrimSpace(m.Name)
	if i := strings.IndexByte(name, ' '); i > 0 {
		return name[:i]
	}
	return name
}
