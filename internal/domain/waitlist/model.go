package waitlist

import (
	"time"

	"classbook/internal/domain/rejection"
)

// Status constants
const (
	StatusWaiting  = "waiting"
	StatusPromoted = "promoted"
	StatusRemoved  = "removed"
)

// Removal reason constants
const (
	ReasonMemberLeft     = "member_left"
	ReasonAccessLapsed   = "access_lapsed"
	ReasonClassCanceled  = "class_canceled"
	ReasonBookedDirectly = "booked_directly"
)

// Domain errors
var (
	ErrNotFound          = rejection.New(rejection.WaitlistEntryNotFound, "waitlist entry not found")
	ErrNotActive         = rejection.New(rejection.WaitlistEntryNotActive, "waitlist entry is no longer waiting")
	ErrAlreadyWaitlisted = rejection.New(rejection.AlreadyWaitlisted, "member is already on the waitlist for this class")
	ErrForbidden         = rejection.New(rejection.Forbidden, "actor may not modify this waitlist entry")
)

// Entry is one member's place in the queue for a full class instance.
// Position is assigned once at join and never reused for the instance.
type Entry struct {
	ID              string
	MemberID        string
	ClassInstanceID string
	Position        int
	Status          string
	RemovedReason   string
	BookingID       string // set on promotion
	JoinedAt        time.Time
	ResolvedAt      time.Time
}

// New creates a waiting entry at the given position.
// PRE: position >= 1
// POST: Returns an entry in status waiting
func New(id, memberID, instanceID string, position int, now time.Time) Entry {
	return Entry{
		ID:              id,
		MemberID:        memberID,
		ClassInstanceID: instanceID,
		Position:        position,
		Status:          StatusWaiting,
		JoinedAt:        now,
	}
}

// IsWaiting returns true while the entry is still queued.
func (e Entry) IsWaiting() bool {
	return e.Status == StatusWaiting
}

// Promote marks the entry promoted to the given booking.
// PRE: entry is waiting
// POST: Status promoted, BookingID set
func (e *Entry) Promote(bookingID string, now time.Time) error {
	if !e.IsWaiting() {
		return ErrNotActive
	}
	e.Status = StatusPromoted
	e.BookingID = bookingID
	e.ResolvedAt = now
	return nil
}

// Remove takes the entry out of the queue without a booking.
// PRE: entry is waiting
// POST: Status removed with reason
func (e *Entry) Remove(reason string, now time.Time) error {
	if !e.IsWaiting() {
		return ErrNotActive
	}
	e.Status = StatusRemoved
	e.RemovedReason = reason
	e.ResolvedAt = now
	return nil
}
