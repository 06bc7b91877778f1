package booking

import (
	"time"

	"classbook/internal/domain/classinstance"
	"classbook/internal/domain/rejection"
)

// Status constants
const (
	StatusBooked   = "booked"
	StatusCanceled = "canceled"
	StatusAttended = "attended"
	StatusNoShow   = "no_show"
)

// Attendance status constants
const (
	AttendanceNone      = "none"
	AttendanceCheckedIn = "checked_in"
	AttendanceNoShow    = "no_show"
	AttendanceExcused   = "excused"
)

// Cancel reason constants
const (
	ReasonMemberCanceled = "member_canceled"
	ReasonStaffCanceled  = "staff_canceled"
	ReasonClassCanceled  = "class_canceled"
)

// Source constants
const (
	SourceDirect   = "direct"
	SourceWaitlist = "waitlist"
)

// Default attendance window around the class time.
const (
	DefaultEarlyWindow = 30 * time.Minute
	DefaultLateWindow  = 24 * time.Hour
)

// Domain errors
var (
	ErrNotFound                = rejection.New(rejection.BookingNotFound, "booking not found")
	ErrNotActive               = rejection.New(rejection.BookingNotActive, "booking is not active")
	ErrAlreadyBooked           = rejection.New(rejection.AlreadyBooked, "member already holds an active booking for this class")
	ErrTooEarly                = rejection.New(rejection.TooEarly, "attendance cannot be marked yet")
	ErrWindowClosed            = rejection.New(rejection.AttendanceWindowClosed, "attendance window has closed")
	ErrInvalidAttendanceStatus = rejection.New(rejection.InvalidAttendanceStatus, "attendance status must be checked_in, no_show or excused")
	ErrForbidden               = rejection.New(rejection.Forbidden, "actor may not modify this booking")
)

// Booking is one member's claim on one seat of a class instance.
type Booking struct {
	ID               string
	MemberID         string
	ClassInstanceID  string
	Status           string
	AttendanceStatus string
	LateCancel       bool
	CancelReason     string
	Source           string
	CreatedAt        time.Time
	CanceledAt       time.Time
	AttendanceAt     time.Time
}

// New creates a booked Booking.
// PRE: id, memberID and instanceID are non-empty
// POST: Returns a booking in status booked with no attendance
func New(id, memberID, instanceID, source string, now time.Time) Booking {
	return Booking{
		ID:               id,
		MemberID:         memberID,
		ClassInstanceID:  instanceID,
		Status:           StatusBooked,
		AttendanceStatus: AttendanceNone,
		Source:           source,
		CreatedAt:        now,
	}
}

// IsActive returns true while the booking is in status booked.
func (b Booking) IsActive() bool {
	return b.Status == StatusBooked
}

// Cancel transitions booked to canceled.
// PRE: booking is active
// POST: Status canceled, reason and lateness recorded
func (b *Booking) Cancel(reason string, late bool, now time.Time) error {
	tr, ok := TransitionFor(b.Status, EventCancel)
	if !ok {
		return ErrNotActive
	}
	b.Status = tr.To
	b.CancelReason = reason
	b.LateCancel = late
	b.CanceledAt = now
	return nil
}

// MarkAttendance transitions booked to attended or no_show.
// PRE: booking is active; status is checked_in, no_show or excused
// POST: Status and AttendanceStatus updated
func (b *Booking) MarkAttendance(status string, now time.Time) error {
	if !IsValidAttendanceStatus(status) {
		return ErrInvalidAttendanceStatus
	}
	tr, ok := TransitionFor(b.Status, Event(status))
	if !ok {
		return ErrNotActive
	}
	b.Status = tr.To
	b.AttendanceStatus = status
	b.AttendanceAt = now
	return nil
}

// AttendanceWindow bounds when staff may mark attendance for a class.
type AttendanceWindow struct {
	Early time.Duration // before start
	Late  time.Duration // after end
}

// DefaultAttendanceWindow returns the operator defaults.
func DefaultAttendanceWindow() AttendanceWindow {
	return AttendanceWindow{Early: DefaultEarlyWindow, Late: DefaultLateWindow}
}

// Check returns the rejection for marking attendance at now, if any.
// PRE: instance is the booking's class instance
// POST: Returns nil inside [start-Early, end+Late]
func (w AttendanceWindow) Check(ci classinstance.ClassInstance, now time.Time) error {
	if ci.IsCanceled() {
		return ErrNotActive
	}
	if now.Before(ci.StartAt.Add(-w.Early)) {
		return ErrTooEarly
	}
	if now.After(ci.EndAt.Add(w.Late)) {
		return ErrWindowClosed
	}
	return nil
}

// IsValidAttendanceStatus reports whether status can be recorded by staff.
func IsValidAttendanceStatus(status string) bool {
	return status == AttendanceCheckedIn || status == AttendanceNoShow || status == AttendanceExcused
}
