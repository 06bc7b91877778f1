package rejection

import "errors"

// Code is a machine-readable reason a booking engine operation was refused.
type Code string

// Rejection codes surfaced to callers.
const (
	NoAccess                Code = "NO_ACCESS"
	ClassFull               Code = "CLASS_FULL"
	AlreadyBooked           Code = "ALREADY_BOOKED"
	ClassNotBookable        Code = "CLASS_NOT_BOOKABLE"
	ClassAlreadyStarted     Code = "CLASS_ALREADY_STARTED"
	ClassNotFound           Code = "CLASS_NOT_FOUND"
	BookingNotFound         Code = "BOOKING_NOT_FOUND"
	BookingNotActive        Code = "BOOKING_NOT_ACTIVE"
	ClassNotFull            Code = "CLASS_NOT_FULL"
	AlreadyWaitlisted       Code = "ALREADY_WAITLISTED"
	WaitlistEntryNotFound   Code = "WAITLIST_ENTRY_NOT_FOUND"
	WaitlistEntryNotActive  Code = "WAITLIST_ENTRY_NOT_ACTIVE"
	CapacityBelowEnrolled   Code = "CAPACITY_BELOW_ENROLLED"
	InvalidCapacity         Code = "INVALID_CAPACITY"
	InvalidTimeRange        Code = "INVALID_TIME_RANGE"
	RescheduleInPast        Code = "RESCHEDULE_IN_PAST"
	TooEarly                Code = "TOO_EARLY"
	AttendanceWindowClosed  Code = "ATTENDANCE_WINDOW_CLOSED"
	InvalidAttendanceStatus Code = "INVALID_ATTENDANCE_STATUS"
	EnrollmentBlocked       Code = "ENROLLMENT_BLOCKED"
	LocationNotFound        Code = "LOCATION_NOT_FOUND"
	Forbidden               Code = "FORBIDDEN"
	InvalidInput            Code = "INVALID_INPUT"
)

// Error is a policy rejection. Rejections are final and never retried.
type Error struct {
	Code    Code
	Message string
}

// New creates a rejection with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// CodeOf extracts the rejection code from err.
// PRE: none
// POST: Returns the code and true when err wraps an *Error
func CodeOf(err error) (Code, bool) {
	var r *Error
	if errors.As(err, &r) {
		return r.Code, true
	}
	return "", false
}

// Is reports whether err is a rejection carrying code.
func Is(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
