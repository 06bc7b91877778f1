package classinstance

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"classbook/internal/domain/rejection"
)

// Status constants
const (
	StatusScheduled = "scheduled"
	StatusCanceled  = "canceled"
	StatusCompleted = "completed"
)

// Max length constants for user-editable fields.
const (
	MaxTitleLength  = 120
	MaxReasonLength = 200
)

// DefaultCancelCutoff applies when an instance is created without a cutoff.
const DefaultCancelCutoff = 2 * time.Hour

// Domain errors
var (
	ErrNotFound         = rejection.New(rejection.ClassNotFound, "class instance not found")
	ErrNotBookable      = rejection.New(rejection.ClassNotBookable, "class instance is not open for booking")
	ErrAlreadyStarted   = rejection.New(rejection.ClassAlreadyStarted, "class has already started")
	ErrFull             = rejection.New(rejection.ClassFull, "no seats remaining")
	ErrNotFull          = rejection.New(rejection.ClassNotFull, "class still has open seats")
	ErrInvalidCapacity  = rejection.New(rejection.InvalidCapacity, "capacity must be at least 1")
	ErrBelowEnrolled    = rejection.New(rejection.CapacityBelowEnrolled, "capacity cannot be reduced below current bookings")
	ErrInvalidTimeRange = rejection.New(rejection.InvalidTimeRange, "end must be after start")
	ErrRescheduleInPast = rejection.New(rejection.RescheduleInPast, "new start must be in the future")
	ErrEmptyLocationID  = errors.New("location ID cannot be empty")
	ErrEmptyTitle       = errors.New("title cannot be empty")
	ErrTitleTooLong     = errors.New("title cannot exceed 120 characters")
	ErrMissingSlot      = errors.New("generated instance must record its schedule slot")
)

// ClassInstance is one scheduled occurrence of a class.
// BookedCount counts seats held by non-canceled bookings.
// WaitlistSeq is the last waitlist position handed out for this instance.
// SlotStartAt is the schedule slot a generated instance was created for. It
// never changes, so a rescheduled instance still occupies its original slot.
type ClassInstance struct {
	ID           string
	LocationID   string
	ScheduleID   string // empty for instances created by hand
	SlotStartAt  time.Time
	Title        string
	StartAt      time.Time
	EndAt        time.Time
	Capacity     int
	BookedCount  int
	WaitlistSeq  int
	Status       string
	CancelCutoff time.Duration
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Validate checks if the ClassInstance has valid data.
// PRE: ClassInstance struct is populated
// POST: Returns nil if valid, error otherwise
func (c *ClassInstance) Validate() error {
	if strings.TrimSpace(c.LocationID) == "" {
		return ErrEmptyLocationID
	}
	if strings.TrimSpace(c.Title) == "" {
		return ErrEmptyTitle
	}
	if len(c.Title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	if err := ValidateCapacity(c.Capacity); err != nil {
		return err
	}
	if err := ValidateTimeRange(c.StartAt, c.EndAt); err != nil {
		return err
	}
	if c.CancelCutoff < 0 {
		return errors.New("cancel cutoff cannot be negative")
	}
	if c.ScheduleID != "" && c.SlotStartAt.IsZero() {
		return ErrMissingSlot
	}
	return nil
}

// ValidateCapacity checks the capacity floor of one seat.
func ValidateCapacity(capacity int) error {
	if capacity < 1 {
		return ErrInvalidCapacity
	}
	return nil
}

// ValidateTimeRange checks that a time window is non-empty and ordered.
func ValidateTimeRange(start, end time.Time) error {
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return ErrInvalidTimeRange
	}
	return nil
}

// IsScheduled returns true while the instance accepts bookings and promotions.
func (c ClassInstance) IsScheduled() bool {
	return c.Status == StatusScheduled
}

// IsCanceled returns true once the instance was administratively canceled.
func (c ClassInstance) IsCanceled() bool {
	return c.Status == StatusCanceled
}

// IsCompleted returns true once the instance has ended and been closed out.
func (c ClassInstance) IsCompleted() bool {
	return c.Status == StatusCompleted
}

// HasEnded reports whether the class end time is at or before now.
func (c ClassInstance) HasEnded(now time.Time) bool {
	return !now.Before(c.EndAt)
}

// HasStarted reports whether the class start time is at or before now.
func (c ClassInstance) HasStarted(now time.Time) bool {
	return !now.Before(c.StartAt)
}

// RemainingSeats returns capacity minus occupied seats, never negative.
func (c ClassInstance) RemainingSeats() int {
	if r := c.Capacity - c.BookedCount; r > 0 {
		return r
	}
	return 0
}

// IsFull returns true when every seat is held.
func (c ClassInstance) IsFull() bool {
	return c.BookedCount >= c.Capacity
}

// CheckBookable returns the rejection that prevents a new seat claim, if any.
// PRE: now is the current time
// POST: Returns nil when the instance is scheduled and has not started
func (c ClassInstance) CheckBookable(now time.Time) error {
	if !c.IsScheduled() {
		return ErrNotBookable
	}
	if c.HasStarted(now) {
		return ErrAlreadyStarted
	}
	return nil
}

// IsLateCancel reports whether a cancellation at now falls inside the cutoff window.
// INVARIANT: a zero cutoff never produces a late cancellation
func (c ClassInstance) IsLateCancel(now time.Time) bool {
	if c.CancelCutoff <= 0 {
		return false
	}
	return !now.Before(c.StartAt.Add(-c.CancelCutoff))
}

// Reschedule moves the instance to a new time window.
// PRE: instance is scheduled
// POST: StartAt/EndAt updated; SlotStartAt and bookings untouched
func (c *ClassInstance) Reschedule(start, end, now time.Time) error {
	if err := ValidateTimeRange(start, end); err != nil {
		return err
	}
	if !start.After(now) {
		return ErrRescheduleInPast
	}
	if !c.IsScheduled() {
		return ErrNotBookable
	}
	c.StartAt = start
	c.EndAt = end
	c.UpdatedAt = now
	return nil
}

// Cancel marks the instance canceled.
// PRE: none
// POST: Status is canceled; returns false if it already was
func (c *ClassInstance) Cancel(reason string, now time.Time) bool {
	if c.IsCanceled() {
		return false
	}
	c.Status = StatusCanceled
	c.CancelReason = strings.TrimSpace(reason)
	if len(c.CancelReason) > MaxReasonLength {
		c.CancelReason = truncateUTF8(c.CancelReason, MaxReasonLength)
	}
	c.UpdatedAt = now
	return true
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
// PRE: len(s) > n
func truncateUTF8(s string, n int) string {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
