package capacity

import (
	"errors"
	"strings"

	"classbook/internal/domain/rejection"
)

// Verdict values
const (
	VerdictNoLimit    = "NO_LIMIT"
	VerdictOK         = "OK"
	VerdictNearLimit  = "NEAR_LIMIT"
	VerdictAtCapacity = "AT_CAPACITY"
	VerdictBlockNew   = "BLOCK_NEW"
)

// Domain errors
var (
	ErrEnrollmentBlocked = rejection.New(rejection.EnrollmentBlocked, "membership capacity reached for this location")
	ErrEmptyLocationID   = errors.New("location ID cannot be empty")
	ErrNegativeLimit     = errors.New("limits cannot be negative")
	ErrSoftAboveMax      = errors.New("soft threshold cannot exceed max active members")
)

// Limit configures membership capacity for a location, or for a plan at a
// location when PlanID is set. Nil limits are unconfigured.
type Limit struct {
	LocationID         string
	PlanID             string
	MaxActiveMembers   *int
	SoftLimitThreshold *int
	HardLimitEnforced  bool
}

// Validate checks if the Limit has valid data.
// PRE: Limit struct is populated
// POST: Returns nil if valid, error otherwise
func (l *Limit) Validate() error {
	if strings.TrimSpace(l.LocationID) == "" {
		return ErrEmptyLocationID
	}
	if (l.MaxActiveMembers != nil && *l.MaxActiveMembers < 0) || (l.SoftLimitThreshold != nil && *l.SoftLimitThreshold < 0) {
		return ErrNegativeLimit
	}
	if l.MaxActiveMembers != nil && l.SoftLimitThreshold != nil && *l.SoftLimitThreshold > *l.MaxActiveMembers {
		return ErrSoftAboveMax
	}
	return nil
}

// Evaluation is a capacity verdict with the figures it was derived from.
type Evaluation struct {
	Status            string
	ActiveCount       int
	MaxAllowed        *int
	SoftThreshold     *int
	HardLimitEnforced bool
}

// Evaluate derives the verdict for activeCount under limit.
// PRE: limit is nil when nothing is configured
// POST: Returns NO_LIMIT, OK, NEAR_LIMIT, AT_CAPACITY or BLOCK_NEW
// INVARIANT: pure function; no I/O
func Evaluate(limit *Limit, activeCount int) Evaluation {
	ev := Evaluation{Status: VerdictNoLimit, ActiveCount: activeCount}
	if limit == nil || (limit.MaxActiveMembers == nil && limit.SoftLimitThreshold == nil) {
		return ev
	}
	ev.MaxAllowed = limit.MaxActiveMembers
	ev.SoftThreshold = limit.SoftLimitThreshold
	ev.HardLimitEnforced = limit.HardLimitEnforced

	switch {
	case limit.MaxActiveMembers != nil && activeCount >= *limit.MaxActiveMembers && limit.HardLimitEnforced:
		ev.Status = VerdictBlockNew
	case limit.MaxActiveMembers != nil && activeCount >= *limit.MaxActiveMembers:
		ev.Status = VerdictAtCapacity
	case limit.SoftLimitThreshold != nil && activeCount >= *limit.SoftLimitThreshold:
		ev.Status = VerdictNearLimit
	default:
		ev.Status = VerdictOK
	}
	return ev
}

// Blocks reports whether the verdict rejects a new enrollment.
func (e Evaluation) Blocks() bool {
	return e.Status == VerdictBlockNew || (e.Status == VerdictAtCapacity && e.HardLimitEnforced)
}

// Warns reports whether the verdict passes with an advisory warning.
func (e Evaluation) Warns() bool {
	return !e.Blocks() && (e.Status == VerdictNearLimit || e.Status == VerdictAtCapacity)
}
