package schedule

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Day of week constants
const (
	Monday    = "monday"
	Tuesday   = "tuesday"
	Wednesday = "wednesday"
	Thursday  = "thursday"
	Friday    = "friday"
	Saturday  = "saturday"
	Sunday    = "sunday"
)

// ValidDays contains all valid day values.
var ValidDays = []string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

var weekdays = map[string]time.Weekday{
	Sunday:    time.Sunday,
	Monday:    time.Monday,
	Tuesday:   time.Tuesday,
	Wednesday: time.Wednesday,
	Thursday:  time.Thursday,
	Friday:    time.Friday,
	Saturday:  time.Saturday,
}

// Domain errors
var (
	ErrEmptyLocationID = errors.New("location ID cannot be empty")
	ErrEmptyTitle      = errors.New("title cannot be empty")
	ErrInvalidDay      = errors.New("day must be a valid day of the week")
	ErrEmptyStartTime  = errors.New("start time cannot be empty")
	ErrEmptyEndTime    = errors.New("end time cannot be empty")
	ErrInvalidCapacity = errors.New("capacity must be at least 1")
)

// Schedule is a recurring weekly class slot at a location.
// Class instances are expanded from active schedules ahead of time.
type Schedule struct {
	ID                  string
	LocationID          string
	Title               string
	Day                 string // monday, tuesday, etc.
	StartTime           string // HH:MM format
	EndTime             string // HH:MM format
	Capacity            int
	CancelCutoffMinutes int
	Active              bool
}

// Occurrence is one concrete time window produced by a schedule.
type Occurrence struct {
	StartAt time.Time
	EndAt   time.Time
}

// Validate checks if the Schedule has valid data.
// PRE: Schedule struct is populated
// POST: Returns nil if valid, error otherwise
func (s *Schedule) Validate() error {
	if strings.TrimSpace(s.LocationID) == "" {
		return ErrEmptyLocationID
	}
	if strings.TrimSpace(s.Title) == "" {
		return ErrEmptyTitle
	}
	if !isValidDay(s.Day) {
		return ErrInvalidDay
	}
	if strings.TrimSpace(s.StartTime) == "" {
		return ErrEmptyStartTime
	}
	if strings.TrimSpace(s.EndTime) == "" {
		return ErrEmptyEndTime
	}
	if s.Capacity < 1 {
		return ErrInvalidCapacity
	}
	if _, err := s.Duration(); err != nil {
		return err
	}
	return nil
}

// Duration returns the session length.
// PRE: StartTime and EndTime are in HH:MM format
// POST: Returns a positive duration, or error if times can't be parsed
func (s *Schedule) Duration() (time.Duration, error) {
	start, err := time.Parse("15:04", s.StartTime)
	if err != nil {
		return 0, fmt.Errorf("invalid start time %q: %w", s.StartTime, err)
	}
	end, err := time.Parse("15:04", s.EndTime)
	if err != nil {
		return 0, fmt.Errorf("invalid end time %q: %w", s.EndTime, err)
	}
	dur := end.Sub(start)
	if dur <= 0 {
		dur += 24 * time.Hour // handle overnight classes
	}
	return dur, nil
}

// CancelCutoff returns the late-cancel window for generated instances.
func (s *Schedule) CancelCutoff() time.Duration {
	return time.Duration(s.CancelCutoffMinutes) * time.Minute
}

// Occurrences expands the schedule into every slot starting in [from, to).
// PRE: schedule is valid; loc is the wall-clock zone of the location
// POST: Returns occurrences in chronological order
func (s *Schedule) Occurrences(from, to time.Time, loc *time.Location) ([]Occurrence, error) {
	if loc == nil {
		loc = time.UTC
	}
	dur, err := s.Duration()
	if err != nil {
		return nil, err
	}
	clock, _ := time.Parse("15:04", s.StartTime)
	wd, ok := weekdays[s.Day]
	if !ok {
		return nil, ErrInvalidDay
	}

	local := from.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	for day.Weekday() != wd {
		day = day.AddDate(0, 0, 1)
	}

	var out []Occurrence
	for ; ; day = day.AddDate(0, 0, 7) {
		start := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, loc)
		if !start.Before(to) {
			break
		}
		if start.Before(from) {
			continue
		}
		out = append(out, Occurrence{StartAt: start.UTC(), EndAt: start.Add(dur).UTC()})
	}
	return out, nil
}

func isValidDay(day string) bool {
	for _, d := range ValidDays {
		if d == day {
			return true
		}
	}
	return false
}
