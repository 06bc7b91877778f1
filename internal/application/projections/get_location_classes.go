package projections

import (
	"context"
	"fmt"
	"time"

	domainClass "classbook/internal/domain/classinstance"
)

// DefaultClassListDays is the window listed when no end is given.
const DefaultClassListDays = 7

// GetLocationClassesQuery selects classes at a location starting in [From, To).
type GetLocationClassesQuery struct {
	LocationID      string
	From            time.Time
	To              time.Time // zero selects From + DefaultClassListDays
	IncludeCanceled bool
}

// GetLocationClassesDeps holds dependencies for the projection.
type GetLocationClassesDeps struct {
	ClassStore ClassStore
}

// ClassSummary is one class on the timetable.
type ClassSummary struct {
	Instance       domainClass.ClassInstance
	SeatsRemaining int
	Full           bool
}

// QueryGetLocationClasses lists the timetable for a location.
// PRE: LocationID is non-empty
// POST: Classes ordered by start time
func QueryGetLocationClasses(ctx context.Context, query GetLocationClassesQuery, deps GetLocationClassesDeps) ([]ClassSummary, error) {
	to := query.To
	if to.IsZero() {
		to = query.From.AddDate(0, 0, DefaultClassListDays)
	}
	classes, err := deps.ClassStore.ListByLocation(ctx, query.LocationID, query.From, to)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	out := make([]ClassSummary, 0, len(classes))
	for _, c := range classes {
		if c.IsCanceled() && !query.IncludeCanceled {
			continue
		}
		out = append(out, ClassSummary{Instance: c, SeatsRemaining: c.RemainingSeats(), Full: c.IsFull()})
	}
	return out, nil
}
