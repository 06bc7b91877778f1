package projections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	domainBooking "classbook/internal/domain/booking"
	domainClass "classbook/internal/domain/classinstance"
	domainWaitlist "classbook/internal/domain/waitlist"
)

// GetClassRosterQuery carries the class instance to project.
type GetClassRosterQuery struct {
	ClassInstanceID string
	IncludeCanceled bool
}

// GetClassRosterDeps holds dependencies for the projection.
type GetClassRosterDeps struct {
	ClassStore    ClassStore
	BookingStore  BookingStore
	WaitlistStore WaitlistStore
	MemberStore   MemberStore // optional; names are left blank without it
}

// RosterBooking is one booking row on the roster.
type RosterBooking struct {
	Booking    domainBooking.Booking
	MemberName string
}

// RosterWaitlistEntry is one waiting member, in queue order.
type RosterWaitlistEntry struct {
	Entry      domainWaitlist.Entry
	MemberName string
}

// ClassRoster is the staff view of a class instance.
type ClassRoster struct {
	Instance       domainClass.ClassInstance
	Bookings       []RosterBooking
	Waitlist       []RosterWaitlistEntry
	SeatsRemaining int
	AttendedCount  int
}

// QueryGetClassRoster builds the roster for one class instance.
// PRE: ClassInstanceID is non-empty
// POST: Bookings in creation order; waitlist in position order
func QueryGetClassRoster(ctx context.Context, query GetClassRosterQuery, deps GetClassRosterDeps) (ClassRoster, error) {
	ci, err := deps.ClassStore.GetByID(ctx, query.ClassInstanceID)
	if errors.Is(err, sql.ErrNoRows) {
		return ClassRoster{}, domainClass.ErrNotFound
	}
	if err != nil {
		return ClassRoster{}, fmt.Errorf("load class instance: %w", err)
	}

	bookings, err := deps.BookingStore.ListByInstance(ctx, ci.ID)
	if err != nil {
		return ClassRoster{}, fmt.Errorf("list bookings: %w", err)
	}
	entries, err := deps.WaitlistStore.ListWaiting(ctx, ci.ID)
	if err != nil {
		return ClassRoster{}, fmt.Errorf("list waitlist: %w", err)
	}

	ids := make([]string, 0, len(bookings)+len(entries))
	for _, b := range bookings {
		ids = append(ids, b.MemberID)
	}
	for _, e := range entries {
		ids = append(ids, e.MemberID)
	}
	names, err := memberNames(ctx, deps.MemberStore, ids)
	if err != nil {
		return ClassRoster{}, err
	}

	roster := ClassRoster{Instance: ci, SeatsRemaining: ci.RemainingSeats()}
	for _, b := range bookings {
		if b.Status == domainBooking.StatusCanceled && !query.IncludeCanceled {
			continue
		}
		if b.Status == domainBooking.StatusAttended {
			roster.AttendedCount++
		}
		roster.Bookings = append(roster.Bookings, RosterBooking{Booking: b, MemberName: names[b.MemberID]})
	}
	for _, e := range entries {
		roster.Waitlist = append(roster.Waitlist, RosterWaitlistEntry{Entry: e, MemberName: names[e.MemberID]})
	}
	return roster, nil
}

func memberNames(ctx context.Context, store MemberStore, ids []string) (map[string]string, error) {
	names := make(map[string]string, len(ids))
	if store == nil || len(ids) == 0 {
		return names, nil
	}
	members, err := store.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	for _, m := range members {
		names[m.ID] = m.Name
	}
	return names, nil
}
