package projections

import (
	"context"
	"time"

	domainBooking "classbook/internal/domain/booking"
	domainClass "classbook/internal/domain/classinstance"
	domainMember "classbook/internal/domain/member"
	domainWaitlist "classbook/internal/domain/waitlist"
)

// ClassStore interface for class instance queries.
type ClassStore interface {
	GetByID(ctx context.Context, id string) (domainClass.ClassInstance, error)
	ListByLocation(ctx context.Context, locationID string, from, to time.Time) ([]domainClass.ClassInstance, error)
}

// BookingStore interface for booking queries.
type BookingStore interface {
	ListByInstance(ctx context.Context, instanceID string) ([]domainBooking.Booking, error)
}

// WaitlistStore interface for waitlist queries.
type WaitlistStore interface {
	ListWaiting(ctx context.Context, instanceID string) ([]domainWaitlist.Entry, error)
}

// MemberStore interface for member directory lookups.
type MemberStore interface {
	ListByIDs(ctx context.Context, ids []string) ([]domainMember.Member, error)
}
