package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"classbook/internal/adapters/storage/uow"
	"classbook/internal/domain/access"
	"classbook/internal/domain/actor"
	"classbook/internal/domain/audit"
	"classbook/internal/domain/booking"
	"classbook/internal/domain/classinstance"
	"classbook/internal/domain/waitlist"

	"go.opentelemetry.io/otel/attribute"
)

// BookClassInput carries input for the BookClass orchestrator.
type BookClassInput struct {
	Actor           actor.Actor
	MemberID        string
	ClassInstanceID string
}

// BookClassResult carries the created booking.
type BookClassResult struct {
	Booking booking.Booking
}

// ExecuteBookClass reserves one seat for a member.
// PRE: MemberID and ClassInstanceID are non-empty
// POST: A booked Booking exists and booked_count was incremented, or a rejection is returned
// INVARIANT: booked_count never exceeds capacity; the seat claim and insert commit together
func ExecuteBookClass(ctx context.Context, input BookClassInput, deps EngineDeps) (result BookClassResult, err error) {
	ctx, finish := deps.startOperation(ctx, "BookClass",
		attribute.String("classbook.member_id", input.MemberID),
		attribute.String("classbook.class_instance_id", input.ClassInstanceID))
	defer func() { finish(err) }()

	if !input.Actor.CanActFor(input.MemberID) {
		return BookClassResult{}, booking.ErrForbidden
	}

	now := deps.now()
	var fx Effects
	err = deps.Tx.RunInTx(ctx, func(r uow.Repos) error {
		ci, err := loadInstance(ctx, r, input.ClassInstanceID)
		if err != nil {
			return err
		}
		if err := ci.CheckBookable(now); err != nil {
			return err
		}

		loc, err := instanceLocation(ctx, r.Access, ci)
		if err != nil {
			return err
		}
		decision, err := resolveAccessAt(ctx, r.Access, input.MemberID, loc)
		if err != nil {
			return err
		}
		if !decision.HasAccess {
			return access.ErrNoAccess
		}

		if _, err := r.Bookings.GetActive(ctx, input.MemberID, ci.ID); err == nil {
			return booking.ErrAlreadyBooked
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}

		claimed, err := r.Classes.ClaimSeat(ctx, ci.ID, now)
		if err != nil {
			return err
		}
		if !claimed {
			return classinstance.ErrFull
		}

		b := booking.New(deps.newID(), input.MemberID, ci.ID, booking.SourceDirect, now)
		if err := r.Bookings.Insert(ctx, b); err != nil {
			return err
		}

		if err := closeWaitingEntry(ctx, r, input.MemberID, ci.ID, now, &fx, input.Actor); err != nil {
			return err
		}

		fx.Notify(Notification{
			MemberID: b.MemberID, Type: NotifyBookingConfirmed, ClassInstanceID: ci.ID,
			ClassTitle: ci.Title, StartAt: ci.StartAt, BookingID: b.ID, OccurredAt: now,
		})
		fx.Audit(newAuditEvent(input.Actor, audit.CategoryBooking, audit.ActionBook, ci.ID, now).
			WithMetadata(map[string]any{"booking_id": b.ID, "member_id": b.MemberID}))
		result.Booking = b
		return nil
	})
	if err != nil {
		return BookClassResult{}, err
	}

	slog.Info("booking_created", "booking_id", result.Booking.ID, "member_id", input.MemberID, "class_instance_id", input.ClassInstanceID)
	deps.dispatch(ctx, &fx)
	return result, nil
}

// closeWaitingEntry removes the member's waiting entry once they hold a direct booking.
func closeWaitingEntry(ctx context.Context, r uow.Repos, memberID, instanceID string, now time.Time, fx *Effects, a actor.Actor) error {
	entry, err := r.Waitlist.GetWaiting(ctx, memberID, instanceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := entry.Remove(waitlist.ReasonBookedDirectly, now); err != nil {
		return err
	}
	if err := r.Waitlist.Update(ctx, entry); err != nil {
		return err
	}
	fx.Audit(newAuditEvent(a, audit.CategoryWaitlist, audit.ActionRemove, instanceID, now).
		WithMetadata(map[string]any{"entry_id": entry.ID, "member_id": memberID, "reason": waitlist.ReasonBookedDirectly}))
	return nil
}
