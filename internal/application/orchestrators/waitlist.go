package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"classbook/internal/adapters/storage/uow"
	"classbook/internal/domain/access"
	"classbook/internal/domain/actor"
	"classbook/internal/domain/audit"
	"classbook/internal/domain/booking"
	"classbook/internal/domain/classinstance"
	"classbook/internal/domain/waitlist"

	"go.opentelemetry.io/otel/attribute"
)

// JoinWaitlistInput carries input for the JoinWaitlist orchestrator.
type JoinWaitlistInput struct {
	Actor           actor.Actor
	MemberID        string
	ClassInstanceID string
}

// JoinWaitlistResult carries the created entry.
type JoinWaitlistResult struct {
	Entry waitlist.Entry
}

// ExecuteJoinWaitlist queues a member for a full class.
// PRE: MemberID and ClassInstanceID are non-empty
// POST: A waiting entry exists at the next position for the instance
// INVARIANT: positions are assigned from the instance's counter and never reused
func ExecuteJoinWaitlist(ctx context.Context, input JoinWaitlistInput, deps EngineDeps) (result JoinWaitlistResult, err error) {
	ctx, finish := deps.startOperation(ctx, "JoinWaitlist",
		attribute.String("classbook.member_id", input.MemberID),
		attribute.String("classbook.class_instance_id", input.ClassInstanceID))
	defer func() { finish(err) }()

	if !input.Actor.CanActFor(input.MemberID) {
		return JoinWaitlistResult{}, waitlist.ErrForbidden
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
		if _, err := r.Waitlist.GetWaiting(ctx, input.MemberID, ci.ID); err == nil {
			return waitlist.ErrAlreadyWaitlisted
		} else if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if !ci.IsFull() {
			return classinstance.ErrNotFull
		}

		position, err := r.Classes.NextWaitlistPosition(ctx, ci.ID)
		if err != nil {
			return err
		}
		entry := waitlist.New(deps.newID(), input.MemberID, ci.ID, position, now)
		if err := r.Waitlist.Insert(ctx, entry); err != nil {
			return err
		}

		fx.Notify(Notification{
			MemberID: entry.MemberID, Type: NotifyWaitlistJoined, ClassInstanceID: ci.ID,
			ClassTitle: ci.Title, StartAt: ci.StartAt, WaitlistEntryID: entry.ID, Position: position, OccurredAt: now,
		})
		fx.Audit(newAuditEvent(input.Actor, audit.CategoryWaitlist, audit.ActionJoin, ci.ID, now).
			WithMetadata(map[string]any{"entry_id": entry.ID, "member_id": entry.MemberID, "position": position}))
		result.Entry = entry
		return nil
	})
	if err != nil {
		return JoinWaitlistResult{}, err
	}

	slog.Info("waitlist_joined", "entry_id", result.Entry.ID, "member_id", input.MemberID,
		"class_instance_id", input.ClassInstanceID, "position", result.Entry.Position)
	deps.dispatch(ctx, &fx)
	return result, nil
}

// LeaveWaitlistInput carries input for the LeaveWaitlist orchestrator.
type LeaveWaitlistInput struct {
	Actor   actor.Actor
	EntryID string
}

// LeaveWaitlistResult carries the removed entry.
type LeaveWaitlistResult struct {
	Entry waitlist.Entry
}

// ExecuteLeaveWaitlist takes a member off a waitlist.
// PRE: EntryID is non-empty
// POST: Entry is removed with reason member_left; its position is never reused
func ExecuteLeaveWaitlist(ctx context.Context, input LeaveWaitlistInput, deps EngineDeps) (result LeaveWaitlistResult, err error) {
	ctx, finish := deps.startOperation(ctx, "LeaveWaitlist", attribute.String("classbook.waitlist_entry_id", input.EntryID))
	defer func() { finish(err) }()

	now := deps.now()
	var fx Effects
	err = deps.Tx.RunInTx(ctx, func(r uow.Repos) error {
		entry, err := r.Waitlist.GetByID(ctx, input.EntryID)
		if errors.Is(err, sql.ErrNoRows) {
			return waitlist.ErrNotFound
		}
		if err != nil {
			return err
		}
		if !input.Actor.CanActFor(entry.MemberID) {
			return waitlist.ErrForbidden
		}
		if err := entry.Remove(waitlist.ReasonMemberLeft, now); err != nil {
			return err
		}
		if err := r.Waitlist.Update(ctx, entry); err != nil {
			return err
		}
		fx.Notify(Notification{
			MemberID: entry.MemberID, Type: NotifyWaitlistLeft, ClassInstanceID: entry.ClassInstanceID,
			WaitlistEntryID: entry.ID, Position: entry.Position, OccurredAt: now,
		})
		fx.Audit(newAuditEvent(input.Actor, audit.CategoryWaitlist, audit.ActionLeave, entry.ClassInstanceID, now).
			WithMetadata(map[string]any{"entry_id": entry.ID, "member_id": entry.MemberID}))
		result.Entry = entry
		return nil
	})
	if err != nil {
		return LeaveWaitlistResult{}, err
	}

	slog.Info("waitlist_left", "entry_id", result.Entry.ID, "class_instance_id", result.Entry.ClassInstanceID)
	deps.dispatch(ctx, &fx)
	return result, nil
}
