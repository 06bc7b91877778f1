package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"classbook/internal/adapters/storage/uow"
	"classbook/internal/domain/actor"
	"classbook/internal/domain/audit"
	"classbook/internal/domain/booking"
	"classbook/internal/domain/waitlist"

	"go.opentelemetry.io/otel/attribute"
)

// PromotionResult describes one run of the single-seat promotion procedure.
type PromotionResult struct {
	Promoted  bool
	MemberID  string
	BookingID string
	EntryID   string
	Removed   []string // waitlist entry IDs removed because access lapsed
}

// PromoteFromWaitlistInput carries input for the PromoteFromWaitlist orchestrator.
type PromoteFromWaitlistInput struct {
	Actor           actor.Actor
	ClassInstanceID string
}

// ExecutePromoteFromWaitlist runs the single-seat promotion procedure once.
// PRE: Actor is staff or the system
// POST: At most one waiting entry was promoted into a booking
// INVARIANT: re-running against an already filled seat is a no-op
func ExecutePromoteFromWaitlist(ctx context.Context, input PromoteFromWaitlistInput, deps EngineDeps) (PromotionResult, error) {
	if !input.Actor.IsStaff() {
		return PromotionResult{}, waitlist.ErrForbidden
	}
	return promoteOne(ctx, input.ClassInstanceID, deps)
}

// promoteAll repeats promoteOne until no seat or no eligible entry remains.
// Each seat is claimed with the same guarded update as a direct booking, so
// concurrent callers cannot promote more members than there are free seats.
func promoteAll(ctx context.Context, instanceID string, deps EngineDeps) ([]PromotionResult, error) {
	var results []PromotionResult
	for {
		res, err := promoteOne(ctx, instanceID, deps)
		if err != nil {
			return results, err
		}
		if res.Promoted || len(res.Removed) > 0 {
			results = append(results, res)
		}
		if !res.Promoted {
			return results, nil
		}
	}
}

// promoteOne fills at most one free seat from the head of the waitlist.
// PRE: instanceID is non-empty
// POST: Lapsed entries ahead of the first eligible one are removed; the first
// eligible entry is promoted if a seat could be claimed
// INVARIANT: FIFO; an eligible entry is never skipped in favour of a later one
func promoteOne(ctx context.Context, instanceID string, deps EngineDeps) (result PromotionResult, err error) {
	ctx, finish := deps.startOperation(ctx, "PromoteFromWaitlist", attribute.String("classbook.class_instance_id", instanceID))
	defer func() { finish(err) }()

	now := deps.now()
	system := actor.System()
	var fx Effects
	err = deps.Tx.RunInTx(ctx, func(r uow.Repos) error {
		ci, err := loadInstance(ctx, r, instanceID)
		if err != nil {
			return err
		}
		if !ci.IsScheduled() || ci.HasStarted(now) || ci.RemainingSeats() <= 0 {
			return nil
		}
		loc, err := instanceLocation(ctx, r.Access, ci)
		if err != nil {
			return err
		}
		entries, err := r.Waitlist.ListWaiting(ctx, ci.ID)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			decision, err := resolveAccessAt(ctx, r.Access, entry.MemberID, loc)
			if err != nil {
				return err
			}
			if !decision.HasAccess {
				if err := entry.Remove(waitlist.ReasonAccessLapsed, now); err != nil {
					return err
				}
				if err := r.Waitlist.Update(ctx, entry); err != nil {
					return err
				}
				fx.Notify(Notification{
					MemberID: entry.MemberID, Type: NotifyWaitlistRemoved, ClassInstanceID: ci.ID,
					ClassTitle: ci.Title, StartAt: ci.StartAt, WaitlistEntryID: entry.ID, OccurredAt: now,
					Data: map[string]string{"reason": waitlist.ReasonAccessLapsed},
				})
				fx.Audit(newAuditEvent(system, audit.CategoryWaitlist, audit.ActionRemove, ci.ID, now).
					WithMetadata(map[string]any{"entry_id": entry.ID, "member_id": entry.MemberID, "reason": waitlist.ReasonAccessLapsed, "access_status": decision.Status}))
				result.Removed = append(result.Removed, entry.ID)
				continue
			}

			claimed, err := r.Classes.ClaimSeat(ctx, ci.ID, now)
			if err != nil {
				return err
			}
			if !claimed {
				return nil
			}

			existing, err := r.Bookings.GetActive(ctx, entry.MemberID, ci.ID)
			switch {
			case err == nil:
				// Already booked through another path; the seat it holds is already counted.
				if err := r.Classes.ReleaseSeat(ctx, ci.ID, now); err != nil {
					return err
				}
				if err := entry.Promote(existing.ID, now); err != nil {
					return err
				}
				if err := r.Waitlist.Update(ctx, entry); err != nil {
					return err
				}
				result = PromotionResult{Promoted: true, MemberID: entry.MemberID, BookingID: existing.ID, EntryID: entry.ID, Removed: result.Removed}
				return nil
			case !errors.Is(err, sql.ErrNoRows):
				return err
			}

			b := booking.New(deps.newID(), entry.MemberID, ci.ID, booking.SourceWaitlist, now)
			if err := r.Bookings.Insert(ctx, b); err != nil {
				return err
			}
			if err := entry.Promote(b.ID, now); err != nil {
				return err
			}
			if err := r.Waitlist.Update(ctx, entry); err != nil {
				return err
			}
			fx.Notify(Notification{
				MemberID: entry.MemberID, Type: NotifyWaitlistPromoted, ClassInstanceID: ci.ID,
				ClassTitle: ci.Title, StartAt: ci.StartAt, BookingID: b.ID, WaitlistEntryID: entry.ID,
				Position: entry.Position, OccurredAt: now,
			})
			fx.Audit(newAuditEvent(system, audit.CategoryWaitlist, audit.ActionPromote, ci.ID, now).
				WithMetadata(map[string]any{"entry_id": entry.ID, "member_id": entry.MemberID, "booking_id": b.ID, "position": entry.Position}))
			result = PromotionResult{Promoted: true, MemberID: entry.MemberID, BookingID: b.ID, EntryID: entry.ID, Removed: result.Removed}
			return nil
		}
		return nil
	})
	if err != nil {
		return PromotionResult{}, err
	}

	if result.Promoted {
		slog.Info("waitlist_promoted", "class_instance_id", instanceID, "member_id", result.MemberID,
			"booking_id", result.BookingID, "removed", len(result.Removed))
	} else if len(result.Removed) > 0 {
		slog.Info("waitlist_lapsed_removed", "class_instance_id", instanceID, "removed", len(result.Removed))
	}
	deps.dispatch(ctx, &fx)
	return result, nil
}
