package orchestrators

import (
	"context"
	"log/slog"
	"strconv"

	"classbook/internal/adapters/storage/uow"
	"classbook/internal/domain/actor"
	"classbook/internal/domain/audit"
	"classbook/internal/domain/booking"
	"classbook/internal/domain/classinstance"

	"go.opentelemetry.io/otel/attribute"
)

// CancelBookingInput carries input for the CancelBooking orchestrator.
type CancelBookingInput struct {
	Actor     actor.Actor
	BookingID string
}

// CancelBookingResult reports the cancellation and the promotions it triggered.
type CancelBookingResult struct {
	Booking    booking.Booking
	Late       bool
	Promotions []PromotionResult
}

// ExecuteCancelBooking cancels an active booking and frees its seat.
// PRE: BookingID is non-empty
// POST: Booking is canceled, the seat released and the waitlist promoted after commit
// INVARIANT: a class that has started cannot be canceled out of
func ExecuteCancelBooking(ctx context.Context, input CancelBookingInput, deps EngineDeps) (result CancelBookingResult, err error) {
	ctx, finish := deps.startOperation(ctx, "CancelBooking", attribute.String("classbook.booking_id", input.BookingID))
	defer func() { finish(err) }()

	now := deps.now()
	var fx Effects
	err = deps.Tx.RunInTx(ctx, func(r uow.Repos) error {
		b, err := loadBooking(ctx, r, input.BookingID)
		if err != nil {
			return err
		}
		if !input.Actor.CanActFor(b.MemberID) {
			return booking.ErrForbidden
		}
		if !b.IsActive() {
			return booking.ErrNotActive
		}
		ci, err := loadInstance(ctx, r, b.ClassInstanceID)
		if err != nil {
			return err
		}
		if ci.HasStarted(now) {
			return classinstance.ErrAlreadyStarted
		}

		reason := booking.ReasonMemberCanceled
		if input.Actor.ID != b.MemberID {
			reason = booking.ReasonStaffCanceled
		}
		late := ci.IsLateCancel(now)
		if err := b.Cancel(reason, late, now); err != nil {
			return err
		}
		if err := r.Bookings.Update(ctx, b); err != nil {
			return err
		}
		if err := r.Classes.ReleaseSeat(ctx, ci.ID, now); err != nil {
			return err
		}

		fx.Notify(Notification{
			MemberID: b.MemberID, Type: NotifyBookingCanceled, ClassInstanceID: ci.ID,
			ClassTitle: ci.Title, StartAt: ci.StartAt, BookingID: b.ID, OccurredAt: now,
			Data: map[string]string{"reason": reason, "late": strconv.FormatBool(late)},
		})
		fx.Audit(newAuditEvent(input.Actor, audit.CategoryBooking, audit.ActionCancel, ci.ID, now).
			WithMetadata(map[string]any{"booking_id": b.ID, "member_id": b.MemberID, "reason": reason, "late_cancel": late}))
		result.Booking = b
		result.Late = late
		return nil
	})
	if err != nil {
		return CancelBookingResult{}, err
	}

	slog.Info("booking_canceled", "booking_id", result.Booking.ID, "class_instance_id", result.Booking.ClassInstanceID,
		"reason", result.Booking.CancelReason, "late_cancel", result.Late)
	deps.dispatch(ctx, &fx)

	// The cancellation is committed; a failed promotion is left to the sweep.
	promotions, perr := promoteAll(ctx, result.Booking.ClassInstanceID, deps)
	if perr != nil {
		slog.Error("promotion_after_cancel_failed", "class_instance_id", result.Booking.ClassInstanceID, "error", perr.Error())
	}
	result.Promotions = promotions
	return result, nil
}
