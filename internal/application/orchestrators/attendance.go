package orchestrators

import (
	"context"
	"log/slog"

	"classbook/internal/adapters/storage/uow"
	"classbook/internal/domain/actor"
	"classbook/internal/domain/audit"
	"classbook/internal/domain/booking"

	"go.opentelemetry.io/otel/attribute"
)

// MarkAttendanceInput carries input for the MarkAttendance orchestrator.
type MarkAttendanceInput struct {
	Actor     actor.Actor
	BookingID string
	Status    string // checked_in, no_show or excused
}

// MarkAttendanceResult carries the updated booking.
type MarkAttendanceResult struct {
	Booking booking.Booking
}

// ExecuteMarkAttendance records attendance for a booked seat.
// PRE: Actor is staff, instructor or admin
// POST: Booking is attended or no_show; the seat stays held
// INVARIANT: only legal from booked, inside the attendance window, on a live instance
func ExecuteMarkAttendance(ctx context.Context, input MarkAttendanceInput, deps EngineDeps) (result MarkAttendanceResult, err error) {
	ctx, finish := deps.startOperation(ctx, "MarkAttendance",
		attribute.String("classbook.booking_id", input.BookingID),
		attribute.String("classbook.attendance_status", input.Status))
	defer func() { finish(err) }()

	if !input.Actor.IsStaff() {
		return MarkAttendanceResult{}, booking.ErrForbidden
	}
	if !booking.IsValidAttendanceStatus(input.Status) {
		return MarkAttendanceResult{}, booking.ErrInvalidAttendanceStatus
	}

	now := deps.now()
	window := deps.window()
	var fx Effects
	err = deps.Tx.RunInTx(ctx, func(r uow.Repos) error {
		b, err := loadBooking(ctx, r, input.BookingID)
		if err != nil {
			return err
		}
		if !b.IsActive() {
			return booking.ErrNotActive
		}
		ci, err := loadInstance(ctx, r, b.ClassInstanceID)
		if err != nil {
			return err
		}
		if err := window.Check(ci, now); err != nil {
			return err
		}
		if err := b.MarkAttendance(input.Status, now); err != nil {
			return err
		}
		if err := r.Bookings.Update(ctx, b); err != nil {
			return err
		}
		fx.Audit(newAuditEvent(input.Actor, audit.CategoryBooking, audit.ActionAttendance, ci.ID, now).
			WithMetadata(map[string]any{"booking_id": b.ID, "member_id": b.MemberID, "attendance_status": input.Status}))
		result.Booking = b
		return nil
	})
	if err != nil {
		return MarkAttendanceResult{}, err
	}

	slog.Info("attendance_marked", "booking_id", result.Booking.ID, "status", result.Booking.Status,
		"attendance_status", result.Booking.AttendanceStatus)
	deps.dispatch(ctx, &fx)
	return result, nil
}
