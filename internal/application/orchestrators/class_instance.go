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
	"classbook/internal/domain/rejection"
	"classbook/internal/domain/waitlist"

	"go.opentelemetry.io/otel/attribute"
)

// ErrAdminOnly rejects class management by non-staff actors.
var ErrAdminOnly = rejection.New(rejection.Forbidden, "only staff may manage class instances")

// CreateClassInstanceInput carries input for the CreateClassInstance orchestrator.
type CreateClassInstanceInput struct {
	Actor        actor.Actor
	LocationID   string
	Title        string
	StartAt      time.Time
	EndAt        time.Time
	Capacity     int
	CancelCutoff *time.Duration // nil selects the default cutoff
}

// CreateClassInstanceResult carries the created instance.
type CreateClassInstanceResult struct {
	Instance classinstance.ClassInstance
}

// ExecuteCreateClassInstance adds a one-off class instance.
// PRE: Actor is an admin
// POST: A scheduled instance with no bookings exists
func ExecuteCreateClassInstance(ctx context.Context, input CreateClassInstanceInput, deps EngineDeps) (result CreateClassInstanceResult, err error) {
	ctx, finish := deps.startOperation(ctx, "CreateClassInstance", attribute.String("classbook.location_id", input.LocationID))
	defer func() { finish(err) }()

	if !input.Actor.IsAdmin() {
		return CreateClassInstanceResult{}, ErrAdminOnly
	}
	now := deps.now()
	cutoff := classinstance.DefaultCancelCutoff
	if input.CancelCutoff != nil {
		cutoff = *input.CancelCutoff
	}
	ci := classinstance.ClassInstance{
		ID:           deps.newID(),
		LocationID:   input.LocationID,
		Title:        input.Title,
		StartAt:      input.StartAt.UTC(),
		EndAt:        input.EndAt.UTC(),
		Capacity:     input.Capacity,
		Status:       classinstance.StatusScheduled,
		CancelCutoff: cutoff,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := ci.Validate(); err != nil {
		return CreateClassInstanceResult{}, asInvalidInput(err)
	}

	var fx Effects
	err = deps.Tx.RunInTx(ctx, func(r uow.Repos) error {
		if _, err := r.Access.GetLocation(ctx, ci.LocationID); errors.Is(err, sql.ErrNoRows) {
			return access.ErrLocationNotFound
		} else if err != nil {
			return err
		}
		if err := r.Classes.Insert(ctx, ci); err != nil {
			return err
		}
		fx.Audit(newAuditEvent(input.Actor, audit.CategoryClass, audit.ActionCreate, ci.ID, now).
			WithMetadata(map[string]any{"capacity": ci.Capacity, "start_at": ci.StartAt}))
		return nil
	})
	if err != nil {
		return CreateClassInstanceResult{}, err
	}

	slog.Info("class_instance_created", "class_instance_id", ci.ID, "location_id", ci.LocationID, "capacity", ci.Capacity)
	deps.dispatch(ctx, &fx)
	return CreateClassInstanceResult{Instance: ci}, nil
}

// UpdateCapacityInput carries input for the UpdateCapacity orchestrator.
type UpdateCapacityInput struct {
	Actor           actor.Actor
	ClassInstanceID string
	Capacity        int
}

// UpdateCapacityResult reports the new capacity and any promotions it allowed.
type UpdateCapacityResult struct {
	Instance   classinstance.ClassInstance
	Promotions []PromotionResult
}

// ExecuteUpdateCapacity changes the seat count of a class instance.
// PRE: Actor is an admin
// POST: Capacity updated; an increase promotes waiting members after commit
// INVARIANT: capacity never drops below booked_count
func ExecuteUpdateCapacity(ctx context.Context, input UpdateCapacityInput, deps EngineDeps) (result UpdateCapacityResult, err error) {
	ctx, finish := deps.startOperation(ctx, "UpdateCapacity",
		attribute.String("classbook.class_instance_id", input.ClassInstanceID),
		attribute.Int("classbook.capacity", input.Capacity))
	defer func() { finish(err) }()

	if !input.Actor.IsAdmin() {
		return UpdateCapacityResult{}, ErrAdminOnly
	}
	if err := classinstance.ValidateCapacity(input.Capacity); err != nil {
		return UpdateCapacityResult{}, err
	}

	now := deps.now()
	var previous int
	var fx Effects
	err = deps.Tx.RunInTx(ctx, func(r uow.Repos) error {
		ci, err := loadInstance(ctx, r, input.ClassInstanceID)
		if err != nil {
			return err
		}
		if !ci.IsScheduled() {
			return classinstance.ErrNotBookable
		}
		applied, err := r.Classes.SetCapacity(ctx, ci.ID, input.Capacity, now)
		if err != nil {
			return err
		}
		if !applied {
			return classinstance.ErrBelowEnrolled
		}
		previous = ci.Capacity
		ci.Capacity = input.Capacity
		ci.UpdatedAt = now
		fx.Audit(newAuditEvent(input.Actor, audit.CategoryClass, audit.ActionUpdateCapacity, ci.ID, now).
			WithMetadata(map[string]any{"from": previous, "to": input.Capacity, "booked_count": ci.BookedCount}))
		result.Instance = ci
		return nil
	})
	if err != nil {
		return UpdateCapacityResult{}, err
	}

	slog.Info("class_capacity_updated", "class_instance_id", input.ClassInstanceID, "from", previous, "to", input.Capacity)
	deps.dispatch(ctx, &fx)

	if input.Capacity > previous {
		promotions, perr := promoteAll(ctx, input.ClassInstanceID, deps)
		if perr != nil {
			slog.Error("promotion_after_capacity_failed", "class_instance_id", input.ClassInstanceID, "error", perr.Error())
		}
		result.Promotions = promotions
	}
	return result, nil
}

// CancelClassInstanceInput carries input for the CancelClassInstance orchestrator.
type CancelClassInstanceInput struct {
	Actor           actor.Actor
	ClassInstanceID string
	Reason          string
}

// CancelClassInstanceResult reports what the cascade touched.
type CancelClassInstanceResult struct {
	Instance         classinstance.ClassInstance
	AlreadyCanceled  bool
	CanceledBookings int
	RemovedEntries   int
}

// ExecuteCancelClassInstance cancels a class and cascades to its bookings and waitlist.
// PRE: Actor is an admin
// POST: Instance canceled; every booked row canceled with class_canceled; every waiting entry removed
// INVARIANT: idempotent; terminal for the instance
func ExecuteCancelClassInstance(ctx context.Context, input CancelClassInstanceInput, deps EngineDeps) (result CancelClassInstanceResult, err error) {
	ctx, finish := deps.startOperation(ctx, "CancelClassInstance", attribute.String("classbook.class_instance_id", input.ClassInstanceID))
	defer func() { finish(err) }()

	if !input.Actor.IsAdmin() {
		return CancelClassInstanceResult{}, ErrAdminOnly
	}

	now := deps.now()
	var fx Effects
	err = deps.Tx.RunInTx(ctx, func(r uow.Repos) error {
		ci, err := loadInstance(ctx, r, input.ClassInstanceID)
		if err != nil {
			return err
		}
		if ci.IsCompleted() {
			return classinstance.ErrAlreadyStarted
		}
		if !ci.Cancel(input.Reason, now) {
			result = CancelClassInstanceResult{Instance: ci, AlreadyCanceled: true}
			return nil
		}
		if err := r.Classes.Update(ctx, ci); err != nil {
			return err
		}

		bookings, err := r.Bookings.ListActiveByInstance(ctx, ci.ID)
		if err != nil {
			return err
		}
		for _, b := range bookings {
			if err := b.Cancel(booking.ReasonClassCanceled, false, now); err != nil {
				return err
			}
			if err := r.Bookings.Update(ctx, b); err != nil {
				return err
			}
			fx.Notify(Notification{
				MemberID: b.MemberID, Type: NotifyClassCanceled, ClassInstanceID: ci.ID,
				ClassTitle: ci.Title, StartAt: ci.StartAt, BookingID: b.ID, OccurredAt: now,
				Data: map[string]string{"reason": ci.CancelReason},
			})
		}

		entries, err := r.Waitlist.ListWaiting(ctx, ci.ID)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := e.Remove(waitlist.ReasonClassCanceled, now); err != nil {
				return err
			}
			if err := r.Waitlist.Update(ctx, e); err != nil {
				return err
			}
			fx.Notify(Notification{
				MemberID: e.MemberID, Type: NotifyClassCanceled, ClassInstanceID: ci.ID,
				ClassTitle: ci.Title, StartAt: ci.StartAt, WaitlistEntryID: e.ID, OccurredAt: now,
				Data: map[string]string{"reason": ci.CancelReason},
			})
		}

		if err := r.Classes.ResetSeats(ctx, ci.ID, now); err != nil {
			return err
		}
		ci.BookedCount = 0

		fx.Audit(newAuditEvent(input.Actor, audit.CategoryClass, audit.ActionCancel, ci.ID, now).
			WithSeverity(audit.SeverityWarning).
			WithDescription(ci.CancelReason).
			WithMetadata(map[string]any{"canceled_bookings": len(bookings), "removed_entries": len(entries)}))
		result = CancelClassInstanceResult{Instance: ci, CanceledBookings: len(bookings), RemovedEntries: len(entries)}
		return nil
	})
	if err != nil {
		return CancelClassInstanceResult{}, err
	}

	if !result.AlreadyCanceled {
		slog.Info("class_instance_canceled", "class_instance_id", input.ClassInstanceID,
			"canceled_bookings", result.CanceledBookings, "removed_entries", result.RemovedEntries)
	}
	deps.dispatch(ctx, &fx)
	return result, nil
}

// RescheduleClassInstanceInput carries input for the RescheduleClassInstance orchestrator.
type RescheduleClassInstanceInput struct {
	Actor           actor.Actor
	ClassInstanceID string
	StartAt         time.Time
	EndAt           time.Time
}

// RescheduleClassInstanceResult carries the moved instance.
type RescheduleClassInstanceResult struct {
	Instance classinstance.ClassInstance
}

// ExecuteRescheduleClassInstance moves a scheduled class to a new time window.
// PRE: Actor is an admin
// POST: Window updated; bookings kept and their members notified
func ExecuteRescheduleClassInstance(ctx context.Context, input RescheduleClassInstanceInput, deps EngineDeps) (result RescheduleClassInstanceResult, err error) {
	ctx, finish := deps.startOperation(ctx, "RescheduleClassInstance", attribute.String("classbook.class_instance_id", input.ClassInstanceID))
	defer func() { finish(err) }()

	if !input.Actor.IsAdmin() {
		return RescheduleClassInstanceResult{}, ErrAdminOnly
	}

	now := deps.now()
	var fx Effects
	err = deps.Tx.RunInTx(ctx, func(r uow.Repos) error {
		ci, err := loadInstance(ctx, r, input.ClassInstanceID)
		if err != nil {
			return err
		}
		previousStart := ci.StartAt
		if err := ci.Reschedule(input.StartAt.UTC(), input.EndAt.UTC(), now); err != nil {
			return err
		}
		if err := r.Classes.Update(ctx, ci); err != nil {
			return err
		}
		bookings, err := r.Bookings.ListActiveByInstance(ctx, ci.ID)
		if err != nil {
			return err
		}
		for _, b := range bookings {
			fx.Notify(Notification{
				MemberID: b.MemberID, Type: NotifyClassRescheduled, ClassInstanceID: ci.ID,
				ClassTitle: ci.Title, StartAt: ci.StartAt, BookingID: b.ID, OccurredAt: now,
				Data: map[string]string{"previous_start_at": previousStart.Format(time.RFC3339)},
			})
		}
		fx.Audit(newAuditEvent(input.Actor, audit.CategoryClass, audit.ActionReschedule, ci.ID, now).
			WithMetadata(map[string]any{"from": previousStart, "to": ci.StartAt, "end_at": ci.EndAt}))
		result.Instance = ci
		return nil
	})
	if err != nil {
		return RescheduleClassInstanceResult{}, err
	}

	slog.Info("class_instance_rescheduled", "class_instance_id", input.ClassInstanceID, "start_at", result.Instance.StartAt)
	deps.dispatch(ctx, &fx)
	return result, nil
}

// asInvalidInput turns a plain validation error into an INVALID_INPUT rejection.
func asInvalidInput(err error) error {
	if _, ok := rejection.CodeOf(err); ok {
		return err
	}
	return rejection.New(rejection.InvalidInput, err.Error())
}
