package orchestrators

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"classbook/internal/adapters/http/perf"
	"classbook/internal/adapters/storage/uow"
	"classbook/internal/domain/access"
	"classbook/internal/domain/booking"
	"classbook/internal/domain/classinstance"
	"classbook/internal/domain/rejection"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("classbook/orchestrators")

// EngineDeps holds dependencies shared by every booking engine operation.
type EngineDeps struct {
	Tx               uow.Runner
	Effects          EffectSink                // nil discards effects
	AttendanceWindow *booking.AttendanceWindow // nil selects the defaults
	Perf             *perf.Collector           // optional
	Now              func() time.Time
	GenerateID       func() string
}

func (d EngineDeps) now() time.Time {
	if d.Now == nil {
		return time.Now().UTC()
	}
	return d.Now().UTC()
}

func (d EngineDeps) newID() string {
	if d.GenerateID == nil {
		return uuid.New().String()
	}
	return d.GenerateID()
}

func (d EngineDeps) window() booking.AttendanceWindow {
	if d.AttendanceWindow == nil {
		return booking.DefaultAttendanceWindow()
	}
	return *d.AttendanceWindow
}

// dispatch hands collected effects to the sink after commit.
// Effects survive cancellation of the request context.
func (d EngineDeps) dispatch(ctx context.Context, fx *Effects) {
	if d.Effects == nil || fx.Empty() {
		return
	}
	d.Effects.Dispatch(context.WithoutCancel(ctx), *fx)
}

// startOperation opens a span for an engine operation. The returned func
// closes it, recording err and the duration.
func (d EngineDeps) startOperation(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			if code, ok := rejection.CodeOf(err); ok {
				span.SetAttributes(attribute.String("classbook.rejection", string(code)))
			} else {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
		}
		span.End()
		if d.Perf != nil {
			d.Perf.Record(perf.Entry{
				Kind:       perf.KindOperation,
				Name:       name,
				Failed:     err != nil,
				DurationMs: float64(time.Since(start).Microseconds()) / 1000.0,
				Timestamp:  start,
			})
		}
	}
}

// loadInstance fetches a class instance, mapping a missing row to ErrNotFound.
func loadInstance(ctx context.Context, r uow.Repos, id string) (classinstance.ClassInstance, error) {
	ci, err := r.Classes.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ci, classinstance.ErrNotFound
	}
	return ci, err
}

// loadBooking fetches a booking, mapping a missing row to ErrNotFound.
func loadBooking(ctx context.Context, r uow.Repos, id string) (booking.Booking, error) {
	b, err := r.Bookings.GetByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return b, booking.ErrNotFound
	}
	return b, err
}

// accessReader is the part of the access store the resolver needs.
type accessReader interface {
	GetLocation(ctx context.Context, id string) (access.Location, error)
	ListActiveMemberships(ctx context.Context, memberID string) ([]access.Membership, error)
	GetState(ctx context.Context, memberID, locationID string) (string, error)
}

// resolveAccessAt resolves a member's access at a known location.
// INVARIANT: read only; safe inside a transaction
func resolveAccessAt(ctx context.Context, store accessReader, memberID string, loc access.Location) (access.Decision, error) {
	memberships, err := store.ListActiveMemberships(ctx, memberID)
	if err != nil {
		return access.Decision{}, err
	}
	state, err := store.GetState(ctx, memberID, loc.ID)
	if err != nil {
		return access.Decision{}, err
	}
	return access.Resolve(access.SelectMembership(memberships, loc), loc, state), nil
}

// instanceLocation loads the location of a class instance. An unknown
// location resolves with an empty region, so only all_locations scopes cover it.
func instanceLocation(ctx context.Context, store accessReader, ci classinstance.ClassInstance) (access.Location, error) {
	loc, err := store.GetLocation(ctx, ci.LocationID)
	if errors.Is(err, sql.ErrNoRows) {
		return access.Location{ID: ci.LocationID}, nil
	}
	return loc, err
}
