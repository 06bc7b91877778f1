package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"classbook/internal/adapters/storage/uow"
	"classbook/internal/domain/classinstance"
	"classbook/internal/domain/schedule"

	"go.opentelemetry.io/otel/attribute"
)

// DefaultScheduleHorizonWeeks is how far ahead schedules are expanded.
const DefaultScheduleHorizonWeeks = 4

// ScheduleLister lists recurring schedules.
type ScheduleLister interface {
	ListActive(ctx context.Context) ([]schedule.Schedule, error)
}

// GenerateClassInstancesInput carries input for the GenerateClassInstances orchestrator.
type GenerateClassInstancesInput struct {
	HorizonWeeks int            // zero selects DefaultScheduleHorizonWeeks
	Location     *time.Location // wall-clock zone of the schedules; nil is UTC
}

// GenerateClassInstancesResult counts what the run produced.
type GenerateClassInstancesResult struct {
	Created int
	Skipped int
}

// ExecuteGenerateClassInstances expands active schedules into class instances.
// PRE: schedules are valid
// POST: Every slot starting within the horizon has exactly one instance
// INVARIANT: idempotent on (schedule_id, slot_start_at), so rescheduled instances are not recreated
func ExecuteGenerateClassInstances(ctx context.Context, input GenerateClassInstancesInput, schedules ScheduleLister, deps EngineDeps) (result GenerateClassInstancesResult, err error) {
	weeks := input.HorizonWeeks
	if weeks <= 0 {
		weeks = DefaultScheduleHorizonWeeks
	}
	ctx, finish := deps.startOperation(ctx, "GenerateClassInstances", attribute.Int("classbook.horizon_weeks", weeks))
	defer func() { finish(err) }()

	now := deps.now()
	to := now.AddDate(0, 0, 7*weeks)

	active, err := schedules.ListActive(ctx)
	if err != nil {
		return result, fmt.Errorf("list schedules: %w", err)
	}

	for _, s := range active {
		occurrences, err := s.Occurrences(now, to, input.Location)
		if err != nil {
			slog.Warn("schedule_expand_failed", "schedule_id", s.ID, "error", err.Error())
			continue
		}
		for _, occ := range occurrences {
			created, err := createOccurrence(ctx, s, occ, now, deps)
			if err != nil {
				return result, fmt.Errorf("create instance for schedule %s: %w", s.ID, err)
			}
			if created {
				result.Created++
			} else {
				result.Skipped++
			}
		}
	}

	slog.Info("class_instances_generated", "created", result.Created, "skipped", result.Skipped, "horizon_weeks", weeks)
	return result, nil
}

func createOccurrence(ctx context.Context, s schedule.Schedule, occ schedule.Occurrence, now time.Time, deps EngineDeps) (bool, error) {
	created := false
	err := deps.Tx.RunInTx(ctx, func(r uow.Repos) error {
		exists, err := r.Classes.ExistsForSlot(ctx, s.ID, occ.StartAt)
		if err != nil || exists {
			return err
		}
		ci := classinstance.ClassInstance{
			ID:           deps.newID(),
			LocationID:   s.LocationID,
			ScheduleID:   s.ID,
			SlotStartAt:  occ.StartAt,
			Title:        s.Title,
			StartAt:      occ.StartAt,
			EndAt:        occ.EndAt,
			Capacity:     s.Capacity,
			Status:       classinstance.StatusScheduled,
			CancelCutoff: s.CancelCutoff(),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := ci.Validate(); err != nil {
			return err
		}
		if err := r.Classes.Insert(ctx, ci); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}
