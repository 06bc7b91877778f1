package orchestrators

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"classbook/internal/adapters/storage/uow"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// Promotion sweep defaults.
const (
	DefaultSweepBatchSize   = 100
	DefaultSweepConcurrency = 4
)

// PromotionSweepInput carries input for the PromotionSweep orchestrator.
type PromotionSweepInput struct {
	BatchSize   int // zero selects DefaultSweepBatchSize
	Concurrency int // zero selects DefaultSweepConcurrency
}

// PromotionSweepResult counts what one sweep did.
type PromotionSweepResult struct {
	Completed int // instances closed out because they ended
	Instances int
	Promoted  int
	Failed    int
}

// ExecutePromotionSweep closes out ended classes, then fills free seats from
// the waitlist across all future classes. It catches seats freed when an
// earlier post-cancel promotion failed.
// PRE: none
// POST: Ended instances are completed; every promotable instance in the batch was run through the promotion engine
// INVARIANT: per-instance failures are logged and do not stop the sweep
func ExecutePromotionSweep(ctx context.Context, input PromotionSweepInput, deps EngineDeps) (result PromotionSweepResult, err error) {
	batch := input.BatchSize
	if batch <= 0 {
		batch = DefaultSweepBatchSize
	}
	limit := input.Concurrency
	if limit <= 0 {
		limit = DefaultSweepConcurrency
	}
	ctx, finish := deps.startOperation(ctx, "PromotionSweep", attribute.Int("classbook.batch_size", batch))
	defer func() { finish(err) }()

	now := deps.now()
	var ids []string
	err = deps.Tx.RunInTx(ctx, func(r uow.Repos) error {
		completed, err := r.Classes.CompleteEnded(ctx, now)
		if err != nil {
			return fmt.Errorf("complete ended instances: %w", err)
		}
		result.Completed = int(completed)
		ids, err = r.Classes.ListPromotable(ctx, now, batch)
		if err != nil {
			return fmt.Errorf("list promotable instances: %w", err)
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	if result.Completed > 0 {
		slog.Info("class_instances_completed", "count", result.Completed)
	}
	result.Instances = len(ids)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(limit)
	for _, id := range ids {
		g.Go(func() error {
			promotions, err := promoteAll(ctx, id, deps)
			mu.Lock()
			defer mu.Unlock()
			for _, p := range promotions {
				if p.Promoted {
					result.Promoted++
				}
			}
			if err != nil {
				result.Failed++
				slog.Error("promotion_sweep_instance_failed", "class_instance_id", id, "error", err.Error())
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	if result.Promoted > 0 || result.Failed > 0 {
		slog.Info("promotion_sweep_completed", "instances", result.Instances, "promoted", result.Promoted, "failed", result.Failed)
	}
	return result, nil
}
