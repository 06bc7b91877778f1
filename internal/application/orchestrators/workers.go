package orchestrators

import (
	"context"
	"log/slog"
	"time"
)

// Job is one run of a periodic background task.
type Job func(ctx context.Context) error

// StartBackgroundWorker runs job every interval until stopCh is closed.
// Each run gets its own timeout so a stuck run cannot block shutdown forever.
// PRE: interval > 0; stopCh is provided to signal shutdown
// POST: Worker runs until stopCh is closed
func StartBackgroundWorker(name string, interval, timeout time.Duration, stopCh <-chan struct{}, job Job) {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), timeout)
				if err := job(ctx); err != nil {
					slog.Error("background_job_failed", "worker", name, "error", err.Error())
				}
				cancel()
			case <-stopCh:
				slog.Info("background_worker_stopped", "worker", name)
				return
			}
		}
	}()
}
