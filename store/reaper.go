package store

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Reaper periodically evicts expired tasks and their files. It runs for the
// process lifetime and stops within one interval of context cancellation.
type Reaper struct {
	logger   *zap.Logger
	store    *Store
	interval time.Duration
}

func NewReaper(logger *zap.Logger, store *Store, interval time.Duration) *Reaper {
	return &Reaper{
		logger:   logger,
		store:    store,
		interval: interval,
	}
}

// Run blocks until ctx is cancelled. A sweep that removes nothing is a
// normal outcome and is not logged.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("Retention reaper started", zap.Duration("interval", r.interval))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Retention reaper stopped")
			return
		case <-ticker.C:
			if count := r.store.CleanupExpired(); count > 0 {
				r.logger.Info("Expired tasks removed", zap.Int("count", count))
			}
		}
	}
}
