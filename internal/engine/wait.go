package engine

import (
	"context"
	"slices"
	"time"

	"github.com/me/slurmgo/pkg/model"
)

// DefaultPollInterval is used by Wait when no interval is given.
const DefaultPollInterval = 30 * time.Second

// Wait polls StillRunning until none of handles is live or ctx ends. It
// only observes jobs; nothing is resubmitted.
func (e *Engine) Wait(ctx context.Context, handles []model.JobHandle, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	pending := slices.Clone(handles)
	e.logger.Info("waiting", "jobs", len(pending), "poll_interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pending = slices.DeleteFunc(pending, func(h model.JobHandle) bool {
			if e.StillRunning(ctx, h) {
				return false
			}
			e.logger.Info("job finished", "handle", h)
			return true
		})
		if len(pending) == 0 {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
