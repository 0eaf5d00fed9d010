package catalog

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartScheduler runs both syncs on a fixed interval until ctx is cancelled.
// Each run executes synchronously to completion or failure; there is no
// resumable partial-sync state.
func (e *Engine) StartScheduler(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	go func() {
		e.logger.Info("catalog sync scheduler started", zap.Duration("interval", interval))

		// Short startup delay so the first run does not race schema bootstrap
		// and pool warm-up.
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return
		}
		e.runOnce(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				e.runOnce(ctx)
			case <-ctx.Done():
				e.logger.Info("catalog sync scheduler stopped")
				return
			}
		}
	}()
}

func (e *Engine) runOnce(ctx context.Context) {
	// Categories first so new products can resolve their category reference.
	if res := e.SyncCategories(ctx); !res.Success {
		return
	}
	e.SyncProducts(ctx)
}
