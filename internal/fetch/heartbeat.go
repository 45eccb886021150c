package fetch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

type progress struct {
	total   int
	done    atomic.Int64
	failed  atomic.Int64
	fetched atomic.Int64 // observations
}

func runHeartbeat(ctx context.Context, interval time.Duration, p *progress, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			logger.Info("heartbeat", "done", p.done.Load(), "total", p.total,
				"failed", p.failed.Load(), "observations", p.fetched.Load())
		}
	}
}
