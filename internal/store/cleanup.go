package store

import (
	"context"
	"log/slog"
	"time"
)

const cleanupInterval = 1 * time.Hour

// StartCleanupWorker runs a background goroutine that periodically prunes
// search history older than ttl. It stops when the context is done.
func StartCleanupWorker(ctx context.Context, repo Repository, ttl time.Duration) {
	ticker := time.NewTicker(cleanupInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("History cleanup worker started", "interval", cleanupInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				deleted, err := repo.CleanupOldSearches(ctx, ttl)
				if err != nil {
					slog.Error("History cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("History cleanup removed old searches", "count", deleted)
				}
			case <-ctx.Done():
				slog.Info("History cleanup worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
