package service

import (
	"context"
	"time"

	"github.com/wanderstay/wanderstay-bookings/internal/repo/postgres"
	"github.com/wanderstay/wanderstay-bookings/pkg/logger"
)

// CleanupIdempotencyKeys deletes expired idempotency rows on a fixed
// interval until ctx is cancelled. Keys expire 24h after creation, so
// a failed pass just leaves the rows for the next one.
func CleanupIdempotencyKeys(ctx context.Context, repo postgres.IdempotencyRepository, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := repo.CleanupExpired(ctx)
			if err != nil {
				logger.ErrorContext(ctx, "Failed to clean up idempotency keys", "error", err)
				continue
			}
			if removed > 0 {
				logger.InfoContext(ctx, "Cleaned up expired idempotency keys", "removed", removed)
			}
		}
	}
}
