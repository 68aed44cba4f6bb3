package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/billhive/billhive/internal/jobs"
	"github.com/billhive/billhive/internal/shared"
)

// idempotency keys only need to outlive client retries
const idempotencyRetention = 48 * time.Hour

// IdempotencyCleaner expires processed request keys.
type IdempotencyCleaner struct {
	store   *shared.IdempotencyStore
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewIdempotencyCleaner constructs the cleaner.
func NewIdempotencyCleaner(store *shared.IdempotencyStore, logger *slog.Logger, metrics *jobmetrics.Metrics) *IdempotencyCleaner {
	return &IdempotencyCleaner{store: store, logger: logger, metrics: metrics}
}

// Handle processes TaskIdempotencyCleanup tasks.
func (c *IdempotencyCleaner) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := c.metrics.Track("idempotency_cleanup")
	err := c.store.Cleanup(ctx, idempotencyRetention)
	if err != nil {
		c.logger.Error("idempotency cleanup failed", slog.Any("error", err))
	}
	return tracker.End(err)
}
