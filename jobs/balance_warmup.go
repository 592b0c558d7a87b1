package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/inventory"
	"github.com/meridian-erp/meridian-erp/internal/observability"
)

// BalanceWarmupJob primes the Redis balance cache for every known
// (item, warehouse) pair so the first reads after a deploy hit warm keys.
type BalanceWarmupJob struct {
	Pool    *pgxpool.Pool
	Cache   *inventory.BalanceCache
	Logger  *slog.Logger
	Metrics *observability.Metrics
}

// NewBalanceWarmupJob wires dependencies for the warmup handler.
func NewBalanceWarmupJob(pool *pgxpool.Pool, cache *inventory.BalanceCache, logger *slog.Logger, metrics *observability.Metrics) *BalanceWarmupJob {
	return &BalanceWarmupJob{Pool: pool, Cache: cache, Logger: logger, Metrics: metrics}
}

// Handle processes balance warmup tasks.
func (j *BalanceWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pool == nil {
		return errors.New("balance warmup: handler not configured")
	}
	var payload BalanceWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	logger := j.logger()
	start := time.Now()

	rows, err := j.Pool.Query(ctx, `SELECT item_code, warehouse, qty FROM stock_balances ORDER BY item_code, warehouse`)
	if err != nil {
		j.Metrics.JobProcessed(TaskBalanceWarmup, "error")
		return err
	}
	defer rows.Close()

	warmed := 0
	for rows.Next() {
		var itemCode, warehouse string
		var qty float64
		if err := rows.Scan(&itemCode, &warehouse, &qty); err != nil {
			j.Metrics.JobProcessed(TaskBalanceWarmup, "error")
			return err
		}
		if _, err := j.Cache.Get(ctx, itemCode, warehouse, func(context.Context) (float64, error) {
			return qty, nil
		}); err != nil {
			logger.Warn("warm balance key", slog.String("item_code", itemCode), slog.String("warehouse", warehouse), slog.Any("error", err))
			continue
		}
		warmed++
	}
	if err := rows.Err(); err != nil {
		j.Metrics.JobProcessed(TaskBalanceWarmup, "error")
		return err
	}

	j.Metrics.JobProcessed(TaskBalanceWarmup, "ok")
	logger.Info("completed balance warmup", slog.Int("pairs", warmed), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *BalanceWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBalanceWarmup))
	}
	return slog.Default().With(slog.String("job", TaskBalanceWarmup))
}
