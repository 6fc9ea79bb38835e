package dispatch

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Package-level metrics so tests can build as many runners as they like.
var (
	mClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_worker_claimed_total", Help: "Due notifications claimed from DB",
	})
	mSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_worker_sent_total", Help: "Notifications delivered",
	})
	mFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_worker_failed_total", Help: "Notifications that failed dispatch",
	})
	mTickErr = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_worker_tick_errors_total", Help: "Batch-level errors (claim query failures)",
	})
	mTickDur = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "dispatch_worker_tick_duration_seconds", Help: "Worker tick duration",
		Buckets: prometheus.DefBuckets,
	})
	mBatchSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "dispatch_worker_last_batch_size", Help: "Size of last claimed batch",
	})
)

type RunnerConfig struct {
	Tick       time.Duration
	BatchLimit int
	LeaseTTL   time.Duration
}

// Runner is the polling worker: one cooperative loop, no internal parallelism.
// Each tick claims a bounded batch of due notifications and processes them
// sequentially in scheduled_at order.
type Runner struct {
	Log  *zap.Logger
	Proc *Processor
	Cfg  RunnerConfig
}

func NewRunner(log *zap.Logger, proc *Processor, cfg RunnerConfig) *Runner {
	if cfg.Tick <= 0 {
		cfg.Tick = 30 * time.Second
	}
	if cfg.BatchLimit <= 0 {
		cfg.BatchLimit = 50
	}
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 5 * time.Minute
	}
	return &Runner{Log: log, Proc: proc, Cfg: cfg}
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Cfg.Tick)
	defer ticker.Stop()

	r.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick claims and processes one batch. A claim-query failure is logged and
// swallowed so the next tick still runs.
func (r *Runner) Tick(ctx context.Context) {
	start := time.Now()

	ctx, span := otel.Tracer("dispatch.runner").Start(ctx, "dispatch.tick")
	defer span.End()

	batch, err := r.Proc.Repo.ClaimDue(ctx, r.Cfg.BatchLimit, r.Cfg.LeaseTTL)
	if err != nil {
		mTickErr.Inc()
		span.RecordError(err)
		r.Log.Warn("claim due notifications", zap.Error(err))
		mTickDur.Observe(time.Since(start).Seconds())
		return
	}
	span.SetAttributes(attribute.Int("batch.size", len(batch)))
	mClaimed.Add(float64(len(batch)))
	mBatchSize.Set(float64(len(batch)))

	sent, failed := 0, 0
	for _, n := range batch {
		if _, err := r.Proc.Process(ctx, n); err != nil {
			failed++
			r.Log.Warn("dispatch failed",
				zap.Int64("id", n.ID),
				zap.String("channel", string(n.Channel)),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	mSent.Add(float64(sent))
	mFailed.Add(float64(failed))

	if len(batch) > 0 {
		r.Log.Debug("batch processed",
			zap.Int("claimed", len(batch)),
			zap.Int("sent", sent),
			zap.Int("failed", failed),
		)
	}
	mTickDur.Observe(time.Since(start).Seconds())
}
