package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// Pruner deletes incidents and outage reports older than a cutoff.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (incidents, reports int64, err error)
}

// Retention prunes old outage data once a day.
type Retention struct {
	Logger *zap.Logger
	Pruner Pruner
	Days   int
	Every  time.Duration

	sched gocron.Scheduler
	now   func() time.Time
}

func NewRetention(logger *zap.Logger, pruner Pruner, days int) *Retention {
	return &Retention{
		Logger: logger,
		Pruner: pruner,
		Days:   days,
		Every:  24 * time.Hour,
		now:    time.Now,
	}
}

// Start schedules the job, running it once immediately. Retention is
// disabled when Days <= 0.
func (r *Retention) Start(ctx context.Context) error {
	if r.Days <= 0 {
		r.Logger.Info("retention_disabled")
		return nil
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("new scheduler: %w", err)
	}
	jobCtx := context.WithoutCancel(ctx)
	_, err = s.NewJob(
		gocron.DurationJob(r.Every),
		gocron.NewTask(func() { r.RunOnce(jobCtx) }),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return fmt.Errorf("schedule retention: %w", err)
	}
	s.Start()
	r.sched = s
	r.Logger.Info("retention_started", zap.Int("days", r.Days), zap.Duration("every", r.Every))
	return nil
}

func (r *Retention) RunOnce(ctx context.Context) {
	cutoff := r.now().UTC().AddDate(0, 0, -r.Days)
	incidents, reports, err := r.Pruner.Prune(ctx, cutoff)
	if err != nil {
		r.Logger.Warn("retention_prune_error", zap.Time("cutoff", cutoff), zap.Error(err))
		return
	}
	r.Logger.Info("retention_pruned",
		zap.Time("cutoff", cutoff),
		zap.Int64("incidents", incidents),
		zap.Int64("reports", reports),
	)
}

func (r *Retention) Stop() error {
	if r.sched == nil {
		return nil
	}
	return r.sched.Shutdown()
}
