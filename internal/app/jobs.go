package app

import (
	"context"
	"time"

	"voltage-backend/internal/background"
	"voltage-backend/internal/service"
	"voltage-backend/pkg/logger"
)

const durationBackfillBatch = 50

func durationBackfillJob(durations *service.DurationService) background.Job {
	return background.Job{
		Name:    "duration-backfill",
		Timeout: 10 * time.Minute,
		Run: func(ctx context.Context) error {
			updated, err := durations.BackfillMissing(ctx, durationBackfillBatch)
			if err != nil {
				return err
			}
			if updated > 0 {
				logger.Info("Lecture durations backfilled", map[string]interface{}{"updated": updated})
			}
			return nil
		},
	}
}

func staleOrderSweepJob(payments *service.PaymentService) background.Job {
	return background.Job{
		Name:        "expire-stale-orders",
		Timeout:     2 * time.Minute,
		RetryPolicy: background.RetryPolicy{MaxRetries: 1, Backoff: time.Minute},
		Run: func(ctx context.Context) error {
			expired, err := payments.ExpireStale(ctx)
			if err != nil {
				return err
			}
			if expired > 0 {
				logger.Info("Stale payment orders expired", map[string]interface{}{"expired": expired})
			}
			return nil
		},
	}
}

func (a *Application) initPeriodicJobs() error {
	a.periodic = background.NewPeriodic(a.scheduler)

	if err := a.periodic.Register(a.cfg.DurationBackfillSchedule, durationBackfillJob(a.services.Durations)); err != nil {
		return err
	}

	sweepSchedule := a.cfg.OrderSweepSchedule
	if a.cfg.PaymentOrderTTL <= 0 {
		sweepSchedule = ""
	}
	return a.periodic.Register(sweepSchedule, staleOrderSweepJob(a.services.Payment))
}
