package background

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"voltage-backend/pkg/logger"
)

// Periodic feeds jobs into a Scheduler on cron schedules. Each tick submits
// the job with ScheduleUnique, so a run that is still queued or in progress
// causes the tick to be skipped.
type Periodic struct {
	scheduler *Scheduler
	cron      *cron.Cron
}

func NewPeriodic(scheduler *Scheduler) *Periodic {
	return &Periodic{
		scheduler: scheduler,
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
}

// Register adds job under spec, which accepts standard five field cron
// expressions and descriptors such as "@every 30m". An empty spec disables
// the job.
func (p *Periodic) Register(spec string, job Job) error {
	if spec == "" {
		logger.Info("Periodic job disabled", map[string]interface{}{"job": job.Name})
		return nil
	}
	if job.Run == nil {
		return errors.New("job runner is required")
	}

	_, err := p.cron.AddFunc(spec, func() { p.trigger(job) })
	if err != nil {
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, job.Name, err)
	}
	logger.Info("Periodic job registered", map[string]interface{}{"job": job.Name, "schedule": spec})
	return nil
}

func (p *Periodic) trigger(job Job) {
	err := p.scheduler.ScheduleUnique(job)
	switch {
	case err == nil:
	case errors.Is(err, ErrJobAlreadyScheduled):
		logger.Debug("Periodic job still running, skipping tick", map[string]interface{}{"job": job.Name})
	default:
		logger.Warn("Failed to enqueue periodic job", map[string]interface{}{"job": job.Name, "error": err.Error()})
	}
}

func (p *Periodic) Start() {
	p.cron.Start()
}

// Stop prevents further ticks. Jobs already handed to the scheduler are
// drained by Scheduler.Shutdown.
func (p *Periodic) Stop(ctx context.Context) error {
	stopped := p.cron.Stop()
	select {
	case <-stopped.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
