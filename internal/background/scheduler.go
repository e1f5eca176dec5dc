package background

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"voltage-backend/internal/metrics"
	"voltage-backend/pkg/logger"
)

type SchedulerConfig struct {
	WorkerCount int
	QueueSize   int
}

type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Job is a named unit of work. Name doubles as the deduplication key for
// ScheduleUnique.
type Job struct {
	Name        string
	Run         func(ctx context.Context) error
	Delay       time.Duration
	Timeout     time.Duration
	RetryPolicy RetryPolicy
}

var (
	ErrSchedulerNotStarted   = errors.New("scheduler not started")
	ErrJobAlreadyScheduled   = errors.New("job already scheduled")
	errSchedulerShuttingDown = errors.New("scheduler is shutting down")
)

// Scheduler runs jobs on a fixed pool of workers fed by a bounded queue.
type Scheduler struct {
	config SchedulerConfig

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
	pending map[string]struct{}

	queue chan queuedJob

	workers sync.WaitGroup
	running sync.WaitGroup
}

type queuedJob struct {
	job     Job
	attempt int
	unique  bool
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 32
	}

	return &Scheduler{
		config:  cfg,
		queue:   make(chan queuedJob, cfg.QueueSize),
		pending: make(map[string]struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.started = true

	for i := 0; i < s.config.WorkerCount; i++ {
		s.workers.Add(1)
		go s.work()
	}
}

func (s *Scheduler) work() {
	defer s.workers.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case queued := <-s.queue:
			s.process(queued)
		}
	}
}

func (s *Scheduler) process(queued queuedJob) {
	if !s.wait(queued.job.Delay) {
		s.release(queued, context.Canceled)
		return
	}

	s.running.Add(1)
	defer s.running.Done()

	err := s.run(queued)
	if err != nil && s.retryable(queued, err) {
		next := queued
		next.attempt++
		next.job.Delay = queued.job.RetryPolicy.Backoff
		if s.enqueue(next) {
			return
		}
	}
	s.release(queued, err)
}

// wait sleeps for delay and reports false when the scheduler stops first.
func (s *Scheduler) wait(delay time.Duration) bool {
	if delay <= 0 {
		return true
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Scheduler) run(queued queuedJob) (err error) {
	start := time.Now()
	status := "success"

	ctx := s.ctx
	if queued.job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, queued.job.Timeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			status = "failure"
		}
		metrics.ObserveJobRun(queued.job.Name, status, time.Since(start))
	}()

	if err := ctx.Err(); err != nil {
		status = "canceled"
		return err
	}

	if err = queued.job.Run(ctx); err != nil {
		status = "failure"
		if errors.Is(err, context.Canceled) {
			status = "canceled"
		}
		logger.Error(err, "Background job attempt failed", map[string]interface{}{"job": queued.job.Name, "attempt": queued.attempt})
	}
	return err
}

func (s *Scheduler) retryable(queued queuedJob, err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return queued.attempt <= queued.job.RetryPolicy.MaxRetries
}

func (s *Scheduler) enqueue(queued queuedJob) bool {
	select {
	case <-s.ctx.Done():
		return false
	case s.queue <- queued:
		return true
	}
}

func (s *Scheduler) release(queued queuedJob, runErr error) {
	if queued.unique {
		s.mu.Lock()
		delete(s.pending, queued.job.Name)
		s.mu.Unlock()
	}

	fields := map[string]interface{}{"job": queued.job.Name, "attempt": queued.attempt}
	switch {
	case runErr == nil:
		logger.Debug("Background job completed", fields)
	case errors.Is(runErr, context.Canceled):
		logger.Warn("Background job canceled", fields)
	default:
		logger.Error(runErr, "Background job gave up", fields)
	}
}

func (s *Scheduler) Schedule(job Job) error {
	return s.submit(job, false)
}

// ScheduleUnique rejects the job with ErrJobAlreadyScheduled while another
// job with the same name is queued or running.
func (s *Scheduler) ScheduleUnique(job Job) error {
	return s.submit(job, true)
}

func (s *Scheduler) submit(job Job, unique bool) error {
	if job.Name == "" {
		return errors.New("job name is required")
	}
	if job.Run == nil {
		return errors.New("job runner is required")
	}

	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return ErrSchedulerNotStarted
	}
	if unique {
		if _, exists := s.pending[job.Name]; exists {
			s.mu.Unlock()
			return ErrJobAlreadyScheduled
		}
		s.pending[job.Name] = struct{}{}
	}
	s.mu.Unlock()

	if !s.enqueue(queuedJob{job: job, attempt: 1, unique: unique}) {
		if unique {
			s.mu.Lock()
			delete(s.pending, job.Name)
			s.mu.Unlock()
		}
		return errSchedulerShuttingDown
	}
	return nil
}

func (s *Scheduler) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) PendingJobCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}
