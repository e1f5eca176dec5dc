package background

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func startScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := NewScheduler(SchedulerConfig{WorkerCount: 1, QueueSize: 4})
	s.Start(context.Background())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Shutdown(ctx)
	})
	return s
}

func TestScheduleBeforeStartFails(t *testing.T) {
	s := NewScheduler(SchedulerConfig{})
	err := s.Schedule(Job{Name: "x", Run: func(context.Context) error { return nil }})
	if !errors.Is(err, ErrSchedulerNotStarted) {
		t.Fatalf("expected ErrSchedulerNotStarted, got %v", err)
	}
}

func TestScheduleUniqueRejectsDuplicatesUntilDone(t *testing.T) {
	s := startScheduler(t)

	release := make(chan struct{})
	done := make(chan struct{})
	job := Job{Name: "lecture-duration-1", Run: func(context.Context) error {
		<-release
		close(done)
		return nil
	}}

	if err := s.ScheduleUnique(job); err != nil {
		t.Fatalf("first schedule failed: %v", err)
	}
	if err := s.ScheduleUnique(job); !errors.Is(err, ErrJobAlreadyScheduled) {
		t.Fatalf("expected ErrJobAlreadyScheduled, got %v", err)
	}

	close(release)
	<-done

	deadline := time.Now().Add(time.Second)
	for s.PendingJobCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("job was never released")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFailedJobIsRetried(t *testing.T) {
	s := startScheduler(t)

	var calls int32
	done := make(chan struct{})
	err := s.Schedule(Job{
		Name:        "flaky",
		RetryPolicy: RetryPolicy{MaxRetries: 2},
		Run: func(context.Context) error {
			if atomic.AddInt32(&calls, 1) < 3 {
				return errors.New("transient")
			}
			close(done)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("job did not succeed after retries, calls=%d", atomic.LoadInt32(&calls))
	}
}

func TestPanickingJobDoesNotKillWorker(t *testing.T) {
	s := startScheduler(t)

	if err := s.Schedule(Job{Name: "boom", Run: func(context.Context) error { panic("boom") }}); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	done := make(chan struct{})
	if err := s.Schedule(Job{Name: "after", Run: func(context.Context) error { close(done); return nil }}); err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker stopped after panic")
	}
}

func TestPeriodicRejectsBadSchedule(t *testing.T) {
	p := NewPeriodic(NewScheduler(SchedulerConfig{}))
	job := Job{Name: "sweep", Run: func(context.Context) error { return nil }}

	if err := p.Register("not a schedule", job); err == nil {
		t.Fatal("expected invalid schedule error")
	}
	if err := p.Register("", job); err != nil {
		t.Fatalf("empty schedule should disable the job, got %v", err)
	}
	if err := p.Register("@every 1h", job); err != nil {
		t.Fatalf("descriptor schedule rejected: %v", err)
	}
}

func TestPeriodicTriggerSkipsWhileRunning(t *testing.T) {
	s := startScheduler(t)
	p := NewPeriodic(s)

	var calls int32
	release := make(chan struct{})
	job := Job{Name: "expire-stale-orders", Run: func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		<-release
		return nil
	}}

	p.trigger(job)
	p.trigger(job)
	close(release)

	deadline := time.Now().Add(time.Second)
	for s.PendingJobCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("job was never released")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("expected a single run, got %d", got)
	}
}
