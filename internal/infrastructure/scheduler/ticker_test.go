package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestTickerSchedulerRunsImmediatelyAndRepeats(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	fired := make(chan struct{}, 16)
	s := NewTickerScheduler(10 * time.Millisecond)
	err := s.Start(context.Background(), func(time.Time) {
		runs.Add(1)
		fired <- struct{}{}
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}

	for i := 0; i < 3; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("job did not fire %d times", i+1)
		}
	}

	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Fatalf("job kept running after Stop")
	}
}

func TestTickerSchedulerStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := NewTickerScheduler(time.Hour)
	if err := s.Start(ctx, func(time.Time) {}); err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	done := s.Done()
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("run loop did not exit on cancellation")
	}
}

func TestTickerSchedulerRejectsBadInterval(t *testing.T) {
	t.Parallel()

	if err := NewTickerScheduler(0).Start(context.Background(), func(time.Time) {}); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if err := NewTickerScheduler(0).Stop(context.Background()); err != nil {
		t.Fatalf("Stop on an idle scheduler must succeed: %v", err)
	}
}

func TestTickerSchedulerDropsTickDuringJob(t *testing.T) {
	t.Parallel()

	ticks := make(chan time.Time, 1)
	s := NewTickerScheduler(time.Hour)
	s.newTicker = func(time.Duration) (<-chan time.Time, func()) {
		return ticks, func() {}
	}

	var runs atomic.Int32
	started := make(chan struct{}, 4)
	release := make(chan struct{})
	err := s.Start(context.Background(), func(time.Time) {
		if runs.Add(1) == 1 {
			started <- struct{}{}
			<-release
			return
		}
		started <- struct{}{}
	})
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	defer func() { _ = s.Stop(context.Background()) }()

	<-started
	ticks <- time.Now()
	close(release)

	select {
	case <-started:
		t.Fatalf("tick queued during the first run started a second run")
	case <-time.After(50 * time.Millisecond):
	}
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d, want 1", got)
	}

	ticks <- time.Now()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatalf("next tick did not run the job")
	}
	if got := runs.Load(); got != 2 {
		t.Fatalf("runs = %d, want 2", got)
	}
}
