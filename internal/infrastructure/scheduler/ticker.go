package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/turabik33/CE48-Final/internal/ports"
)

// TickerScheduler runs a job once immediately and then at a fixed interval.
// A tick that arrives while the job is still running is dropped.
type TickerScheduler struct {
	interval  time.Duration
	newTicker func(time.Duration) (<-chan time.Time, func())

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*TickerScheduler)(nil)

// NewTickerScheduler builds a scheduler firing every interval.
func NewTickerScheduler(interval time.Duration) *TickerScheduler {
	return &TickerScheduler{interval: interval, newTicker: realTicker}
}

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Start launches the ticking goroutine. Calling Start twice is a no-op.
func (s *TickerScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return nil
	}
	if s.interval <= 0 {
		return fmt.Errorf("scheduler interval must be positive, got %s", s.interval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	go func() {
		defer close(done)
		ticks, stopTicker := s.newTicker(s.interval)
		defer stopTicker()
		job(time.Now())
		drain(ticks)
		for {
			select {
			case t := <-ticks:
				job(t)
				drain(ticks)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// drain discards a tick that fired while a job was running.
func drain(ticks <-chan time.Time) {
	select {
	case <-ticks:
	default:
	}
}

// Stop halts the ticker and waits for a running job to return or ctx to end.
func (s *TickerScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the current run loop exits; nil when not started.
func (s *TickerScheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}
