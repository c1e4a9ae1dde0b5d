// Package scheduler runs a task on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"agentpanel/internal/logger"
)

// Task is one scheduled unit of work.
type Task func(ctx context.Context)

// Scheduler runs a Task every interval until stopped. Runs never overlap.
type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
	clock    clock.Clock

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates a scheduler. A nil clk uses the wall clock.
func New(name string, interval time.Duration, task Task, clk clock.Clock) *Scheduler {
	if clk == nil {
		clk = clock.New()
	}
	return &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
		clock:    clk,
	}
}

// Start begins ticking. The first run happens one interval after Start.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.interval <= 0 {
		return
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	ticker := s.clock.Ticker(s.interval)

	log := logger.WithComponent("scheduler")
	log.Info().
		Str("task", s.name).
		Dur("interval", s.interval).
		Msg("Starting scheduler")

	s.wg.Add(1)
	go s.loop(ctx, ticker)
}

// Stop stops ticking and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	s.mu.Unlock()

	s.wg.Wait()
	log := logger.WithComponent("scheduler")
	log.Info().Str("task", s.name).Msg("Scheduler stopped")
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) loop(ctx context.Context, ticker *clock.Ticker) {
	defer s.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.task(ctx)
		}
	}
}
