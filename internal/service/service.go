// Package service runs long-lived panel commands until they are interrupted.
package service

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"agentpanel/internal/logger"
)

// RunFunc is the body of a long-lived command. It must return once ctx is done.
type RunFunc func(ctx context.Context) error

// Runner runs a RunFunc and cancels it on SIGINT or SIGTERM. A second signal
// abandons the wait.
type Runner struct {
	runFunc RunFunc
	signals []os.Signal

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// New creates a Runner for fn.
func New(fn RunFunc) *Runner {
	return &Runner{
		runFunc: fn,
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
	}
}

// Run blocks until fn returns or a shutdown signal arrives.
func (r *Runner) Run(ctx context.Context) error {
	log := logger.WithComponent("service")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	r.mu.Lock()
	r.cancel = cancel
	stopped := r.stopped
	r.mu.Unlock()
	if stopped {
		cancel()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, r.signals...)
	defer signal.Stop(sigChan)

	done := make(chan error, 1)
	go func() {
		done <- r.runFunc(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		r.Stop()

		select {
		case err := <-done:
			return err
		case sig := <-sigChan:
			log.Warn().Str("signal", sig.String()).Msg("Received second signal, not waiting")
			return nil
		}

	case err := <-done:
		return err
	}
}

// Stop cancels the running function. It is safe to call more than once and
// before Run.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	if r.cancel != nil {
		r.cancel()
	}
}
