// Package scheduler re-runs a job on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Job is the unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler triggers a Job on a standard five-field cron schedule. A tick
// that arrives while the previous run is still going is skipped.
type Scheduler struct {
	cron   *cron.Cron
	job    Job
	logger *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New validates spec and returns a stopped Scheduler.
func New(spec string, job Job, logger *slog.Logger) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", spec, err)
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		job:    job,
		logger: logger.With("schedule", spec),
	}
	s.cron.Schedule(sched, cron.FuncJob(s.tick))
	return s, nil
}

// Start begins triggering the job. Runs receive a context derived from ctx
// that is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()
	s.cron.Start()
	s.logger.Info("scheduler started")
}

// Stop halts the schedule, cancels a running job and waits for it to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	<-s.cron.Stop().Done()
	s.wg.Wait()
	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil || ctx.Err() != nil {
		return
	}
	s.wg.Add(1)
	defer s.wg.Done()

	s.logger.Info("scheduled run starting")
	if err := s.job(ctx); err != nil {
		s.logger.Warn("scheduled run failed", "error", err)
		return
	}
	s.logger.Info("scheduled run finished")
}
