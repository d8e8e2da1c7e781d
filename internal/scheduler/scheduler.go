// Package scheduler runs periodic maintenance jobs on cron specs.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job one unit of periodic work. A returned error is logged; the job keeps
// its schedule.
type Job func(ctx context.Context) error

type Scheduler struct {
	cron    *cron.Cron
	logger  *zap.Logger
	timeout time.Duration
	ctx     context.Context
	jobs    map[string]Job
}

// New creates a scheduler; each run is bounded by timeout.
func New(logger *zap.Logger, timeout time.Duration) *Scheduler {
	cl := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cl), cron.WithChain(
			cron.Recover(cl),
			cron.SkipIfStillRunning(cl),
		)),
		logger:  logger,
		timeout: timeout,
		ctx:     context.Background(),
		jobs:    make(map[string]Job),
	}
}

// Add registers job under spec (standard 5-field cron or @every).
func (s *Scheduler) Add(name, spec string, job Job) error {
	if _, dup := s.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := s.cron.AddFunc(spec, func() { s.runJob(name) }); err != nil {
		return fmt.Errorf("failed to schedule %s (%q): %w", name, spec, err)
	}
	s.jobs[name] = job
	s.logger.Info("Scheduled job", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// RunNow executes a registered job synchronously.
func (s *Scheduler) RunNow(name string) error {
	if _, ok := s.jobs[name]; !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	s.runJob(name)
	return nil
}

func (s *Scheduler) runJob(name string) {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	start := time.Now()
	if err := s.jobs[name](ctx); err != nil {
		s.logger.Error("Job failed", zap.String("job", name), zap.Error(err))
		return
	}
	s.logger.Debug("Job finished", zap.String("job", name), zap.Duration("elapsed", time.Since(start)))
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// running jobs to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.cron.Start()
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
	return nil
}

type cronLogger struct{ s *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
