// Package schedule runs the pipeline on a fixed interval. Cycles are
// serialized here: a tick that fires while the previous cycle is still
// running is skipped, so the orchestrator never sees overlapping runs.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work, typically a closure over
// pipeline.Orchestrator.RunCycle.
type Job func(ctx context.Context)

// Scheduler triggers the job at a fixed interval.
type Scheduler struct {
	cron   *cron.Cron
	logger log.Logger
}

// New creates a scheduler that runs job every interval.
func New(interval time.Duration, job Job, logger log.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("schedule: interval must be positive, got %s", interval)
	}
	if logger == nil {
		logger = log.Nop()
	}

	cl := cronLogger{logger: logger}
	c := cron.New(cron.WithChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	))

	ctx := context.Background()
	if _, err := c.AddFunc("@every "+interval.String(), func() { job(ctx) }); err != nil {
		return nil, fmt.Errorf("schedule: add job: %w", err)
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start begins ticking in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops future ticks and waits for a running job to finish, bounded
// by the given context.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("schedule: stop: %w", ctx.Err())
	}
}

// cronLogger adapts the structured logger to cron's logging interface.
type cronLogger struct {
	logger log.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.logger.Info(context.Background(), "cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.logger.Error(context.Background(), err, "cron: "+msg, keysAndValues...)
}
