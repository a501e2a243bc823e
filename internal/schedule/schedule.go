// Package schedule drives periodic pipeline runs from a cron expression.
package schedule

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a single job on a cron schedule. Ticks that arrive
// while the previous invocation is still executing are skipped, so at
// most one run is in flight at a time.
type Scheduler struct {
	c   *cron.Cron
	log *slog.Logger
}

// New creates a stopped Scheduler. Expressions use the standard five
// cron fields with an optional leading seconds field; @every and the
// other descriptors are accepted too.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{c: cron.New(cron.WithParser(parser)), log: logger}
}

// Start registers the job under the given expression and starts
// ticking. It returns immediately; use Wait to block.
func (s *Scheduler) Start(ctx context.Context, expr string, job Job) error {
	var inFlight atomic.Bool
	_, err := s.c.AddFunc(expr, func() {
		if !inFlight.CompareAndSwap(false, true) {
			s.log.Warn("previous run still in progress, skipping tick")
			return
		}
		defer inFlight.Store(false)
		if err := job(ctx); err != nil {
			s.log.Error("scheduled run failed", "error", err)
		}
	})
	if err != nil {
		return err
	}
	s.c.Start()
	return nil
}

// Wait blocks until ctx is done, then stops the schedule and waits for
// a running job to finish.
func (s *Scheduler) Wait(ctx context.Context) {
	<-ctx.Done()
	<-s.c.Stop().Done()
}

// Stop halts ticking and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.c.Stop().Done()
}
