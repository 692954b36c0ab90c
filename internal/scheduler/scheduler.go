package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Entry binds a cron spec (standard five fields) to a job.
type Entry struct {
	Spec string
	Job  *GuardedJob
}

type Scheduler struct {
	cron    *cron.Cron
	entries []Entry
	ids     []cron.EntryID
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler evaluates every spec in loc and rejects invalid specs.
func NewScheduler(loc *time.Location, entries []Entry, logger *zap.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	logger = logger.Named("scheduler")
	cl := cronLogger{logger.Sugar()}

	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl)),
	)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{cron: c, entries: entries, logger: logger, ctx: ctx, cancel: cancel}

	for _, e := range entries {
		job := e.Job
		id, err := c.AddFunc(e.Spec, func() { _, _ = job.Run(s.ctx) })
		if err != nil {
			cancel()
			return nil, fmt.Errorf("invalid schedule %q for %s: %w", e.Spec, job.Name(), err)
		}
		s.ids = append(s.ids, id)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	for _, e := range s.entries {
		s.logger.Info("job scheduled", zap.String("job", e.Job.Name()), zap.String("spec", e.Spec))
	}
}

// Stop prevents new triggers, cancels running jobs and waits for them to
// return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	stopped := s.cron.Stop()
	s.cancel()

	select {
	case <-stopped.Done():
		s.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Trigger runs a job by name outside its schedule, subject to the same guard.
func (s *Scheduler) Trigger(ctx context.Context, name string) (Report, error) {
	for _, e := range s.entries {
		if e.Job.Name() == name {
			return e.Job.Run(ctx)
		}
	}
	return Report{}, fmt.Errorf("unknown job %q", name)
}

// NextRun reports when the named job fires next; zero before Start.
func (s *Scheduler) NextRun(name string) time.Time {
	for i, e := range s.entries {
		if e.Job.Name() == name {
			return s.cron.Entry(s.ids[i]).Next
		}
	}
	return time.Time{}
}

type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
