package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// ErrJobRunning is returned by GuardedJob.Run when the previous run has not
// finished yet.
var ErrJobRunning = errors.New("job is already running")

type JobState int32

const (
	StateIdle JobState = iota
	StateRunning
)

func (s JobState) String() string {
	if s == StateRunning {
		return "running"
	}
	return "idle"
}

// Job is one scheduled unit of work.
type Job interface {
	Name() string
	Run(ctx context.Context) (Report, error)
}

// GuardedJob moves idle -> running -> idle around each run. A trigger that
// finds the job running is skipped, not queued.
type GuardedJob struct {
	job     Job
	state   atomic.Int32
	timeout time.Duration
	metrics *Metrics
	logger  *zap.Logger
}

func NewGuardedJob(job Job, timeout time.Duration, metrics *Metrics, logger *zap.Logger) *GuardedJob {
	return &GuardedJob{
		job:     job,
		timeout: timeout,
		metrics: metrics,
		logger:  logger.Named("job").With(zap.String("job", job.Name())),
	}
}

func (g *GuardedJob) Name() string { return g.job.Name() }

func (g *GuardedJob) State() JobState { return JobState(g.state.Load()) }

func (g *GuardedJob) Run(ctx context.Context) (Report, error) {
	if !g.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		g.logger.Warn("previous run still in progress, skipping trigger")
		g.metrics.recordRun(g.job.Name(), resultSkipped)
		return Report{Job: g.job.Name()}, ErrJobRunning
	}
	defer g.state.Store(int32(StateIdle))

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	started := time.Now()
	report, err := g.job.Run(ctx)
	if err != nil {
		g.logger.Error("job failed", zap.Error(err))
		g.metrics.recordRun(g.job.Name(), resultFailed)
		g.metrics.observeDuration(g.job.Name(), time.Since(started))
		return report, err
	}

	g.metrics.recordRun(g.job.Name(), resultCompleted)
	g.metrics.recordReport(report)

	fields := []zap.Field{
		zap.Int("processed", report.Processed),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Int("skipped", report.Skipped),
		zap.Duration("duration", report.Duration),
	}
	if report.Failed > 0 {
		for _, o := range report.Failures() {
			g.logger.Warn("user failed", zap.Int64("user_id", o.UserID), zap.Error(o.Err))
		}
		g.logger.Warn("job finished with failures", fields...)
	} else {
		g.logger.Info("job finished", fields...)
	}
	return report, nil
}
