package scheduler

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"calbot/internal/models/db_models"
)

type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Outcome is what happened to one user during a job run.
type Outcome struct {
	UserID int64
	Status Status
	Err    error
}

// UserTask processes a single user. A returned error marks the outcome as
// failed regardless of the status.
type UserTask func(ctx context.Context, user db_models.User) (Status, error)

// RunBatch applies task to every user with at most workers in flight and
// returns one outcome per user in input order. A failing or panicking task
// affects only its own outcome.
func RunBatch(ctx context.Context, users []db_models.User, workers int, task UserTask) []Outcome {
	if workers < 1 {
		workers = 1
	}

	outcomes := make([]Outcome, len(users))
	var g errgroup.Group
	g.SetLimit(workers)

	for i := range users {
		i := i
		g.Go(func() error {
			outcomes[i] = runOne(ctx, users[i], task)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func runOne(ctx context.Context, user db_models.User, task UserTask) (out Outcome) {
	out.UserID = user.ID
	defer func() {
		if rec := recover(); rec != nil {
			out.Status = StatusFailed
			out.Err = fmt.Errorf("panic: %v", rec)
		}
	}()

	if err := ctx.Err(); err != nil {
		out.Status = StatusFailed
		out.Err = err
		return out
	}

	status, err := task(ctx, user)
	if err != nil {
		out.Status = StatusFailed
		out.Err = err
		return out
	}
	if status == "" {
		status = StatusSucceeded
	}
	out.Status = status
	return out
}

// Report aggregates one job run.
type Report struct {
	Job       string
	StartedAt time.Time
	Duration  time.Duration
	Processed int
	Succeeded int
	Failed    int
	Skipped   int
	Outcomes  []Outcome
}

func NewReport(job string, startedAt time.Time, outcomes []Outcome) Report {
	r := Report{
		Job:       job,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Processed: len(outcomes),
		Outcomes:  outcomes,
	}
	for _, o := range outcomes {
		switch o.Status {
		case StatusSucceeded:
			r.Succeeded++
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		}
	}
	return r
}

// Failures returns the failed outcomes only.
func (r Report) Failures() []Outcome {
	var failed []Outcome
	for _, o := range r.Outcomes {
		if o.Status == StatusFailed {
			failed = append(failed, o)
		}
	}
	return failed
}
