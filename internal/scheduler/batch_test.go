package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calbot/internal/models/db_models"
)

func usersWithIDs(ids ...int64) []db_models.User {
	users := make([]db_models.User, len(ids))
	for i, id := range ids {
		users[i] = db_models.User{ID: id, DailyTarget: 2000, ReminderEnabled: true}
	}
	return users
}

func TestRunBatch_FailureIsolation(t *testing.T) {
	users := usersWithIDs(1, 2, 3, 4, 5)

	outcomes := RunBatch(context.Background(), users, 2, func(_ context.Context, u db_models.User) (Status, error) {
		switch u.ID {
		case 2:
			return StatusSucceeded, errors.New("send failed")
		case 3:
			panic("bad user")
		case 4:
			return StatusSkipped, nil
		}
		return StatusSucceeded, nil
	})

	require.Len(t, outcomes, 5)
	for i, o := range outcomes {
		assert.Equal(t, users[i].ID, o.UserID, "outcomes keep input order")
	}
	assert.Equal(t, StatusSucceeded, outcomes[0].Status)
	assert.Equal(t, StatusFailed, outcomes[1].Status)
	assert.EqualError(t, outcomes[1].Err, "send failed")
	assert.Equal(t, StatusFailed, outcomes[2].Status)
	assert.ErrorContains(t, outcomes[2].Err, "bad user")
	assert.Equal(t, StatusSkipped, outcomes[3].Status)
	assert.Equal(t, StatusSucceeded, outcomes[4].Status)

	report := NewReport("test", time.Now(), outcomes)
	assert.Equal(t, 5, report.Processed)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 2, report.Failed)
	assert.Equal(t, 1, report.Skipped)
	assert.Len(t, report.Failures(), 2)
}

func TestRunBatch_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	users := usersWithIDs(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)

	RunBatch(context.Background(), users, 3, func(context.Context, db_models.User) (Status, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return StatusSucceeded, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(3))
	assert.Greater(t, peak.Load(), int32(0))
}

func TestRunBatch_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32
	outcomes := RunBatch(ctx, usersWithIDs(1, 2), 1, func(context.Context, db_models.User) (Status, error) {
		calls.Add(1)
		return StatusSucceeded, nil
	})

	assert.Zero(t, calls.Load())
	for _, o := range outcomes {
		assert.Equal(t, StatusFailed, o.Status)
		assert.ErrorIs(t, o.Err, context.Canceled)
	}
}

func TestRunBatch_Empty(t *testing.T) {
	outcomes := RunBatch(context.Background(), nil, 4, func(context.Context, db_models.User) (Status, error) {
		t.Fatal("task must not run")
		return "", nil
	})
	assert.Empty(t, outcomes)
}
