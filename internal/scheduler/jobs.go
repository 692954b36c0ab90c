package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"calbot/internal/bot"
	"calbot/internal/models/db_models"
	"calbot/internal/services"
	"calbot/pkg/utils"
)

const (
	DailySummaryJobName = "daily_summary"
	ReminderJobName     = "meal_reminder"

	reminderText = "🔔 Reminder!\n\n" +
		"You haven't logged any meals today. " +
		"Don't forget to track your food intake!\n\n" +
		"Use /add to log manually or send a photo of your food."
)

func dailySummaryText(day string, total float64, target int, met bool) string {
	status := "✅ Target met!"
	if !met {
		status = "⚠️ Target exceeded"
	}
	return fmt.Sprintf("📊 Daily Calorie Summary (%s)\n\n"+
		"Total calories consumed: %.1f\n"+
		"Daily target: %d\n"+
		"Status: %s", day, total, target, status)
}

// DailySummaryJob snapshots every user's total for the calendar day before the
// current one, appends it to the daily log and messages the user. A late
// midnight trigger still reports the day that ended.
type DailySummaryJob struct {
	tracker   services.TrackerServiceInterface
	messenger bot.Messenger
	workers   int
	logger    *zap.Logger
}

func NewDailySummaryJob(
	tracker services.TrackerServiceInterface,
	messenger bot.Messenger,
	workers int,
	logger *zap.Logger,
) *DailySummaryJob {
	return &DailySummaryJob{
		tracker:   tracker,
		messenger: messenger,
		workers:   workers,
		logger:    logger.Named(DailySummaryJobName),
	}
}

func (j *DailySummaryJob) Name() string { return DailySummaryJobName }

func (j *DailySummaryJob) Run(ctx context.Context) (Report, error) {
	started := time.Now()
	today, _ := utils.DayBounds(j.tracker.Now(), j.tracker.Location())
	day := today.Add(-time.Nanosecond)
	dayKey := utils.DayKey(day, j.tracker.Location())

	users, err := j.tracker.ListUsers(ctx)
	if err != nil {
		return Report{Job: j.Name(), StartedAt: started}, err
	}

	outcomes := RunBatch(ctx, users, j.workers, func(ctx context.Context, user db_models.User) (Status, error) {
		total, err := j.tracker.DailyTotal(ctx, user.ID, day)
		if err != nil {
			return StatusFailed, fmt.Errorf("daily total: %w", err)
		}
		met := services.TargetMet(total, user.DailyTarget)

		if err := j.tracker.LogDailySummaryFor(ctx, user.ID, day, total, met); err != nil {
			return StatusFailed, fmt.Errorf("log summary: %w", err)
		}

		if err := j.messenger.Send(ctx, user.ID, dailySummaryText(dayKey, total, user.DailyTarget, met)); err != nil {
			return StatusFailed, fmt.Errorf("send summary: %w", err)
		}
		return StatusSucceeded, nil
	})

	j.logger.Debug("summaries processed", zap.String("date", dayKey), zap.Int("users", len(users)))
	return NewReport(j.Name(), started, outcomes), nil
}

// ReminderJob nudges users with reminders on who have logged nothing today.
type ReminderJob struct {
	tracker   services.TrackerServiceInterface
	messenger bot.Messenger
	workers   int
	logger    *zap.Logger
}

func NewReminderJob(
	tracker services.TrackerServiceInterface,
	messenger bot.Messenger,
	workers int,
	logger *zap.Logger,
) *ReminderJob {
	return &ReminderJob{
		tracker:   tracker,
		messenger: messenger,
		workers:   workers,
		logger:    logger.Named(ReminderJobName),
	}
}

func (j *ReminderJob) Name() string { return ReminderJobName }

func (j *ReminderJob) Run(ctx context.Context) (Report, error) {
	started := time.Now()
	today := j.tracker.Now()

	users, err := j.tracker.ListReminderUsers(ctx)
	if err != nil {
		return Report{Job: j.Name(), StartedAt: started}, err
	}

	outcomes := RunBatch(ctx, users, j.workers, func(ctx context.Context, user db_models.User) (Status, error) {
		meals, err := j.tracker.DailyMeals(ctx, user.ID, today)
		if err != nil {
			return StatusFailed, fmt.Errorf("daily meals: %w", err)
		}
		if len(meals) > 0 {
			return StatusSkipped, nil
		}

		if err := j.messenger.Send(ctx, user.ID, reminderText); err != nil {
			return StatusFailed, fmt.Errorf("send reminder: %w", err)
		}
		return StatusSucceeded, nil
	})

	return NewReport(j.Name(), started, outcomes), nil
}
