package scheduler_fx

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"calbot/internal/bot"
	"calbot/internal/config"
	"calbot/internal/scheduler"
	"calbot/internal/services"
)

const jobTimeout = 30 * time.Minute

var Module = fx.Options(
	fx.Provide(provideRegistry, provideGatherer, provideMetrics, provideScheduler),
	fx.Invoke(startScheduler),
)

func provideRegistry() prometheus.Registerer {
	return prometheus.DefaultRegisterer
}

func provideGatherer() prometheus.Gatherer {
	return prometheus.DefaultGatherer
}

func provideMetrics(reg prometheus.Registerer) *scheduler.Metrics {
	return scheduler.NewMetrics(reg)
}

func provideScheduler(
	tracker services.TrackerServiceInterface,
	messenger bot.Messenger,
	metrics *scheduler.Metrics,
	cfg *config.Config,
	log *zap.Logger,
) (*scheduler.Scheduler, error) {
	summary := scheduler.NewGuardedJob(
		scheduler.NewDailySummaryJob(tracker, messenger, cfg.Scheduler.Workers, log),
		jobTimeout, metrics, log)
	reminder := scheduler.NewGuardedJob(
		scheduler.NewReminderJob(tracker, messenger, cfg.Scheduler.Workers, log),
		jobTimeout, metrics, log)

	return scheduler.NewScheduler(cfg.Location(), []scheduler.Entry{
		{Spec: cfg.Scheduler.SummaryCron, Job: summary},
		{Spec: cfg.Scheduler.ReminderCron, Job: reminder},
	}, log)
}

func startScheduler(lc fx.Lifecycle, s *scheduler.Scheduler, cfg *config.Config, log *zap.Logger) {
	if !cfg.Scheduler.Enabled {
		log.Info("scheduler disabled; jobs run only when triggered through the admin API")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop(ctx)
		},
	})
}
