package scheduler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultCompleted = "completed"
	resultFailed    = "failed"
	resultSkipped   = "skipped"
)

type Metrics struct {
	runs     *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics registers the job collectors on reg. Pass a fresh registry in
// tests; the application uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "calbot",
				Name:      "job_runs_total",
				Help:      "Scheduled job triggers by result (completed, failed, skipped)",
			},
			[]string{"job", "result"},
		),
		outcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "calbot",
				Name:      "job_user_outcomes_total",
				Help:      "Per-user outcomes of scheduled jobs",
			},
			[]string{"job", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "calbot",
				Name:      "job_duration_seconds",
				Help:      "Duration of scheduled job runs",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),
	}
}

func (m *Metrics) recordRun(job, result string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job, result).Inc()
}

func (m *Metrics) recordReport(r Report) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(r.Job).Observe(r.Duration.Seconds())
	for _, o := range r.Outcomes {
		m.outcomes.WithLabelValues(r.Job, string(o.Status)).Inc()
	}
}

func (m *Metrics) observeDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(job).Observe(d.Seconds())
}
