// Package jobxmetrics exports scheduler activity and queue depth to
// Prometheus.
package jobxmetrics

import (
	"context"
	"time"

	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/logx"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jobx"

// Observer counts scheduler events. Pass it to jobx.WithObserver.
type Observer struct {
	enqueued *prometheus.CounterVec
	claimed  *prometheus.CounterVec
	finished *prometheus.CounterVec
	duration *prometheus.HistogramVec
	reaped   *prometheus.CounterVec
}

var _ jobx.Observer = (*Observer)(nil)

// NewObserver creates the event metrics and registers them with reg.
func NewObserver(reg prometheus.Registerer) (*Observer, error) {
	o := &Observer{
		enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_enqueued_total",
			Help:      "Jobs persisted by AddJob.",
		}, []string{"job_type"}),
		claimed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_claimed_total",
			Help:      "Attempts started by the dispatch loop.",
		}, []string{"job_type"}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_finished_total",
			Help:      "Attempts finished, by outcome.",
		}, []string{"job_type", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "job_duration_seconds",
			Help:      "Wall time of one attempt including the status write.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}, []string{"job_type"}),
		reaped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "jobs_reaped_total",
			Help:      "Stale claims recovered by the reaper.",
		}, []string{"result"}),
	}

	for _, c := range []prometheus.Collector{o.enqueued, o.claimed, o.finished, o.duration, o.reaped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *Observer) JobEnqueued(job *jobx.Job) {
	o.enqueued.WithLabelValues(job.Type).Inc()
}

func (o *Observer) JobClaimed(job *jobx.Job) {
	o.claimed.WithLabelValues(job.Type).Inc()
}

func (o *Observer) JobFinished(job *jobx.Job, outcome jobx.Outcome, elapsed time.Duration) {
	o.finished.WithLabelValues(job.Type, string(outcome)).Inc()
	o.duration.WithLabelValues(job.Type).Observe(elapsed.Seconds())
}

func (o *Observer) JobsReaped(res jobx.ReapResult) {
	o.reaped.WithLabelValues("requeued").Add(float64(res.Requeued))
	o.reaped.WithLabelValues("failed").Add(float64(res.Failed))
}

// StatsSource is satisfied by *jobx.Scheduler.
type StatsSource interface {
	GetStats(ctx context.Context) (jobx.Stats, error)
}

// StatsCollector reports the per-status job counts at scrape time.
type StatsCollector struct {
	source  StatsSource
	timeout time.Duration
	desc    *prometheus.Desc
}

var _ prometheus.Collector = (*StatsCollector)(nil)

func NewStatsCollector(source StatsSource) *StatsCollector {
	return &StatsCollector{
		source:  source,
		timeout: 5 * time.Second,
		desc: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "jobs"),
			"Jobs currently in the store, by status.",
			[]string{"status"}, nil,
		),
	}
}

func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.desc
}

func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	stats, err := c.source.GetStats(ctx)
	if err != nil {
		logx.WithError(err).Warn("jobxmetrics: stats scrape failed")
		ch <- prometheus.NewInvalidMetric(c.desc, err)
		return
	}

	for status, n := range map[jobx.Status]int64{
		jobx.StatusPending:   stats.Pending,
		jobx.StatusRunning:   stats.Running,
		jobx.StatusSucceeded: stats.Succeeded,
		jobx.StatusFailed:    stats.Failed,
		jobx.StatusCancelled: stats.Cancelled,
	} {
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.GaugeValue, float64(n), string(status))
	}
}
