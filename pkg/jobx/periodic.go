package jobx

import (
	"context"
	"time"

	"github.com/Abraxas-365/rentify/pkg/logx"
	"github.com/robfig/cron/v3"
)

type periodicJob struct {
	spec    string
	jobType string
	payload Payload
}

// newCron builds the housekeeping schedule for one Start call.
func (s *Scheduler) newCron() (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))

	for _, p := range s.opts.periodic {
		if _, err := c.AddFunc(p.spec, func() { s.enqueuePeriodic(p) }); err != nil {
			return nil, jobxErrors.NewWithCause(ErrInvalidJobSpec, err).
				WithDetail("schedule", p.spec).
				WithDetail("job_type", p.jobType)
		}
	}

	if s.opts.retention > 0 && s.opts.pruneSpec != "" {
		if _, err := c.AddFunc(s.opts.pruneSpec, s.prunePeriodic); err != nil {
			return nil, jobxErrors.NewWithCause(ErrInvalidJobSpec, err).WithDetail("schedule", s.opts.pruneSpec)
		}
	}
	return c, nil
}

func (s *Scheduler) enqueuePeriodic(p periodicJob) {
	ctx, cancel := context.WithTimeout(s.handlerContext(), finishTimeout)
	defer cancel()

	if _, err := s.AddJob(ctx, p.jobType, clonePayload(p.payload)); err != nil {
		logx.WithError(err).WithField("job_type", p.jobType).Error("jobx: periodic enqueue failed")
	}
}

func (s *Scheduler) prunePeriodic() {
	ctx, cancel := context.WithTimeout(s.handlerContext(), finishTimeout)
	defer cancel()

	if _, err := s.PruneJobs(ctx, s.opts.retention); err != nil {
		logx.WithError(err).Error("jobx: job pruning failed")
	}
}

// PruneJobs deletes succeeded, failed and cancelled jobs whose last
// update is older than olderThan.
func (s *Scheduler) PruneJobs(ctx context.Context, olderThan time.Duration) (int64, error) {
	n, err := s.store.Prune(ctx, s.now().Add(-olderThan))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		logx.WithFields(logx.Fields{"pruned": n, "older_than": olderThan.String()}).Info("jobx: pruned finished jobs")
	}
	return n, nil
}
