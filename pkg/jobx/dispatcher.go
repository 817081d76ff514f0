package jobx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/rentify/pkg/logx"
)

// finishTimeout bounds the status write after a handler returns. It is
// detached from the handler context so a write still happens when the
// handler was cancelled.
const finishTimeout = 10 * time.Second

// Start runs the dispatch loop until ctx is cancelled. It reconciles
// stale claims once, then ticks every PollInterval, reaps stale claims
// every ReapInterval and runs the periodic housekeeping schedules. On
// cancellation it stops claiming, waits up to ShutdownTimeout for
// in-flight handlers and then cancels them.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return jobxErrors.New(ErrAlreadyRunning)
	}
	s.running = true
	s.base, s.cancelBase = context.WithCancel(context.WithoutCancel(ctx))
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.cancelBase()
		s.base, s.cancelBase = context.WithCancel(context.Background())
		s.mu.Unlock()
	}()

	housekeeping, err := s.newCron()
	if err != nil {
		return err
	}

	logx.WithFields(logx.Fields{
		"concurrency":   s.opts.Concurrency,
		"poll_interval": s.opts.PollInterval.String(),
		"job_types":     s.registry.Types(),
	}).Info("jobx: scheduler started")

	if _, err := s.Reconcile(ctx); err != nil && ctx.Err() == nil {
		logx.WithError(err).Warn("jobx: startup reconciliation failed")
	}
	housekeeping.Start()

	poll := time.NewTicker(s.opts.PollInterval)
	defer poll.Stop()
	reap := time.NewTicker(s.opts.ReapInterval)
	defer reap.Stop()

	s.tick(ctx)
	for running := true; running; {
		select {
		case <-ctx.Done():
			running = false
		case <-poll.C:
			s.tick(ctx)
		case <-reap.C:
			if _, err := s.Reconcile(ctx); err != nil && ctx.Err() == nil {
				logx.WithError(err).Warn("jobx: stale claim reconciliation failed")
			}
		}
	}

	logx.Info("jobx: shutting down scheduler...")
	<-housekeeping.Stop().Done()
	s.drain()
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.Tick(ctx); err != nil && ctx.Err() == nil {
		logx.WithError(err).Warn("jobx: dispatch tick failed")
	}
}

func (s *Scheduler) drain() {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(s.opts.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-done:
		logx.Info("jobx: all in-flight jobs finished")
	case <-timer.C:
		logx.Warnf("jobx: shutdown timed out with %d jobs in flight, cancelling them", s.inflight.Load())
		s.cancelHandlers()
		<-done
	}
	s.cancelHandlers()
}

func (s *Scheduler) cancelHandlers() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelBase()
}

func (s *Scheduler) handlerContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.base
}

// Wait blocks until every dispatched handler has returned and its
// status has been written.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

// Tick performs one dispatch pass: fetch due jobs oldest first, claim
// as many as there are free slots and start their handlers. It returns
// the number of jobs dispatched without waiting for them.
func (s *Scheduler) Tick(ctx context.Context) (int, error) {
	free := s.opts.Concurrency - int(s.inflight.Load())
	if free <= 0 {
		return 0, nil
	}

	now := s.now()
	due, err := s.store.FindDue(ctx, now, min(free, s.opts.BatchSize))
	if err != nil {
		return 0, err
	}

	dispatched := 0
	for _, candidate := range due {
		if !s.sem.TryAcquire(1) {
			break
		}

		job, err := s.store.Claim(ctx, candidate.ID, now)
		if err != nil {
			s.sem.Release(1)
			if errors.Is(err, ErrClaimConflict) {
				logx.WithField("job_id", candidate.ID).Debug("jobx: job claimed elsewhere, skipping")
				continue
			}
			return dispatched, err
		}

		s.inflight.Add(1)
		s.wg.Add(1)
		go s.run(job)
		dispatched++
	}
	return dispatched, nil
}

func jobLogger(job *Job) *logx.Entry {
	return logx.WithFields(logx.Fields{
		"job_id":   job.ID,
		"job_type": job.Type,
		"attempt":  fmt.Sprintf("%d/%d", job.Attempts, job.MaxAttempts),
	})
}

func (s *Scheduler) run(job *Job) {
	defer func() {
		s.inflight.Add(-1)
		s.sem.Release(1)
		s.wg.Done()
	}()

	started := s.opts.Clock()
	log := jobLogger(job)
	s.opts.Observer.JobClaimed(job)
	log.Debug("jobx: job claimed")

	outcome := s.execute(s.handlerContext(), job, log)
	s.opts.Observer.JobFinished(job, outcome, s.opts.Clock().Sub(started))
}

func (s *Scheduler) execute(base context.Context, job *Job, log *logx.Entry) Outcome {
	handler, ok := s.registry.Resolve(job.Type)
	if !ok {
		err := jobxErrors.New(ErrUnknownJobType).WithDetail("job_type", job.Type)
		log.WithError(err).Error("jobx: no handler registered, failing job")
		return s.fail(base, job, err.Error(), log)
	}

	if err := s.invoke(base, handler, job); err != nil {
		return s.handleFailure(base, job, err, log)
	}
	return s.complete(base, job, log)
}

// invoke runs the handler under HandlerTimeout. A handler that ignores
// its context is abandoned when the deadline passes; its goroutine
// finishes in the background.
func (s *Scheduler) invoke(base context.Context, handler HandlerFunc, job *Job) error {
	ctx, cancel := context.WithTimeout(base, s.opts.HandlerTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- jobxErrors.NewWithMessage(ErrHandlerFailure, fmt.Sprintf("handler panicked: %v", r))
			}
		}()
		done <- handler(ctx, job.Clone())
	}()

	select {
	case err := <-done:
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return s.timeoutError()
		}
		return err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return s.timeoutError()
		}
		return jobxErrors.NewWithCause(ErrHandlerFailure, ctx.Err())
	}
}

func (s *Scheduler) timeoutError() error {
	return jobxErrors.New(ErrHandlerTimeout).WithDetail("timeout", s.opts.HandlerTimeout.String())
}

func finishContext(base context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(base), finishTimeout)
}

func (s *Scheduler) complete(base context.Context, job *Job, log *logx.Entry) Outcome {
	ctx, cancel := finishContext(base)
	defer cancel()

	if err := s.store.Complete(ctx, job.ID, job.Attempts, s.now()); err != nil {
		return s.lost(err, log)
	}
	log.Info("jobx: job succeeded")
	return OutcomeSucceeded
}

func (s *Scheduler) handleFailure(base context.Context, job *Job, cause error, log *logx.Entry) Outcome {
	if IsPermanent(cause) || !job.HasAttemptsLeft() {
		log.WithError(cause).Error("jobx: job failed permanently")
		return s.fail(base, job, cause.Error(), log)
	}

	ctx, cancel := finishContext(base)
	defer cancel()

	delay := s.opts.Retry.NextDelay(job.Attempts)
	now := s.now()
	if err := s.store.Retry(ctx, job.ID, job.Attempts, now.Add(delay), cause.Error(), now); err != nil {
		return s.lost(err, log)
	}
	log.WithError(cause).WithField("retry_in", delay.String()).Warn("jobx: job failed, retry scheduled")
	return OutcomeRetried
}

func (s *Scheduler) fail(base context.Context, job *Job, lastError string, log *logx.Entry) Outcome {
	ctx, cancel := finishContext(base)
	defer cancel()

	if err := s.store.Fail(ctx, job.ID, job.Attempts, lastError, s.now()); err != nil {
		return s.lost(err, log)
	}
	return OutcomeFailed
}

func (s *Scheduler) lost(err error, log *logx.Entry) Outcome {
	if errors.Is(err, ErrClaimConflict) {
		log.Warn("jobx: claim no longer held, result discarded")
	} else {
		log.WithError(err).Error("jobx: failed to record job result")
	}
	return OutcomeLost
}

// Reconcile recovers running jobs whose claim is older than StaleAfter.
// Start calls it at startup and every ReapInterval.
func (s *Scheduler) Reconcile(ctx context.Context) (ReapResult, error) {
	now := s.now()
	res, err := s.store.RequeueStale(ctx, now.Add(-s.opts.StaleAfter), now)
	if err != nil {
		return ReapResult{}, err
	}
	if res.Requeued > 0 || res.Failed > 0 {
		logx.WithFields(logx.Fields{
			"requeued": res.Requeued,
			"failed":   res.Failed,
		}).Warn("jobx: recovered stale job claims")
		s.opts.Observer.JobsReaped(res)
	}
	return res, nil
}
