package jobx_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Abraxas-365/rentify/pkg/jobx"
)

func TestTick_SucceedsWithinOneTick(t *testing.T) {
	h := newHarness(t)
	var got jobx.Payload
	h.reg.MustRegister(jobx.TypeSendEmail, func(_ context.Context, job *jobx.Job) error {
		got = job.Payload
		return nil
	})

	id, err := h.sched.AddJob(context.Background(), jobx.TypeSendEmail, jobx.Payload{"to": "a@example.com"}, jobx.WithDelay(0))
	if err != nil {
		t.Fatal(err)
	}

	if n := h.tick(t); n != 1 {
		t.Fatalf("dispatched %d, want 1", n)
	}
	job := h.job(t, id)
	if job.Status != jobx.StatusSucceeded || job.Attempts != 1 {
		t.Fatalf("job = %s attempts=%d", job.Status, job.Attempts)
	}
	if got.String("to") != "a@example.com" {
		t.Fatalf("handler payload = %v", got)
	}
}

func TestTick_AlwaysFailingHandlerExhaustsAttempts(t *testing.T) {
	h := newHarness(t)
	var calls atomic.Int32
	h.reg.MustRegister("flaky", func(context.Context, *jobx.Job) error {
		calls.Add(1)
		return errors.New("smtp down")
	})

	id := h.add(t, "flaky", jobx.WithMaxAttempts(3))

	var lastGap time.Duration
	for attempt := 1; attempt <= 5; attempt++ {
		h.tick(t)
		job := h.job(t, id)
		if job.Status == jobx.StatusPending {
			gap := job.RunAt.Sub(h.clock.Now())
			if gap <= 0 {
				t.Fatalf("attempt %d: retry runAt %v not after failure time %v", attempt, job.RunAt, h.clock.Now())
			}
			if gap < lastGap {
				t.Fatalf("attempt %d: backoff shrank from %v to %v", attempt, lastGap, gap)
			}
			lastGap = gap
		}
		h.clock.Advance(time.Hour)
	}

	job := h.job(t, id)
	if job.Status != jobx.StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.Attempts != 3 || calls.Load() != 3 {
		t.Fatalf("attempts = %d calls = %d, want 3", job.Attempts, calls.Load())
	}
	if job.LastError != "smtp down" {
		t.Fatalf("lastError = %q", job.LastError)
	}
}

func TestTick_UnknownTypeFailsWithoutRetry(t *testing.T) {
	h := newHarness(t)
	id := h.add(t, "nobody_handles_this")

	h.tick(t)

	job := h.job(t, id)
	if job.Status != jobx.StatusFailed || job.Attempts != 1 {
		t.Fatalf("job = %s attempts=%d", job.Status, job.Attempts)
	}
	if !strings.Contains(job.LastError, "UNKNOWN_JOB_TYPE") {
		t.Fatalf("lastError = %q", job.LastError)
	}
}

func TestTick_PermanentErrorSkipsRetry(t *testing.T) {
	h := newHarness(t)
	h.reg.MustRegister("x", func(context.Context, *jobx.Job) error {
		return jobx.Permanent(errors.New("missing recipient"))
	})
	id := h.add(t, "x", jobx.WithMaxAttempts(5))

	h.tick(t)

	job := h.job(t, id)
	if job.Status != jobx.StatusFailed || job.Attempts != 1 || job.LastError != "missing recipient" {
		t.Fatalf("job = %s attempts=%d lastError=%q", job.Status, job.Attempts, job.LastError)
	}
}

func TestTick_PanicIsRetried(t *testing.T) {
	h := newHarness(t)
	h.reg.MustRegister("x", func(context.Context, *jobx.Job) error {
		panic("nil map")
	})
	id := h.add(t, "x")

	h.tick(t)

	job := h.job(t, id)
	if job.Status != jobx.StatusPending || !strings.Contains(job.LastError, "panicked") {
		t.Fatalf("job = %s lastError=%q", job.Status, job.LastError)
	}
}

func TestTick_HandlerTimeoutIsAFailure(t *testing.T) {
	h := newHarness(t, jobx.WithHandlerTimeout(20*time.Millisecond))
	h.reg.MustRegister("slow", func(ctx context.Context, _ *jobx.Job) error {
		<-ctx.Done()
		return ctx.Err()
	})
	id := h.add(t, "slow")

	h.tick(t)

	job := h.job(t, id)
	if job.Status != jobx.StatusPending || !strings.Contains(job.LastError, "HANDLER_TIMEOUT") {
		t.Fatalf("job = %s lastError=%q", job.Status, job.LastError)
	}
}

func TestTick_RespectsConcurrencyLimit(t *testing.T) {
	h := newHarness(t, jobx.WithConcurrency(2))
	release := make(chan struct{})
	var calls atomic.Int32
	h.reg.MustRegister("block", func(context.Context, *jobx.Job) error {
		calls.Add(1)
		<-release
		return nil
	})
	for range 5 {
		h.add(t, "block")
	}

	ctx := context.Background()
	if n, _ := h.sched.Tick(ctx); n != 2 {
		t.Fatalf("first tick dispatched %d, want 2", n)
	}
	if n, _ := h.sched.Tick(ctx); n != 0 {
		t.Fatalf("tick with full slots dispatched %d, want 0", n)
	}
	close(release)
	h.sched.Wait()

	h.tick(t)
	h.tick(t)
	if calls.Load() != 5 {
		t.Fatalf("calls = %d, want 5", calls.Load())
	}
	stats, _ := h.sched.GetStats(ctx)
	if stats.Succeeded != 5 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestGetStats_MixedOutcomes(t *testing.T) {
	h := newHarness(t)
	h.reg.MustRegister("ok", func(context.Context, *jobx.Job) error { return nil })
	h.reg.MustRegister("bad", func(context.Context, *jobx.Job) error {
		return jobx.Permanent(errors.New("bad"))
	})

	for range 3 {
		h.add(t, "ok")
	}
	h.add(t, "bad")
	h.tick(t)
	h.add(t, "ok", jobx.WithDelay(time.Hour))
	h.add(t, "ok", jobx.WithDelay(time.Hour))

	stats, err := h.sched.GetStats(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	want := jobx.Stats{Pending: 2, Running: 0, Succeeded: 3, Failed: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func TestReconcile_RecoversStaleClaims(t *testing.T) {
	h := newHarness(t, jobx.WithStaleAfter(time.Minute), jobx.WithHandlerTimeout(10*time.Second))
	h.reg.MustRegister("x", func(context.Context, *jobx.Job) error { return nil })
	ctx := context.Background()

	id := h.add(t, "x")
	if _, err := h.store.Claim(ctx, id, h.clock.Now()); err != nil {
		t.Fatal(err)
	}

	if res, _ := h.sched.Reconcile(ctx); res.Requeued != 0 {
		t.Fatalf("fresh claim reaped: %+v", res)
	}

	h.clock.Advance(2 * time.Minute)
	res, err := h.sched.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res.Requeued != 1 {
		t.Fatalf("result = %+v, want 1 requeued", res)
	}

	h.tick(t)
	job := h.job(t, id)
	if job.Status != jobx.StatusSucceeded || job.Attempts != 2 {
		t.Fatalf("job = %s attempts=%d", job.Status, job.Attempts)
	}
}

func TestStaleAfterIsRaisedAboveHandlerTimeout(t *testing.T) {
	h := newHarness(t, jobx.WithStaleAfter(time.Second), jobx.WithHandlerTimeout(time.Minute))
	if got := h.sched.Options().StaleAfter; got <= time.Minute {
		t.Fatalf("StaleAfter = %v, want > handler timeout", got)
	}
}

func TestStart_DispatchesAndShutsDown(t *testing.T) {
	h := newHarness(t, jobx.WithPollInterval(5*time.Millisecond))
	h.reg.MustRegister("x", func(context.Context, *jobx.Job) error { return nil })
	id := h.add(t, "x")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.sched.Start(ctx) }()

	eventually(t, 2*time.Second, func() bool {
		return h.job(t, id).Status == jobx.StatusSucceeded
	})

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}

func TestStart_RejectsConcurrentStart(t *testing.T) {
	h := newHarness(t, jobx.WithPollInterval(5*time.Millisecond))
	started := make(chan struct{})
	var once sync.Once
	h.reg.MustRegister("x", func(context.Context, *jobx.Job) error {
		once.Do(func() { close(started) })
		return nil
	})
	h.add(t, "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- h.sched.Start(ctx) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler never dispatched")
	}
	if err := h.sched.Start(ctx); !errors.Is(err, jobx.ErrAlreadyRunning) {
		t.Fatalf("second Start err = %v, want ErrAlreadyRunning", err)
	}
	cancel()
	<-done
}

func TestStart_ShutdownCancelsStuckHandlers(t *testing.T) {
	h := newHarness(t,
		jobx.WithPollInterval(5*time.Millisecond),
		jobx.WithShutdownTimeout(20*time.Millisecond),
		jobx.WithHandlerTimeout(time.Hour),
	)
	started := make(chan struct{})
	h.reg.MustRegister("stuck", func(ctx context.Context, _ *jobx.Job) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	id := h.add(t, "stuck")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.sched.Start(ctx) }()

	<-started
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after shutdown timeout")
	}

	job := h.job(t, id)
	if job.Status != jobx.StatusPending || job.Attempts != 1 {
		t.Fatalf("job = %s attempts=%d, want pending for retry", job.Status, job.Attempts)
	}
}

func TestStart_InvalidPeriodicSchedule(t *testing.T) {
	h := newHarness(t, jobx.WithPeriodicJob("every so often", jobx.TypeCleanupExpiredTokens, nil))
	err := h.sched.Start(context.Background())
	if !errors.Is(err, jobx.ErrInvalidJobSpec) {
		t.Fatalf("err = %v, want ErrInvalidJobSpec", err)
	}
}

func TestStart_PeriodicJobIsEnqueued(t *testing.T) {
	h := newHarness(t,
		jobx.WithPollInterval(5*time.Millisecond),
		jobx.WithPeriodicJob("@every 1s", jobx.TypeCleanupExpiredTokens, jobx.Payload{"scope": "all"}),
	)
	var runs atomic.Int32
	h.reg.MustRegister(jobx.TypeCleanupExpiredTokens, func(_ context.Context, job *jobx.Job) error {
		if job.Payload.String("scope") == "all" {
			runs.Add(1)
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.sched.Start(ctx) }()

	eventually(t, 3*time.Second, func() bool { return runs.Load() >= 1 })
	cancel()
	<-done
}

func TestPruneJobs_RemovesOldTerminalJobs(t *testing.T) {
	h := newHarness(t)
	h.reg.MustRegister("x", func(context.Context, *jobx.Job) error { return nil })
	done := h.add(t, "x")
	h.tick(t)
	waiting := h.add(t, "x", jobx.WithDelay(72*time.Hour))

	h.clock.Advance(48 * time.Hour)
	n, err := h.sched.PruneJobs(context.Background(), 24*time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("PruneJobs = %d, %v", n, err)
	}
	if _, err := h.sched.GetJob(context.Background(), done); !errors.Is(err, jobx.ErrJobNotFound) {
		t.Fatalf("pruned job still readable: %v", err)
	}
	h.job(t, waiting)
}

type recordingObserver struct {
	mu       sync.Mutex
	enqueued int
	claimed  int
	outcomes []jobx.Outcome
}

func (o *recordingObserver) JobEnqueued(*jobx.Job) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.enqueued++
}

func (o *recordingObserver) JobClaimed(*jobx.Job) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.claimed++
}

func (o *recordingObserver) JobFinished(_ *jobx.Job, outcome jobx.Outcome, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) JobsReaped(jobx.ReapResult) {}

func TestObserver_ReceivesLifecycleEvents(t *testing.T) {
	obs := &recordingObserver{}
	h := newHarness(t, jobx.WithObserver(obs))
	h.reg.MustRegister("fails", func(context.Context, *jobx.Job) error { return errors.New("no") })

	h.add(t, "fails", jobx.WithMaxAttempts(2))
	h.tick(t)
	h.clock.Advance(time.Hour)
	h.tick(t)

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.enqueued != 1 || obs.claimed != 2 {
		t.Fatalf("enqueued=%d claimed=%d", obs.enqueued, obs.claimed)
	}
	if len(obs.outcomes) != 2 || obs.outcomes[0] != jobx.OutcomeRetried || obs.outcomes[1] != jobx.OutcomeFailed {
		t.Fatalf("outcomes = %v", obs.outcomes)
	}
}
