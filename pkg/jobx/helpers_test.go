package jobx_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/jobx/jobxmemory"
	"github.com/Abraxas-365/rentify/pkg/logx"
)

func TestMain(m *testing.M) {
	logx.SetLevel(logx.LevelOff)
	os.Exit(m.Run())
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	sched *jobx.Scheduler
	store *jobxmemory.Store
	reg   *jobx.Registry
	clock *fakeClock
}

func newHarness(t *testing.T, opts ...jobx.Option) *harness {
	t.Helper()
	h := &harness{
		store: jobxmemory.New(),
		reg:   jobx.NewRegistry(),
		clock: newClock(),
	}
	base := []jobx.Option{
		jobx.WithClock(h.clock.Now),
		jobx.WithRetryPolicy(jobx.RetryPolicy{BaseDelay: time.Second, MaxDelay: time.Minute, DefaultMaxAttempts: 3}),
	}
	h.sched = jobx.New(h.store, h.reg, append(base, opts...)...)
	return h
}

// tick runs one dispatch pass and waits for its handlers.
func (h *harness) tick(t *testing.T) int {
	t.Helper()
	n, err := h.sched.Tick(context.Background())
	if err != nil {
		t.Fatalf("Tick: %v", err)
	}
	h.sched.Wait()
	return n
}

func (h *harness) add(t *testing.T, jobType string, opts ...jobx.EnqueueOption) string {
	t.Helper()
	id, err := h.sched.AddJob(context.Background(), jobType, jobx.Payload{"to": "a@example.com"}, opts...)
	if err != nil {
		t.Fatalf("AddJob: %v", err)
	}
	return id
}

func (h *harness) job(t *testing.T, id string) *jobx.Job {
	t.Helper()
	job, err := h.sched.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	return job
}

// eventually polls cond until it holds or the deadline passes.
func eventually(t *testing.T, within time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", within)
}
