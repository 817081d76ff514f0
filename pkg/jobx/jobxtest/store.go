// Package jobxtest holds the behavioural contract every jobx.Store
// implementation must satisfy.
package jobxtest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Abraxas-365/rentify/pkg/jobx"
	"github.com/Abraxas-365/rentify/pkg/kernel"
	"github.com/google/uuid"
)

// Epoch is the fixed reference time used by the suite. It is truncated
// to the millisecond so every backend can round-trip it exactly.
var Epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// NewJob builds a pending job due at runAt.
func NewJob(jobType string, runAt time.Time) *jobx.Job {
	return &jobx.Job{
		ID:          uuid.NewString(),
		Type:        jobType,
		Payload:     jobx.Payload{"to": "a@example.com"},
		Status:      jobx.StatusPending,
		RunAt:       runAt,
		MaxAttempts: 3,
		CreatedAt:   runAt,
		UpdatedAt:   runAt,
	}
}

// RunStoreSuite runs the store contract against fresh stores returned
// by newStore.
func RunStoreSuite(t *testing.T, newStore func(t *testing.T) jobx.Store) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s jobx.Store)
	}{
		{"InsertAndGet", testInsertAndGet},
		{"GetMissing", testGetMissing},
		{"FindDueOrderingAndLimit", testFindDue},
		{"ClaimIsExclusive", testClaimExclusive},
		{"ConcurrentClaims", testConcurrentClaims},
		{"ClaimBeforeRunAt", testClaimNotDue},
		{"CompleteGuardedByAttempt", testCompleteGuard},
		{"RetryReturnsToPending", testRetry},
		{"FailIsTerminal", testFail},
		{"Cancel", testCancel},
		{"Stats", testStats},
		{"ListFiltersAndPages", testList},
		{"RequeueStale", testRequeueStale},
		{"PruneTerminalOnly", testPrune},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, newStore(t))
		})
	}
}

func mustInsert(t *testing.T, s jobx.Store, job *jobx.Job) *jobx.Job {
	t.Helper()
	if err := s.Insert(context.Background(), job); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	return job
}

func mustClaim(t *testing.T, s jobx.Store, id string, now time.Time) *jobx.Job {
	t.Helper()
	job, err := s.Claim(context.Background(), id, now)
	if err != nil {
		t.Fatalf("Claim(%s): %v", id, err)
	}
	return job
}

func mustGet(t *testing.T, s jobx.Store, id string) *jobx.Job {
	t.Helper()
	job, err := s.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("Get(%s): %v", id, err)
	}
	return job
}

func testInsertAndGet(t *testing.T, s jobx.Store) {
	job := NewJob(jobx.TypeSendEmail, Epoch)
	job.Payload = jobx.Payload{"kind": "welcome", "args": map[string]any{"to": "a@example.com"}}
	mustInsert(t, s, job)

	got := mustGet(t, s, job.ID)
	if got.Type != jobx.TypeSendEmail || got.Status != jobx.StatusPending {
		t.Fatalf("got %s/%s", got.Type, got.Status)
	}
	if !got.RunAt.Equal(Epoch) {
		t.Fatalf("RunAt = %v, want %v", got.RunAt, Epoch)
	}
	if got.Payload.String("kind") != "welcome" {
		t.Fatalf("payload kind = %v", got.Payload["kind"])
	}
	args, ok := got.Payload["args"].(map[string]any)
	if !ok || args["to"] != "a@example.com" {
		t.Fatalf("payload args = %#v", got.Payload["args"])
	}
	if got.MaxAttempts != 3 || got.Attempts != 0 {
		t.Fatalf("attempts %d/%d", got.Attempts, got.MaxAttempts)
	}
}

func testGetMissing(t *testing.T, s jobx.Store) {
	_, err := s.Get(context.Background(), uuid.NewString())
	if !errors.Is(err, jobx.ErrJobNotFound) {
		t.Fatalf("err = %v, want ErrJobNotFound", err)
	}
}

func testFindDue(t *testing.T, s jobx.Store) {
	ctx := context.Background()
	late := mustInsert(t, s, NewJob("a", Epoch.Add(-time.Minute)))
	early := mustInsert(t, s, NewJob("b", Epoch.Add(-time.Hour)))
	mustInsert(t, s, NewJob("c", Epoch.Add(time.Hour)))
	running := mustInsert(t, s, NewJob("d", Epoch.Add(-2*time.Hour)))
	mustClaim(t, s, running.ID, Epoch)

	due, err := s.FindDue(ctx, Epoch, 10)
	if err != nil {
		t.Fatalf("FindDue: %v", err)
	}
	if len(due) != 2 || due[0].ID != early.ID || due[1].ID != late.ID {
		t.Fatalf("due = %v, want [early late]", ids(due))
	}

	limited, err := s.FindDue(ctx, Epoch, 1)
	if err != nil {
		t.Fatalf("FindDue: %v", err)
	}
	if len(limited) != 1 || limited[0].ID != early.ID {
		t.Fatalf("limited = %v", ids(limited))
	}
}

func testClaimExclusive(t *testing.T, s jobx.Store) {
	job := mustInsert(t, s, NewJob("a", Epoch))

	claimed := mustClaim(t, s, job.ID, Epoch)
	if claimed.Status != jobx.StatusRunning || claimed.Attempts != 1 {
		t.Fatalf("claimed = %s attempts=%d", claimed.Status, claimed.Attempts)
	}
	if claimed.ClaimedAt == nil || !claimed.ClaimedAt.Equal(Epoch) {
		t.Fatalf("ClaimedAt = %v", claimed.ClaimedAt)
	}

	if _, err := s.Claim(context.Background(), job.ID, Epoch); !errors.Is(err, jobx.ErrClaimConflict) {
		t.Fatalf("second claim err = %v, want ErrClaimConflict", err)
	}
}

func testConcurrentClaims(t *testing.T, s jobx.Store) {
	job := mustInsert(t, s, NewJob("a", Epoch))

	const workers = 16
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Claim(context.Background(), job.ID, Epoch); err == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("%d workers claimed the job, want exactly 1", winners)
	}
	if got := mustGet(t, s, job.ID); got.Attempts != 1 {
		t.Fatalf("attempts = %d, want 1", got.Attempts)
	}
}

func testClaimNotDue(t *testing.T, s jobx.Store) {
	job := mustInsert(t, s, NewJob("a", Epoch.Add(time.Hour)))
	if _, err := s.Claim(context.Background(), job.ID, Epoch); !errors.Is(err, jobx.ErrClaimConflict) {
		t.Fatalf("err = %v, want ErrClaimConflict", err)
	}
}

func testCompleteGuard(t *testing.T, s jobx.Store) {
	ctx := context.Background()
	job := mustInsert(t, s, NewJob("a", Epoch))
	claimed := mustClaim(t, s, job.ID, Epoch)

	if err := s.Complete(ctx, job.ID, claimed.Attempts+1, Epoch); !errors.Is(err, jobx.ErrClaimConflict) {
		t.Fatalf("stale attempt err = %v, want ErrClaimConflict", err)
	}
	if err := s.Complete(ctx, job.ID, claimed.Attempts, Epoch.Add(time.Second)); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	got := mustGet(t, s, job.ID)
	if got.Status != jobx.StatusSucceeded {
		t.Fatalf("status = %s", got.Status)
	}
	if err := s.Complete(ctx, job.ID, claimed.Attempts, Epoch); !errors.Is(err, jobx.ErrClaimConflict) {
		t.Fatalf("double complete err = %v", err)
	}
}

func testRetry(t *testing.T, s jobx.Store) {
	ctx := context.Background()
	job := mustInsert(t, s, NewJob("a", Epoch))
	claimed := mustClaim(t, s, job.ID, Epoch)

	next := Epoch.Add(30 * time.Second)
	if err := s.Retry(ctx, job.ID, claimed.Attempts, next, "smtp down", Epoch); err != nil {
		t.Fatalf("Retry: %v", err)
	}
	got := mustGet(t, s, job.ID)
	if got.Status != jobx.StatusPending || !got.RunAt.Equal(next) || got.LastError != "smtp down" {
		t.Fatalf("got %s runAt=%v lastError=%q", got.Status, got.RunAt, got.LastError)
	}
	if got.Attempts != 1 || got.ClaimedAt != nil {
		t.Fatalf("attempts=%d claimedAt=%v", got.Attempts, got.ClaimedAt)
	}

	due, err := s.FindDue(ctx, Epoch, 10)
	if err != nil {
		t.Fatalf("FindDue: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("retried job due before its runAt: %v", ids(due))
	}
}

func testFail(t *testing.T, s jobx.Store) {
	ctx := context.Background()
	job := mustInsert(t, s, NewJob("a", Epoch))
	claimed := mustClaim(t, s, job.ID, Epoch)

	if err := s.Fail(ctx, job.ID, claimed.Attempts, "boom", Epoch); err != nil {
		t.Fatalf("Fail: %v", err)
	}
	got := mustGet(t, s, job.ID)
	if got.Status != jobx.StatusFailed || got.LastError != "boom" {
		t.Fatalf("got %s %q", got.Status, got.LastError)
	}
	if _, err := s.Claim(ctx, job.ID, Epoch.Add(time.Hour)); !errors.Is(err, jobx.ErrClaimConflict) {
		t.Fatalf("claim of failed job err = %v", err)
	}
}

func testCancel(t *testing.T, s jobx.Store) {
	ctx := context.Background()
	pending := mustInsert(t, s, NewJob("a", Epoch.Add(time.Hour)))
	running := mustInsert(t, s, NewJob("b", Epoch))
	mustClaim(t, s, running.ID, Epoch)

	cancelled, err := s.Cancel(ctx, pending.ID, Epoch)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if cancelled.Status != jobx.StatusCancelled {
		t.Fatalf("status = %s", cancelled.Status)
	}
	if _, err := s.Claim(ctx, pending.ID, Epoch.Add(2*time.Hour)); !errors.Is(err, jobx.ErrClaimConflict) {
		t.Fatalf("cancelled job was claimable: %v", err)
	}

	if _, err := s.Cancel(ctx, running.ID, Epoch); !errors.Is(err, jobx.ErrInvalidTransition) {
		t.Fatalf("cancel running err = %v, want ErrInvalidTransition", err)
	}
	if _, err := s.Cancel(ctx, pending.ID, Epoch); !errors.Is(err, jobx.ErrInvalidTransition) {
		t.Fatalf("cancel cancelled err = %v, want ErrInvalidTransition", err)
	}
	if _, err := s.Cancel(ctx, uuid.NewString(), Epoch); !errors.Is(err, jobx.ErrJobNotFound) {
		t.Fatalf("cancel missing err = %v, want ErrJobNotFound", err)
	}
}

func testStats(t *testing.T, s jobx.Store) {
	ctx := context.Background()
	for range 3 {
		job := mustInsert(t, s, NewJob("ok", Epoch))
		claimed := mustClaim(t, s, job.ID, Epoch)
		if err := s.Complete(ctx, job.ID, claimed.Attempts, Epoch); err != nil {
			t.Fatal(err)
		}
	}
	failed := mustInsert(t, s, NewJob("bad", Epoch))
	claimed := mustClaim(t, s, failed.ID, Epoch)
	if err := s.Fail(ctx, failed.ID, claimed.Attempts, "boom", Epoch); err != nil {
		t.Fatal(err)
	}
	mustInsert(t, s, NewJob("later", Epoch.Add(time.Hour)))
	mustInsert(t, s, NewJob("later", Epoch.Add(time.Hour)))

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := jobx.Stats{Pending: 2, Succeeded: 3, Failed: 1}
	if stats != want {
		t.Fatalf("stats = %+v, want %+v", stats, want)
	}
}

func testList(t *testing.T, s jobx.Store) {
	ctx := context.Background()
	var created []*jobx.Job
	for i := range 5 {
		job := NewJob("a", Epoch)
		job.CreatedAt = Epoch.Add(time.Duration(i) * time.Second)
		created = append(created, mustInsert(t, s, job))
	}
	if _, err := s.Cancel(ctx, created[0].ID, Epoch); err != nil {
		t.Fatal(err)
	}

	page, err := s.List(ctx, "", kernel.PaginationOptions{Page: 1, PageSize: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Page.Total != 5 || page.Page.Pages != 3 || len(page.Items) != 2 {
		t.Fatalf("page = %+v items=%d", page.Page, len(page.Items))
	}
	if page.Items[0].ID != created[4].ID {
		t.Fatalf("first item = %s, want newest %s", page.Items[0].ID, created[4].ID)
	}

	last, err := s.List(ctx, "", kernel.PaginationOptions{Page: 3, PageSize: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(last.Items) != 1 || last.Items[0].ID != created[0].ID || last.HasNext() {
		t.Fatalf("last page = %v", ids(last.Items))
	}

	cancelled, err := s.List(ctx, jobx.StatusCancelled, kernel.PaginationOptions{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if cancelled.Page.Total != 1 || cancelled.Items[0].ID != created[0].ID {
		t.Fatalf("cancelled = %v", ids(cancelled.Items))
	}
}

func testRequeueStale(t *testing.T, s jobx.Store) {
	ctx := context.Background()

	retryable := mustInsert(t, s, NewJob("a", Epoch))
	mustClaim(t, s, retryable.ID, Epoch)

	exhausted := NewJob("b", Epoch)
	exhausted.MaxAttempts = 1
	mustInsert(t, s, exhausted)
	mustClaim(t, s, exhausted.ID, Epoch)

	fresh := mustInsert(t, s, NewJob("c", Epoch))
	mustClaim(t, s, fresh.ID, Epoch.Add(10*time.Minute))

	now := Epoch.Add(11 * time.Minute)
	res, err := s.RequeueStale(ctx, now.Add(-5*time.Minute), now)
	if err != nil {
		t.Fatalf("RequeueStale: %v", err)
	}
	if res.Requeued != 1 || res.Failed != 1 {
		t.Fatalf("result = %+v, want 1 requeued 1 failed", res)
	}

	got := mustGet(t, s, retryable.ID)
	if got.Status != jobx.StatusPending || !got.RunAt.Equal(now) || got.LastError != jobx.StaleClaimMessage {
		t.Fatalf("retryable = %s runAt=%v lastError=%q", got.Status, got.RunAt, got.LastError)
	}
	if got := mustGet(t, s, exhausted.ID); got.Status != jobx.StatusFailed {
		t.Fatalf("exhausted = %s", got.Status)
	}
	if got := mustGet(t, s, fresh.ID); got.Status != jobx.StatusRunning {
		t.Fatalf("fresh claim = %s, want running", got.Status)
	}
}

func testPrune(t *testing.T, s jobx.Store) {
	ctx := context.Background()

	old := mustInsert(t, s, NewJob("a", Epoch))
	claimed := mustClaim(t, s, old.ID, Epoch)
	if err := s.Complete(ctx, old.ID, claimed.Attempts, Epoch); err != nil {
		t.Fatal(err)
	}
	oldPending := mustInsert(t, s, NewJob("b", Epoch))
	recent := mustInsert(t, s, NewJob("c", Epoch))
	if _, err := s.Cancel(ctx, recent.ID, Epoch.Add(48*time.Hour)); err != nil {
		t.Fatal(err)
	}

	n, err := s.Prune(ctx, Epoch.Add(24*time.Hour))
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if n != 1 {
		t.Fatalf("pruned %d, want 1", n)
	}
	if _, err := s.Get(ctx, old.ID); !errors.Is(err, jobx.ErrJobNotFound) {
		t.Fatalf("old job still present: %v", err)
	}
	mustGet(t, s, oldPending.ID)
	mustGet(t, s, recent.ID)
}

func ids(jobs []*jobx.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}
